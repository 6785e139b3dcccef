// Package cryptox implements the message crypto engine (AES-256-CBC with
// PKCS#7 padding, authenticated by HMAC-SHA256 over ciphertext||iv) and
// password hashing.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// KeySize is the length of both the cipher key and the MAC key.
	KeySize = 32
	// IVSize is the CBC initialization vector length.
	IVSize = aes.BlockSize
	// TagSize is the HMAC-SHA256 output length.
	TagSize = sha256.Size
)

var (
	// ErrIntegrity is returned when the tag does not match. No decryption is
	// attempted in that case.
	ErrIntegrity = errors.New("cryptox: integrity check failed")
	// ErrInvalidKey is returned for keys that are not KeySize bytes long.
	ErrInvalidKey = errors.New("cryptox: invalid key length")
	// ErrBadPadding is returned when an authenticated ciphertext does not unpad.
	ErrBadPadding = errors.New("cryptox: bad padding")
)

// randReader is a test seam for the IV source.
var randReader io.Reader = rand.Reader

// KeyPair is the symmetric key material shared by both endpoints of a deployment.
// It is read-only after construction and safe for concurrent use.
type KeyPair struct {
	CipherKey []byte
	MACKey    []byte
}

// NewKeyPair validates and copies the given keys.
func NewKeyPair(cipherKey, macKey []byte) (KeyPair, error) {
	if len(cipherKey) != KeySize || len(macKey) != KeySize {
		return KeyPair{}, ErrInvalidKey
	}
	return KeyPair{
		CipherKey: bytes.Clone(cipherKey),
		MACKey:    bytes.Clone(macKey),
	}, nil
}

// ParseKeyPair decodes two standard-base64 keys, as stored in configuration.
func ParseKeyPair(cipherKeyB64, macKeyB64 string) (KeyPair, error) {
	cipherKey, err := base64.StdEncoding.DecodeString(cipherKeyB64)
	if err != nil {
		return KeyPair{}, fmt.Errorf("decoding cipher key: %w", err)
	}
	macKey, err := base64.StdEncoding.DecodeString(macKeyB64)
	if err != nil {
		return KeyPair{}, fmt.Errorf("decoding mac key: %w", err)
	}
	return NewKeyPair(cipherKey, macKey)
}

// GenerateKeyPair returns a fresh random key pair.
func GenerateKeyPair() (KeyPair, error) {
	cipherKey := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, cipherKey); err != nil {
		return KeyPair{}, err
	}
	macKey := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, macKey); err != nil {
		return KeyPair{}, err
	}
	return KeyPair{CipherKey: cipherKey, MACKey: macKey}, nil
}

// Encoded returns both keys in standard base64, the configuration format.
func (k KeyPair) Encoded() (cipherKey, macKey string) {
	return base64.StdEncoding.EncodeToString(k.CipherKey), base64.StdEncoding.EncodeToString(k.MACKey)
}

// Encrypt encrypts plaintext under a fresh random IV and returns the
// ciphertext, the IV and tag = HMAC-SHA256(macKey, ciphertext||iv).
func Encrypt(plaintext []byte, keys KeyPair) (ciphertext, iv, tag []byte, err error) {
	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, nil, nil, ErrInvalidKey
	}
	if len(keys.MACKey) != KeySize {
		return nil, nil, nil, ErrInvalidKey
	}

	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("generating iv: %w", err)
	}

	ciphertext = pkcs7Pad(plaintext, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, ciphertext)

	return ciphertext, iv, computeTag(keys.MACKey, ciphertext, iv), nil
}

// Decrypt verifies tag in constant time and only then decrypts ciphertext.
// Any tag mismatch, including a wrong length, yields ErrIntegrity.
func Decrypt(ciphertext, iv, tag []byte, keys KeyPair) ([]byte, error) {
	if len(keys.MACKey) != KeySize {
		return nil, ErrInvalidKey
	}
	if !hmac.Equal(computeTag(keys.MACKey, ciphertext, iv), tag) {
		return nil, ErrIntegrity
	}

	block, err := aes.NewCipher(keys.CipherKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(iv) != IVSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrBadPadding
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func computeTag(macKey, ciphertext, iv []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	mac.Write(ciphertext)
	mac.Write(iv)
	return mac.Sum(nil)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, ErrBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
