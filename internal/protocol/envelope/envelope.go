// Package envelope converts between the (ciphertext, iv, tag) triple and the
// textual frame payload "b64(ciphertext)|b64(iv)|b64(tag)".
package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophlink/internal/cryptox"
)

// Separator joins the three base64 segments. It never occurs in standard base64.
const Separator = "|"

var (
	ErrMalformedFieldCount = errors.New("envelope: expected exactly three non-empty fields")
	ErrBadBase64           = errors.New("envelope: invalid base64 field")
)

// Pack builds the textual payload.
func Pack(ciphertext, iv, tag []byte) string {
	enc := base64.StdEncoding
	return enc.EncodeToString(ciphertext) + Separator + enc.EncodeToString(iv) + Separator + enc.EncodeToString(tag)
}

// Unpack splits and decodes a payload produced by Pack.
func Unpack(payload string) (ciphertext, iv, tag []byte, err error) {
	parts := strings.Split(payload, Separator)
	if len(parts) != 3 {
		return nil, nil, nil, ErrMalformedFieldCount
	}
	decoded := make([][]byte, 3)
	for i, p := range parts {
		if p == "" {
			return nil, nil, nil, ErrMalformedFieldCount
		}
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: field %d: %v", ErrBadBase64, i, err)
		}
		decoded[i] = b
	}
	return decoded[0], decoded[1], decoded[2], nil
}

// Seal encrypts plaintext and packs the result.
func Seal(plaintext []byte, keys cryptox.KeyPair) ([]byte, error) {
	ct, iv, tag, err := cryptox.Encrypt(plaintext, keys)
	if err != nil {
		return nil, err
	}
	return []byte(Pack(ct, iv, tag)), nil
}

// Open unpacks payload and decrypts it. Errors wrap ErrMalformedFieldCount,
// ErrBadBase64 or one of the cryptox errors.
func Open(payload []byte, keys cryptox.KeyPair) ([]byte, error) {
	ct, iv, tag, err := Unpack(string(payload))
	if err != nil {
		return nil, err
	}
	return cryptox.Decrypt(ct, iv, tag, keys)
}
