package cryptox

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the per-user salt length generated at registration.
const SaltSize = 32

// PasswordParams are the argon2id cost parameters. They are deployment-wide:
// changing them invalidates every stored hash.
type PasswordParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
}

// DefaultPasswordParams returns the production cost settings.
func DefaultPasswordParams() PasswordParams {
	return PasswordParams{Time: 1, MemoryKB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Validate rejects parameters argon2 cannot work with.
func (p PasswordParams) Validate() error {
	if p.Time < 1 || p.Threads < 1 {
		return errors.New("cryptox: argon2 time and threads must be >= 1")
	}
	if p.MemoryKB < 8*uint32(p.Threads) {
		return errors.New("cryptox: argon2 memory too small for thread count")
	}
	if p.KeyLen < 16 {
		return errors.New("cryptox: argon2 key length must be >= 16")
	}
	return nil
}

// HashPassword derives the stored hash for password under salt.
func HashPassword(password, salt []byte, p PasswordParams) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Threads, p.KeyLen)
}

// VerifyPassword recomputes the hash and compares it with stored in constant time.
func VerifyPassword(password, salt, stored []byte, p PasswordParams) bool {
	return subtle.ConstantTimeCompare(HashPassword(password, salt, p), stored) == 1
}
