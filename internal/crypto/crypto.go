package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	SaltSize     = 16     // Salt size in bytes
	KeySize      = 32     // AES-256 / ChaCha20 key size
	NonceSize    = 12     // AEAD nonce size
	TagSize      = 16     // AEAD authentication tag size
	DefaultIters = 100000 // PBKDF2 iterations
)

var (
	ErrInvalidPassword    = errors.New("invalid password")
	ErrVerificationFailed = errors.New("wrong master password")
	// ErrDecryptionFailed covers wrong key, tampered data and malformed plaintext alike.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
