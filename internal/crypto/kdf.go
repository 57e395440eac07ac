package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptionInfo = "passlock/encryption"
	verifierInfo   = "passlock/verifier"
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives the root key from a password.
// The root key must not be used for encryption directly; see Keys.
func (k *KDF) DeriveKey(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrInvalidPassword
	}
	if len(k.Salt) != SaltSize {
		return nil, fmt.Errorf("invalid salt length %d", len(k.Salt))
	}
	if k.Iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count %d", k.Iterations)
	}
	return pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New), nil
}

// Keys holds the subkeys expanded from one password derivation.
type Keys struct {
	Encryption []byte
	Verifier   []byte
}

// Destroy zeroes both subkeys.
func (k *Keys) Destroy() {
	ClearBytes(k.Encryption)
	ClearBytes(k.Verifier)
}

// Keys derives the encryption key and the password verifier.
func (k *KDF) Keys(password []byte) (*Keys, error) {
	root, err := k.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(root)

	enc, err := expand(root, k.Salt, encryptionInfo)
	if err != nil {
		return nil, err
	}
	ver, err := expand(root, k.Salt, verifierInfo)
	if err != nil {
		ClearBytes(enc)
		return nil, err
	}
	return &Keys{Encryption: enc, Verifier: ver}, nil
}

func expand(root, salt []byte, info string) ([]byte, error) {
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, root, salt, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("failed to expand key: %w", err)
	}
	return out, nil
}

// Derive returns the encryption key for password under salt. A nil salt
// is replaced by a fresh random one, which is returned alongside the key.
func Derive(password, salt []byte) (key, usedSalt []byte, err error) {
	kdf := &KDF{Salt: salt, Iterations: DefaultIters}
	if salt == nil {
		if kdf, err = NewKDF(); err != nil {
			return nil, nil, err
		}
	}
	keys, err := kdf.Keys(password)
	if err != nil {
		return nil, nil, err
	}
	ClearBytes(keys.Verifier)
	return keys.Encryption, kdf.Salt, nil
}

// Verify reports whether password matches verifier under salt.
func Verify(password, salt []byte, iterations int, verifier []byte) bool {
	kdf := &KDF{Salt: salt, Iterations: iterations}
	keys, err := kdf.Keys(password)
	if err != nil {
		return false
	}
	defer keys.Destroy()
	return ConstantTimeCompare(keys.Verifier, verifier)
}

// KeyRecord is the persisted master key record. It holds everything needed
// to check a password and re-derive the vault key, and nothing that reveals it.
type KeyRecord struct {
	Salt       []byte    `json:"salt"`
	Verifier   []byte    `json:"verifier"`
	Iterations int       `json:"iterations"`
	Cipher     Cipher    `json:"cipher"`
	Created    time.Time `json:"created"`
}

// NewKeyRecord creates a record for password with a fresh salt and returns
// it together with the derived encryption key.
func NewKeyRecord(password []byte, c Cipher) (*KeyRecord, []byte, error) {
	return NewKeyRecordWithIterations(password, c, DefaultIters)
}

// NewKeyRecordWithIterations is NewKeyRecord with an explicit PBKDF2 cost.
func NewKeyRecordWithIterations(password []byte, c Cipher, iterations int) (*KeyRecord, []byte, error) {
	if len(password) == 0 {
		return nil, nil, ErrInvalidPassword
	}
	if _, err := ParseCipher(string(c)); err != nil {
		return nil, nil, err
	}

	kdf, err := NewKDF()
	if err != nil {
		return nil, nil, err
	}
	kdf.Iterations = iterations

	keys, err := kdf.Keys(password)
	if err != nil {
		return nil, nil, err
	}

	record := &KeyRecord{
		Salt:       kdf.Salt,
		Verifier:   keys.Verifier,
		Iterations: iterations,
		Cipher:     c,
		Created:    time.Now().UTC(),
	}
	return record, keys.Encryption, nil
}

// Unwrap checks password against the record and returns the encryption key.
func (r *KeyRecord) Unwrap(password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrInvalidPassword
	}
	kdf := &KDF{Salt: r.Salt, Iterations: r.Iterations}
	keys, err := kdf.Keys(password)
	if err != nil {
		return nil, err
	}
	if !ConstantTimeCompare(keys.Verifier, r.Verifier) {
		keys.Destroy()
		return nil, ErrVerificationFailed
	}
	ClearBytes(keys.Verifier)
	return keys.Encryption, nil
}
