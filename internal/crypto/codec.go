package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher names the AEAD construction a vault is encrypted with.
type Cipher string

const (
	CipherAESGCM           Cipher = "aes-256-gcm"
	CipherChaCha20Poly1305 Cipher = "chacha20-poly1305"
)

var errCodecDestroyed = errors.New("codec destroyed")

// ParseCipher validates a cipher name. The empty string selects AES-256-GCM.
func ParseCipher(name string) (Cipher, error) {
	switch Cipher(name) {
	case "", CipherAESGCM:
		return CipherAESGCM, nil
	case CipherChaCha20Poly1305:
		return CipherChaCha20Poly1305, nil
	default:
		return "", fmt.Errorf("unknown cipher %q", name)
	}
}

// Record is one encrypted blob together with the nonce it was sealed under.
type Record struct {
	Nonce      []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// Codec provides authenticated encryption under a single key
type Codec struct {
	key  []byte
	aead cipher.AEAD
}

// NewCodec creates a codec for the given cipher. The key is copied.
func NewCodec(c Cipher, key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}
	c, err := ParseCipher(string(c))
	if err != nil {
		return nil, err
	}

	k := append([]byte(nil), key...)

	var aead cipher.AEAD
	switch c {
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(k)
		if err != nil {
			ClearBytes(k)
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
	default:
		block, err := aes.NewCipher(k)
		if err != nil {
			ClearBytes(k)
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		aead, err = cipher.NewGCM(block)
		if err != nil {
			ClearBytes(k)
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
	}

	return &Codec{key: k, aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce
func (c *Codec) Seal(plaintext []byte) (Record, error) {
	if c.aead == nil {
		return Record{}, errCodecDestroyed
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Record{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return Record{
		Nonce:      nonce,
		Ciphertext: c.aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Open decrypts and authenticates a record
func (c *Codec) Open(r Record) ([]byte, error) {
	if c.aead == nil {
		return nil, errCodecDestroyed
	}
	if len(r.Nonce) != NonceSize || len(r.Ciphertext) < TagSize {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := c.aead.Open(nil, r.Nonce, r.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Encrypt marshals v to JSON and seals it
func (c *Codec) Encrypt(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	defer ClearBytes(data)

	return c.Seal(data)
}

// Decrypt opens r and unmarshals the plaintext into v
func (c *Codec) Decrypt(r Record, v any) error {
	data, err := c.Open(r)
	if err != nil {
		return err
	}
	defer ClearBytes(data)

	if err := json.Unmarshal(data, v); err != nil {
		return ErrDecryptionFailed
	}
	return nil
}

// Destroy clears the codec's key from memory
func (c *Codec) Destroy() {
	ClearBytes(c.key)
	c.aead = nil
}
