// Package crypto provides the key schedule and authenticated encryption
// used by passlock vaults.
//
// Key derivation:
//   - PBKDF2-HMAC-SHA256, 100,000 iterations, 16-byte random salt
//   - the PBKDF2 output is a root key that is never used directly
//   - HKDF-SHA256 splits the root into an encryption key and a verifier
//
// The verifier is what gets persisted in the KeyRecord. It is compared in
// constant time on unlock and reveals nothing about the encryption key.
//
// Encryption uses AES-256-GCM (default) or ChaCha20-Poly1305 with:
//   - 32-byte key
//   - 12-byte random nonce per encryption operation
//   - a single ErrDecryptionFailed for every failure on the open path
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Codec.Destroy() and Keys.Destroy() when done
package crypto
