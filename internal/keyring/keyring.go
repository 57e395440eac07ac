package keyring

import (
	"context"
	"errors"

	"github.com/illarion/passlock/internal/session"
	"github.com/zalando/go-keyring"
)

const serviceName = "passlock"

// ErrNotFound is returned when no password is stored for a vault
var ErrNotFound = keyring.ErrNotFound

// SavePassword stores a password in the OS keyring
func SavePassword(vaultID string, password string) error {
	return keyring.Set(serviceName, vaultID, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(vaultID string) (string, error) {
	return keyring.Get(serviceName, vaultID)
}

// DeletePassword removes a password from the OS keyring
func DeletePassword(vaultID string) error {
	return keyring.Delete(serviceName, vaultID)
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}

// Source returns a password source reading the vault's keyring entry,
// falling back to the next sources in order when there is none.
func Source(vaultID string, fallbacks ...session.PasswordSource) session.PasswordSource {
	return func(ctx context.Context) ([]byte, error) {
		password, err := GetPassword(vaultID)
		if err == nil && password != "" {
			return []byte(password), nil
		}
		for _, next := range fallbacks {
			if p, ferr := next(ctx); ferr == nil && len(p) > 0 {
				return p, nil
			}
		}
		if err == nil || errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
}
