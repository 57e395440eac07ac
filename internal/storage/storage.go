package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/session"
)

// ErrVaultBusy is returned when another process holds the vault open.
var ErrVaultBusy = errors.New("vault is in use by another process")

// Kind selects a storage backend.
type Kind string

const (
	KindBolt   Kind = "bolt"
	KindSQLite Kind = "sqlite"
)

// ParseKind validates a backend name. The empty string selects bolt.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case "", KindBolt:
		return KindBolt, nil
	case KindSQLite:
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q", s)
	}
}

// Backend is implemented by Bolt and SQLite.
type Backend interface {
	session.Store

	LoadEntries(ctx context.Context) ([]crypto.Record, error)
	SaveEntries(ctx context.Context, records []crypto.Record, nextID uint64) error
	LoadNextID(ctx context.Context) (uint64, error)
	Rekey(ctx context.Context, record *crypto.KeyRecord, records []crypto.Record) error
	Clear(ctx context.Context) error
	GetOrCreateVaultID(ctx context.Context) (string, error)
	GetModified(ctx context.Context) (time.Time, error)
	Compact(ctx context.Context) error
	Kind() Kind
	Close() error
}

// Open opens the vault database at path with the given backend.
func Open(ctx context.Context, kind Kind, path string) (Backend, error) {
	switch kind {
	case KindSQLite:
		return OpenSQLite(ctx, path)
	case KindBolt, "":
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
