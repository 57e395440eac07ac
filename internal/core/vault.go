package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/logging"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/strength"
)

var (
	ErrNotInitialized = errors.New("vault not initialized")
	ErrAlreadyExists  = errors.New("vault already exists")
	ErrEntryNotFound  = errors.New("entry not found")
	ErrInvalidEntry   = errors.New("invalid entry")
	ErrInvalidImport  = errors.New("invalid import: expected a JSON array of entries")
	ErrImportAborted  = errors.New("import aborted on conflict")
)

// Store is the persistence collaborator. Every method must be atomic.
type Store interface {
	session.Store

	LoadEntries(ctx context.Context) ([]crypto.Record, error)
	// SaveEntries replaces every entry and raises the persisted next entry
	// ID to nextID in the same transaction. The next ID never decreases.
	SaveEntries(ctx context.Context, records []crypto.Record, nextID uint64) error
	LoadNextID(ctx context.Context) (uint64, error)
	// Rekey replaces the master key record and all entries together.
	Rekey(ctx context.Context, record *crypto.KeyRecord, records []crypto.Record) error
	GetOrCreateVaultID(ctx context.Context) (string, error)
	GetModified(ctx context.Context) (time.Time, error)
	Compact(ctx context.Context) error
	Close() error
}

// Config holds optional dependencies for a Vault.
type Config struct {
	Logger     logging.Logger
	Clock      session.Clock
	Cipher     crypto.Cipher
	Iterations int
	// Defaults seeds the session policy of a vault with no stored state.
	Defaults   *session.State
	AutoUnlock session.PasswordSource
}

// Vault manages encrypted entries behind a session lock
type Vault struct {
	mu    sync.Mutex // serializes entry mutations
	store Store
	lock  *session.Lock
	gen   *passgen.Generator
	log   logging.Logger
	clock session.Clock
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// New creates a Vault over store. The session starts locked.
func New(ctx context.Context, store Store, cfg Config) (*Vault, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}

	opts := []session.Option{
		session.WithLogger(cfg.Logger),
		session.WithClock(cfg.Clock),
	}
	if cfg.Cipher != "" {
		opts = append(opts, session.WithCipher(cfg.Cipher))
	}
	if cfg.Iterations > 0 {
		opts = append(opts, session.WithIterations(cfg.Iterations))
	}
	if cfg.Defaults != nil {
		opts = append(opts, session.WithDefaults(*cfg.Defaults))
	}
	if cfg.AutoUnlock != nil {
		opts = append(opts, session.WithAutoUnlock(cfg.AutoUnlock))
	}

	lock, err := session.New(ctx, store, opts...)
	if err != nil {
		return nil, err
	}

	return &Vault{
		store: store,
		lock:  lock,
		gen:   passgen.New(),
		log:   cfg.Logger.With("component", "vault"),
		clock: cfg.Clock,
	}, nil
}

// Initialized reports whether a master password has been set.
func (v *Vault) Initialized() bool {
	_, ok := v.lock.Params()
	return ok
}

// Init sets the master password of a new vault and leaves it unlocked.
func (v *Vault) Init(ctx context.Context, password []byte) error {
	if v.Initialized() {
		return ErrAlreadyExists
	}
	return v.lock.Unlock(ctx, password)
}

// Unlock unlocks the session. On a vault with no master password yet,
// password becomes the master password.
func (v *Vault) Unlock(ctx context.Context, password []byte) error {
	return v.lock.Unlock(ctx, password)
}

// Lock locks the session and discards the key.
func (v *Vault) Lock(ctx context.Context) error {
	return v.lock.Lock(ctx)
}

// RecordActivity postpones auto-lock.
func (v *Vault) RecordActivity(ctx context.Context) error {
	return v.lock.RecordActivity(ctx)
}

// IsLocked reports whether entry operations would fail with session.ErrSessionLocked.
func (v *Vault) IsLocked() bool {
	return v.lock.IsLocked()
}

// Ready opens a self-unlocking session now. It returns
// session.ErrSessionLocked when the session stays locked.
func (v *Vault) Ready(ctx context.Context) error {
	return v.lock.WithCodec(ctx, func(*crypto.Codec) error { return nil })
}

// Tick applies the auto-lock policy and reports whether the session locked.
func (v *Vault) Tick(ctx context.Context) (bool, error) {
	return v.lock.Tick(ctx)
}

// GeneratePassword returns a random password. It does not need the session.
func (v *Vault) GeneratePassword(length int, classes passgen.Class) (string, error) {
	return v.gen.Generate(length, classes)
}

// EstimateStrength scores a password. It does not need the session.
func (v *Vault) EstimateStrength(password string) (int, strength.Label) {
	return strength.Score(password)
}

// EncryptEntry seals a single entry under the session key.
func (v *Vault) EncryptEntry(ctx context.Context, e Entry) (crypto.Record, error) {
	var rec crypto.Record
	err := v.lock.WithCodec(ctx, func(c *crypto.Codec) error {
		var err error
		rec, err = c.Encrypt(e)
		return err
	})
	if err != nil {
		return crypto.Record{}, err
	}
	v.touch(ctx)
	return rec, nil
}

// DecryptEntry opens a single record under the session key.
func (v *Vault) DecryptEntry(ctx context.Context, rec crypto.Record) (Entry, error) {
	var e Entry
	err := v.lock.WithCodec(ctx, func(c *crypto.Codec) error {
		return c.Decrypt(rec, &e)
	})
	if err != nil {
		return Entry{}, err
	}
	v.touch(ctx)
	return e, nil
}

// touch records activity after a successful operation. A failure to
// persist the timestamp does not fail the operation.
func (v *Vault) touch(ctx context.Context) {
	if err := v.lock.RecordActivity(ctx); err != nil && !errors.Is(err, session.ErrSessionLocked) {
		v.log.Warn(ctx, "failed to record activity", "error", err)
	}
}

// ChangePassword re-encrypts every entry under a key derived from next.
// The new salt, verifier and entries are committed in one transaction.
func (v *Vault) ChangePassword(ctx context.Context, current, next []byte) error {
	if !v.Initialized() {
		return ErrNotInitialized
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lock.ChangePassword(ctx, current, next,
		func(ctx context.Context, old, nc *crypto.Codec, record *crypto.KeyRecord) error {
			records, err := v.store.LoadEntries(ctx)
			if err != nil {
				return err
			}

			rekeyed := make([]crypto.Record, len(records))
			for i, r := range records {
				plain, err := old.Open(r)
				if err != nil {
					return err
				}
				rekeyed[i], err = nc.Seal(plain)
				crypto.ClearBytes(plain)
				if err != nil {
					return fmt.Errorf("failed to re-encrypt entry: %w", err)
				}
			}

			if err := v.store.Rekey(ctx, record, rekeyed); err != nil {
				return fmt.Errorf("failed to store re-encrypted vault: %w", err)
			}
			v.log.Info(ctx, "vault re-encrypted", "entries", len(rekeyed))
			return nil
		})
}

// Settings returns the session policy and status.
func (v *Vault) Settings() session.State {
	return v.lock.State()
}

// Configure updates the auto-lock policy.
func (v *Vault) Configure(ctx context.Context, autoLockMinutes int, requireMasterPassword bool) error {
	return v.lock.Configure(ctx, autoLockMinutes, requireMasterPassword)
}

// StatusInfo contains vault status information
type StatusInfo struct {
	Initialized bool
	Locked      bool
	Session     session.State
	Cipher      crypto.Cipher
	Iterations  int
	Created     time.Time
	Modified    time.Time
	EntryCount  int
}

// Status returns the current status (no password required)
func (v *Vault) Status(ctx context.Context) (*StatusInfo, error) {
	records, err := v.store.LoadEntries(ctx)
	if err != nil {
		return nil, err
	}

	status := &StatusInfo{
		Locked:     v.lock.IsLocked(),
		Session:    v.lock.State(),
		EntryCount: len(records),
	}
	if modified, err := v.store.GetModified(ctx); err == nil {
		status.Modified = modified
	}
	if p, ok := v.lock.Params(); ok {
		status.Initialized = true
		status.Cipher = p.Cipher
		status.Iterations = p.Iterations
		status.Created = p.Created
	}
	return status, nil
}

// VaultID returns the stable identifier of this vault, used as the keyring account.
func (v *Vault) VaultID(ctx context.Context) (string, error) {
	return v.store.GetOrCreateVaultID(ctx)
}

// Compact reclaims space left by replaced entries.
func (v *Vault) Compact(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.Compact(ctx)
}

// Close locks the session and closes the store.
func (v *Vault) Close(ctx context.Context) error {
	lockErr := v.lock.Lock(ctx)
	if err := v.store.Close(); err != nil {
		return err
	}
	return lockErr
}
