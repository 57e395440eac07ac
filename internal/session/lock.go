// Package session implements the vault lock: a two-state machine that owns
// the master key record and the in-memory session key, and gates every use
// of the vault codec.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/logging"
)

var (
	ErrSessionLocked = errors.New("session is locked")
	ErrInvalidPolicy = errors.New("auto-lock timeout must be at least one minute")
)

// Lock is the session state machine. Transitions take the write lock;
// codec users hold the read lock for the duration of their operation.
type Lock struct {
	mu     sync.RWMutex
	store  Store
	clock  Clock
	log    logging.Logger
	record *crypto.KeyRecord
	codec  *crypto.Codec
	state  State

	cipher     crypto.Cipher
	iterations int
	auto       PasswordSource
}

// Option configures a Lock.
type Option func(*Lock)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(l *Lock) { l.clock = c }
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(l *Lock) { l.log = log }
}

// WithCipher selects the cipher used when the vault is first set up.
func WithCipher(c crypto.Cipher) Option {
	return func(l *Lock) { l.cipher = c }
}

// WithIterations sets the PBKDF2 cost used when a record is created.
func WithIterations(n int) Option {
	return func(l *Lock) { l.iterations = n }
}

// WithAutoUnlock sets the password source used when the session does not
// require the master password to be entered.
func WithAutoUnlock(src PasswordSource) Option {
	return func(l *Lock) { l.auto = src }
}

// WithDefaults sets the policy used when no session state has been stored.
func WithDefaults(s State) Option {
	return func(l *Lock) { l.state = s }
}

// New loads the session from store. The session starts Locked; when the
// stored policy does not require a master password and an auto-unlock
// source is configured, it is unlocked right away.
func New(ctx context.Context, store Store, opts ...Option) (*Lock, error) {
	l := &Lock{
		store:      store,
		clock:      systemClock{},
		log:        logging.Nop(),
		state:      DefaultState(),
		cipher:     crypto.CipherAESGCM,
		iterations: crypto.DefaultIters,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "session")

	record, err := store.LoadMasterKeyRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key record: %w", err)
	}
	l.record = record

	state, err := store.LoadSessionState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	if state != nil {
		l.state = *state
	}
	l.state.Status = Locked

	if !l.state.RequireMasterPassword && l.auto != nil && l.record != nil {
		if err := l.autoUnlock(ctx); err != nil {
			l.log.Warn(ctx, "auto-unlock failed", "error", err)
		}
	}

	return l, nil
}

// Unlock verifies password and unlocks the session. With no master key
// record stored, the password is taken as the new master password.
// Unlocking an unlocked session verifies the password and refreshes activity.
func (l *Lock) Unlock(ctx context.Context, password []byte) error {
	if len(password) == 0 {
		return crypto.ErrInvalidPassword
	}

	l.mu.RLock()
	record := l.record
	l.mu.RUnlock()

	if record == nil {
		return l.bootstrap(ctx, password)
	}

	// Derivation runs without the lock so Tick observes the pre-unlock state.
	key, err := record.Unwrap(password)
	if err != nil {
		l.log.Warn(ctx, "unlock rejected", "error", err)
		return err
	}
	codec, err := crypto.NewCodec(record.Cipher, key)
	crypto.ClearBytes(key)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.record != record {
		codec.Destroy()
		return crypto.ErrVerificationFailed
	}

	reason := "unlock"
	if l.codec != nil {
		codec.Destroy()
		codec = l.codec
		reason = "refresh"
	}
	return l.commitUnlocked(ctx, codec, reason)
}

func (l *Lock) bootstrap(ctx context.Context, password []byte) error {
	l.mu.Lock()
	if l.record != nil {
		l.mu.Unlock()
		return l.Unlock(ctx, password)
	}
	defer l.mu.Unlock()

	record, key, err := crypto.NewKeyRecordWithIterations(password, l.cipher, l.iterations)
	if err != nil {
		return err
	}
	codec, err := crypto.NewCodec(record.Cipher, key)
	crypto.ClearBytes(key)
	if err != nil {
		return err
	}

	if err := l.store.SaveMasterKeyRecord(ctx, record); err != nil {
		codec.Destroy()
		l.log.Error(ctx, "failed to store master key record", "error", err)
		return fmt.Errorf("failed to store master key record: %w", err)
	}
	l.record = record

	return l.commitUnlocked(ctx, codec, "bootstrap")
}

// commitUnlocked must be called with the write lock held.
func (l *Lock) commitUnlocked(ctx context.Context, codec *crypto.Codec, reason string) error {
	next := l.state
	next.Status = Unlocked
	next.LastActivity = l.clock.Now()

	if err := l.store.SaveSessionState(ctx, next); err != nil {
		if codec != l.codec {
			codec.Destroy()
		}
		return fmt.Errorf("failed to save session state: %w", err)
	}

	l.codec = codec
	l.state = next
	if reason != "refresh" {
		l.log.Info(ctx, "session unlocked", "status", next.Status, "reason", reason)
	}
	return nil
}

// RecordActivity refreshes the inactivity timer.
func (l *Lock) RecordActivity(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.codec == nil {
		return ErrSessionLocked
	}

	next := l.state
	next.LastActivity = l.clock.Now()
	if err := l.store.SaveSessionState(ctx, next); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	l.state = next
	return nil
}

// Tick locks the session when it has been idle for at least the auto-lock
// timeout. It reports whether it locked.
func (l *Lock) Tick(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.RequireMasterPassword || l.codec == nil {
		return false, nil
	}
	if l.clock.Now().Sub(l.state.LastActivity) < l.state.AutoLockTimeout() {
		return false, nil
	}
	return true, l.lockLocked(ctx, "auto-lock")
}

// Lock locks the session and discards the session key.
func (l *Lock) Lock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockLocked(ctx, "explicit lock")
}

// lockLocked must be called with the write lock held. The key is discarded
// even when the state cannot be persisted.
func (l *Lock) lockLocked(ctx context.Context, reason string) error {
	if l.codec != nil {
		l.codec.Destroy()
		l.codec = nil
	}
	l.state.Status = Locked
	l.log.Info(ctx, "session locked", "status", l.state.Status, "reason", reason)

	if err := l.store.SaveSessionState(ctx, l.state); err != nil {
		l.log.Error(ctx, "failed to save session state", "error", err)
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// IsLocked reports whether vault operations would be refused. A session
// that does not require the master password tries to unlock itself first
// and is reported open only if that succeeds.
func (l *Lock) IsLocked() bool {
	l.mu.RLock()
	open, self := l.codec != nil, l.selfUnlocking()
	l.mu.RUnlock()

	if open {
		return false
	}
	if !self {
		return true
	}
	if err := l.autoUnlock(context.Background()); err != nil {
		l.log.Debug(context.Background(), "auto-unlock failed", "error", err)
		return true
	}
	return false
}

func (l *Lock) selfUnlocking() bool {
	return !l.state.RequireMasterPassword && l.auto != nil && l.record != nil
}

func (l *Lock) autoUnlock(ctx context.Context) error {
	password, err := l.auto(ctx)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	return l.Unlock(ctx, password)
}

// WithCodec runs fn with the session codec. It fails with ErrSessionLocked
// when the session is locked. fn must not call back into the Lock.
func (l *Lock) WithCodec(ctx context.Context, fn func(*crypto.Codec) error) error {
	l.mu.RLock()
	if l.codec == nil {
		self := l.selfUnlocking()
		l.mu.RUnlock()
		if !self {
			return ErrSessionLocked
		}
		if err := l.autoUnlock(ctx); err != nil {
			l.log.Warn(ctx, "auto-unlock failed", "error", err)
			return ErrSessionLocked
		}
		l.mu.RLock()
		if l.codec == nil {
			l.mu.RUnlock()
			return ErrSessionLocked
		}
	}
	defer l.mu.RUnlock()
	return fn(l.codec)
}

// Rekeyer re-encrypts the vault from old to next and persists the result
// together with record in a single transaction.
type Rekeyer func(ctx context.Context, old, next *crypto.Codec, record *crypto.KeyRecord) error

// ChangePassword verifies current, derives a fresh record for next and
// passes both codecs to rekey. The session switches to the new key only
// when rekey succeeds, and is left Unlocked.
func (l *Lock) ChangePassword(ctx context.Context, current, next []byte, rekey Rekeyer) error {
	if len(next) == 0 {
		return crypto.ErrInvalidPassword
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.record == nil {
		return ErrSessionLocked
	}

	oldKey, err := l.record.Unwrap(current)
	if err != nil {
		return err
	}
	oldCodec, err := crypto.NewCodec(l.record.Cipher, oldKey)
	crypto.ClearBytes(oldKey)
	if err != nil {
		return err
	}
	defer oldCodec.Destroy()

	record, newKey, err := crypto.NewKeyRecordWithIterations(next, l.record.Cipher, l.iterationsFor(l.record))
	if err != nil {
		return err
	}
	newCodec, err := crypto.NewCodec(record.Cipher, newKey)
	crypto.ClearBytes(newKey)
	if err != nil {
		return err
	}

	if err := rekey(ctx, oldCodec, newCodec, record); err != nil {
		newCodec.Destroy()
		l.log.Error(ctx, "password change rolled back", "error", err)
		return err
	}

	if l.codec != nil {
		l.codec.Destroy()
	}
	l.record = record
	l.codec = newCodec
	l.state.Status = Unlocked
	l.state.LastActivity = l.clock.Now()
	l.log.Info(ctx, "master password changed")

	// Rekey has committed; do not fail past this point.
	if err := l.store.SaveSessionState(ctx, l.state); err != nil {
		l.log.Warn(ctx, "failed to save session state", "error", err)
	}
	return nil
}

func (l *Lock) iterationsFor(r *crypto.KeyRecord) int {
	if r.Iterations > l.iterations {
		return r.Iterations
	}
	return l.iterations
}

// Configure updates the auto-lock policy.
func (l *Lock) Configure(ctx context.Context, autoLockMinutes int, requireMasterPassword bool) error {
	if autoLockMinutes < 1 {
		return ErrInvalidPolicy
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.AutoLockMinutes = autoLockMinutes
	next.RequireMasterPassword = requireMasterPassword
	if err := l.store.SaveSessionState(ctx, next); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	l.state = next
	return nil
}

// State returns a copy of the current session state.
func (l *Lock) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Params describes the stored key record without exposing it.
type Params struct {
	Cipher     crypto.Cipher
	Iterations int
	Created    time.Time
}

// Params returns the key record parameters. ok is false before first setup.
func (l *Lock) Params() (p Params, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.record == nil {
		return Params{}, false
	}
	return Params{
		Cipher:     l.record.Cipher,
		Iterations: l.record.Iterations,
		Created:    l.record.Created,
	}, true
}
