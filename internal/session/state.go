package session

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/passlock/internal/crypto"
)

// Status is the lock status of a session.
type Status int

const (
	Locked Status = iota
	Unlocked
)

func (s Status) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "locked":
		*s = Locked
	case "unlocked":
		*s = Unlocked
	default:
		return fmt.Errorf("unknown session status %q", b)
	}
	return nil
}

const (
	DefaultAutoLockMinutes = 5
	DefaultTickInterval    = time.Minute
)

// State is the persisted session policy and last known status.
type State struct {
	Status                Status    `json:"status"`
	LastActivity          time.Time `json:"lastActivity"`
	AutoLockMinutes       int       `json:"autoLockTimeoutMinutes"`
	RequireMasterPassword bool      `json:"requireMasterPassword"`
}

// DefaultState returns a locked state with a five minute auto-lock.
func DefaultState() State {
	return State{
		Status:                Locked,
		AutoLockMinutes:       DefaultAutoLockMinutes,
		RequireMasterPassword: true,
	}
}

// AutoLockTimeout returns the inactivity period after which Tick locks.
func (s State) AutoLockTimeout() time.Duration {
	return time.Duration(s.AutoLockMinutes) * time.Minute
}

// Store persists the master key record and session state.
// LoadMasterKeyRecord and LoadSessionState return nil, nil when nothing is stored.
type Store interface {
	LoadMasterKeyRecord(ctx context.Context) (*crypto.KeyRecord, error)
	SaveMasterKeyRecord(ctx context.Context, record *crypto.KeyRecord) error
	LoadSessionState(ctx context.Context) (*State, error)
	SaveSessionState(ctx context.Context, state State) error
}

// Clock supplies the current time. Implementations should return values
// carrying a monotonic reading, as time.Now does.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// PasswordSource supplies a master password without prompting, for
// sessions that do not require one to be typed.
type PasswordSource func(ctx context.Context) ([]byte, error)
