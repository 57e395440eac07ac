package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/session"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Version, timestamps, vault ID - unencrypted
	MasterBucket  = []byte("master")  // Master key record (salt, verifier) - unencrypted
	SessionBucket = []byte("session") // Session state - unencrypted
	EntriesBucket = []byte("entries") // Encrypted vault entries keyed by sequence
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
	ConfigNextID   = []byte("next_id")

	masterKey  = []byte("record")
	sessionKey = []byte("state")
)

// Bolt provides BBolt-based storage for a vault
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates a vault database and ensures its buckets exist
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, ErrVaultBusy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Bolt{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Kind returns KindBolt
func (s *Bolt) Kind() Kind {
	return KindBolt
}

// initialize creates the bucket structure on first open
func (s *Bolt) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, MasterBucket, SessionBucket, EntriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// LoadMasterKeyRecord returns the stored record, or nil before first setup
func (s *Bolt) LoadMasterKeyRecord(ctx context.Context) (*crypto.KeyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var record *crypto.KeyRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(MasterBucket).Get(masterKey)
		if data == nil {
			return nil
		}
		record = &crypto.KeyRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read master key record: %w", err)
	}
	return record, nil
}

// SaveMasterKeyRecord stores the master key record
func (s *Bolt) SaveMasterKeyRecord(ctx context.Context, record *crypto.KeyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putMaster(tx, record); err != nil {
			return err
		}
		return touch(tx)
	})
}

func putMaster(tx *bolt.Tx, record *crypto.KeyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal master key record: %w", err)
	}
	return tx.Bucket(MasterBucket).Put(masterKey, data)
}

// LoadSessionState returns the stored session state, or nil if none
func (s *Bolt) LoadSessionState(ctx context.Context) (*session.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var state *session.State
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(SessionBucket).Get(sessionKey)
		if data == nil {
			return nil
		}
		state = &session.State{}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return state, nil
}

// SaveSessionState stores the session state
func (s *Bolt) SaveSessionState(ctx context.Context, state session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(SessionBucket).Put(sessionKey, data)
	})
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// LoadEntries returns all encrypted entries in stored order
func (s *Bolt) LoadEntries(ctx context.Context) ([]crypto.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []crypto.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(EntriesBucket).ForEach(func(k, v []byte) error {
			var r crypto.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("corrupt entry %x: %w", k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return records, nil
}

// SaveEntries replaces all stored entries and raises the next entry ID
// to nextID. The stored next ID never decreases.
func (s *Bolt) SaveEntries(ctx context.Context, records []crypto.Record, nextID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putEntries(tx, records); err != nil {
			return err
		}
		if err := advanceNextID(tx, nextID); err != nil {
			return err
		}
		return touch(tx)
	})
}

func advanceNextID(tx *bolt.Tx, nextID uint64) error {
	config := tx.Bucket(ConfigBucket)
	if data := config.Get(ConfigNextID); len(data) == 8 && binary.BigEndian.Uint64(data) >= nextID {
		return nil
	}
	return config.Put(ConfigNextID, seqKey(nextID))
}

// LoadNextID returns the lowest entry ID never handed out, or 0 if none
// has been recorded.
func (s *Bolt) LoadNextID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(ConfigBucket).Get(ConfigNextID); len(data) == 8 {
			next = binary.BigEndian.Uint64(data)
		}
		return nil
	})
	return next, err
}

func putEntries(tx *bolt.Tx, records []crypto.Record) error {
	if err := tx.DeleteBucket(EntriesBucket); err != nil && err != bolt.ErrBucketNotFound {
		return fmt.Errorf("failed to reset entries: %w", err)
	}
	bucket, err := tx.CreateBucket(EntriesBucket)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", EntriesBucket, err)
	}
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := bucket.Put(seqKey(uint64(i+1)), data); err != nil {
			return err
		}
	}
	return nil
}

// Rekey replaces the master key record and every entry in one transaction
func (s *Bolt) Rekey(ctx context.Context, record *crypto.KeyRecord, records []crypto.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putEntries(tx, records); err != nil {
			return err
		}
		if err := putMaster(tx, record); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Clear removes all entries, keeping the master key record, the next
// entry ID and session state
func (s *Bolt) Clear(ctx context.Context) error {
	return s.SaveEntries(ctx, nil, 0)
}

// GetModified retrieves the last modified timestamp
func (s *Bolt) GetModified(ctx context.Context) (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Bolt) GetOrCreateVaultID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var vaultID string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if data := config.Get(ConfigVaultID); data != nil {
			vaultID = string(data)
			return nil
		}
		vaultID = uuid.NewString()
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to store vault ID: %w", err)
	}
	return vaultID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Old entry versions linger in free pages after a password change or clear.
func (s *Bolt) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = bolt.Compact(dst, s.db, 0)
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
