package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/storage/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	metaMaster   = "master_record"
	metaSession  = "session_state"
	metaVaultID  = "vault_id"
	metaCreated  = "created"
	metaModified = "modified"
	metaNextID   = "next_id"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by the queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite stores the vault in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens or creates a SQLite vault at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers, matching bbolt semantics.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s := &SQLite{db: db}
	now, _ := time.Now().UTC().MarshalText()
	for _, key := range []string{metaCreated, metaModified} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, now); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize metadata: %w", err)
		}
	}
	return s, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Kind returns KindSQLite
func (s *SQLite) Kind() Kind {
	return KindSQLite
}

func (s *SQLite) withTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(ctx, tx)
}

func getMeta(ctx context.Context, q DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, q DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func touchSQL(ctx context.Context, q DBTX) error {
	now, _ := time.Now().UTC().MarshalText()
	return setMeta(ctx, q, metaModified, now)
}

// LoadMasterKeyRecord returns the stored record, or nil before first setup
func (s *SQLite) LoadMasterKeyRecord(ctx context.Context) (*crypto.KeyRecord, error) {
	data, err := getMeta(ctx, s.db, metaMaster)
	if err != nil || data == nil {
		return nil, err
	}
	var record crypto.KeyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to read master key record: %w", err)
	}
	return &record, nil
}

func putMasterSQL(ctx context.Context, q DBTX, record *crypto.KeyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal master key record: %w", err)
	}
	return setMeta(ctx, q, metaMaster, data)
}

// SaveMasterKeyRecord stores the master key record
func (s *SQLite) SaveMasterKeyRecord(ctx context.Context, record *crypto.KeyRecord) error {
	return s.withTx(ctx, func(ctx context.Context, tx DBTX) error {
		if err := putMasterSQL(ctx, tx, record); err != nil {
			return err
		}
		return touchSQL(ctx, tx)
	})
}

// LoadSessionState returns the stored session state, or nil if none
func (s *SQLite) LoadSessionState(ctx context.Context) (*session.State, error) {
	data, err := getMeta(ctx, s.db, metaSession)
	if err != nil || data == nil {
		return nil, err
	}
	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return &state, nil
}

// SaveSessionState stores the session state
func (s *SQLite) SaveSessionState(ctx context.Context, state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	return setMeta(ctx, s.db, metaSession, data)
}

// LoadEntries returns all encrypted entries in stored order
func (s *SQLite) LoadEntries(ctx context.Context) ([]crypto.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT nonce, ciphertext FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var records []crypto.Record
	for rows.Next() {
		var r crypto.Record
		if err := rows.Scan(&r.Nonce, &r.Ciphertext); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entry rows: %w", err)
	}
	return records, nil
}

func putEntriesSQL(ctx context.Context, q DBTX, records []crypto.Record) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to reset entries: %w", err)
	}
	for i, r := range records {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO entries (seq, nonce, ciphertext) VALUES (?, ?, ?)`,
			i+1, r.Nonce, r.Ciphertext); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}
	return nil
}

// SaveEntries replaces all stored entries and raises the next entry ID
// to nextID. The stored next ID never decreases.
func (s *SQLite) SaveEntries(ctx context.Context, records []crypto.Record, nextID uint64) error {
	return s.withTx(ctx, func(ctx context.Context, tx DBTX) error {
		if err := putEntriesSQL(ctx, tx, records); err != nil {
			return err
		}
		current, err := loadNextIDSQL(ctx, tx)
		if err != nil {
			return err
		}
		if nextID > current {
			if err := setMeta(ctx, tx, metaNextID, []byte(strconv.FormatUint(nextID, 10))); err != nil {
				return err
			}
		}
		return touchSQL(ctx, tx)
	})
}

func loadNextIDSQL(ctx context.Context, q DBTX) (uint64, error) {
	data, err := getMeta(ctx, q, metaNextID)
	if err != nil || data == nil {
		return 0, err
	}
	next, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt next entry id: %w", err)
	}
	return next, nil
}

// LoadNextID returns the lowest entry ID never handed out, or 0 if none
// has been recorded.
func (s *SQLite) LoadNextID(ctx context.Context) (uint64, error) {
	return loadNextIDSQL(ctx, s.db)
}

// Rekey replaces the master key record and every entry in one transaction
func (s *SQLite) Rekey(ctx context.Context, record *crypto.KeyRecord, records []crypto.Record) error {
	return s.withTx(ctx, func(ctx context.Context, tx DBTX) error {
		if err := putEntriesSQL(ctx, tx, records); err != nil {
			return err
		}
		if err := putMasterSQL(ctx, tx, record); err != nil {
			return err
		}
		return touchSQL(ctx, tx)
	})
}

// Clear removes all entries, keeping the master key record, the next
// entry ID and session state
func (s *SQLite) Clear(ctx context.Context) error {
	return s.SaveEntries(ctx, nil, 0)
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *SQLite) GetOrCreateVaultID(ctx context.Context) (string, error) {
	var vaultID string
	err := s.withTx(ctx, func(ctx context.Context, tx DBTX) error {
		data, err := getMeta(ctx, tx, metaVaultID)
		if err != nil {
			return err
		}
		if data != nil {
			vaultID = string(data)
			return nil
		}
		vaultID = uuid.NewString()
		return setMeta(ctx, tx, metaVaultID, []byte(vaultID))
	})
	return vaultID, err
}

// Compact rebuilds the database file to reclaim free pages
func (s *SQLite) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// GetModified retrieves the last modified timestamp
func (s *SQLite) GetModified(ctx context.Context) (time.Time, error) {
	var modified time.Time
	data, err := getMeta(ctx, s.db, metaModified)
	if err != nil {
		return modified, err
	}
	if data == nil {
		return modified, fmt.Errorf("modified time not found")
	}
	return modified, modified.UnmarshalText(data)
}
