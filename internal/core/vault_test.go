package core

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/storage"
	"github.com/illarion/passlock/internal/strength"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIters = 1000

var (
	masterPassword = []byte("correct horse battery staple")
	otherPassword  = []byte("tr0ub4dor&3")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingRekey wraps a store whose Rekey always fails.
type failingRekey struct {
	Store
}

func (failingRekey) Rekey(context.Context, *crypto.KeyRecord, []crypto.Record) error {
	return errors.New("disk full")
}

func openStore(t *testing.T) Store {
	t.Helper()
	db, err := storage.OpenBolt(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newVault(t *testing.T, store Store, cfg Config) (*Vault, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	cfg.Clock = clock
	if cfg.Iterations == 0 {
		cfg.Iterations = testIters
	}
	v, err := New(context.Background(), store, cfg)
	require.NoError(t, err)
	return v, clock
}

func newUnlockedVault(t *testing.T) (*Vault, *fakeClock) {
	t.Helper()
	v, clock := newVault(t, openStore(t), Config{})
	require.NoError(t, v.Init(context.Background(), masterPassword))
	return v, clock
}

func addSamples(t *testing.T, v *Vault) []Entry {
	t.Helper()
	ctx := context.Background()
	var out []Entry
	for _, e := range []Entry{
		{Website: "github.com", Username: "alice", Secret: "gh-secret", Category: "Work"},
		{Website: "mail.example.com", Username: "alice@example.com", Secret: "mail-secret"},
		{Website: "bank.example", Username: "Alice", Secret: "bank-secret", Category: "finance", Notes: "pin in safe"},
	} {
		added, err := v.Add(ctx, e)
		require.NoError(t, err)
		out = append(out, added)
	}
	return out
}

func TestVault_InitAndUnlock(t *testing.T) {
	ctx := context.Background()
	v, _ := newVault(t, openStore(t), Config{})

	assert.False(t, v.Initialized())
	assert.True(t, v.IsLocked())

	require.NoError(t, v.Init(ctx, masterPassword))
	assert.True(t, v.Initialized())
	assert.False(t, v.IsLocked())

	assert.ErrorIs(t, v.Init(ctx, otherPassword), ErrAlreadyExists)

	require.NoError(t, v.Lock(ctx))
	assert.True(t, v.IsLocked())

	assert.ErrorIs(t, v.Unlock(ctx, otherPassword), crypto.ErrVerificationFailed)
	assert.ErrorIs(t, v.Unlock(ctx, nil), crypto.ErrInvalidPassword)
	assert.True(t, v.IsLocked())

	require.NoError(t, v.Unlock(ctx, masterPassword))
	assert.False(t, v.IsLocked())
}

func TestVault_LockedRejectsEntryOperations(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)
	entries := addSamples(t, v)
	rec, err := v.EncryptEntry(ctx, entries[0])
	require.NoError(t, err)

	require.NoError(t, v.Lock(ctx))

	_, err = v.List(ctx, "")
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	_, err = v.Get(ctx, 1)
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	_, err = v.Add(ctx, Entry{Website: "x", Secret: "y"})
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	_, err = v.DecryptEntry(ctx, rec)
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	_, err = v.EncryptEntry(ctx, entries[0])
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	assert.ErrorIs(t, v.Remove(ctx, 1), session.ErrSessionLocked)
	assert.ErrorIs(t, v.Clear(ctx), session.ErrSessionLocked)
	_, err = v.Export(ctx)
	assert.ErrorIs(t, err, session.ErrSessionLocked)
	assert.ErrorIs(t, v.RecordActivity(ctx), session.ErrSessionLocked)

	// Stateless utilities keep working.
	pw, err := v.GeneratePassword(16, passgen.All)
	require.NoError(t, err)
	assert.Len(t, pw, 16)
	score, label := v.EstimateStrength("")
	assert.Equal(t, 0, score)
	assert.Equal(t, strength.NoPassword, label)

	status, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.EntryCount, "status counts without decrypting")
	assert.True(t, status.Locked)
}

func TestVault_EncryptDecryptEntry(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)

	e := Entry{ID: 7, Website: "example.com", Username: "bob", Secret: "s3cr3t", Category: "other",
		Notes: "line one\nline two", CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec, err := v.EncryptEntry(ctx, e)
	require.NoError(t, err)
	assert.Len(t, rec.Nonce, crypto.NonceSize)

	got, err := v.DecryptEntry(ctx, rec)
	require.NoError(t, err)
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}

	rec.Ciphertext[0] ^= 1
	_, err = v.DecryptEntry(ctx, rec)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestVault_AddListSearchGet(t *testing.T) {
	ctx := context.Background()
	v, clock := newUnlockedVault(t)
	added := addSamples(t, v)

	assert.Equal(t, uint64(1), added[0].ID)
	assert.Equal(t, uint64(3), added[2].ID)
	assert.Equal(t, "work", added[0].Category)
	assert.Equal(t, DefaultCategory, added[1].Category)
	assert.Equal(t, clock.Now(), added[0].CreatedAt)

	all, err := v.List(ctx, "")
	require.NoError(t, err)
	if diff := cmp.Diff(added, all); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	finance, err := v.List(ctx, "Finance")
	require.NoError(t, err)
	require.Len(t, finance, 1)
	assert.Equal(t, "bank.example", finance[0].Website)

	found, err := v.Search(ctx, "ALICE")
	require.NoError(t, err)
	assert.Len(t, found, 3)
	found, err = v.Search(ctx, "example")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	got, err := v.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "mail-secret", got.Secret)

	_, err = v.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = v.Add(ctx, Entry{Website: "  ", Secret: "x"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	_, err = v.Add(ctx, Entry{Website: "x"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestVault_IDsAreMonotonicAfterRemove(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	v, _ := newVault(t, store, Config{})
	require.NoError(t, v.Init(ctx, masterPassword))
	addSamples(t, v)

	// Removing the highest ID must not free it.
	require.NoError(t, v.Remove(ctx, 3))
	e, err := v.Add(ctx, Entry{Website: "new.example", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), e.ID)

	require.NoError(t, v.Remove(ctx, 1, 4))
	next, err := store.LoadNextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), next)

	// The mark survives a restart and a clear.
	reopened, _ := newVault(t, store, Config{})
	require.NoError(t, reopened.Unlock(ctx, masterPassword))
	e, err = reopened.Add(ctx, Entry{Website: "after-restart.example", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e.ID)

	require.NoError(t, reopened.Clear(ctx))
	e, err = reopened.Add(ctx, Entry{Website: "after-clear.example", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), e.ID)
}

func TestVault_ImportNeverReusesRemovedIDs(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)
	addSamples(t, v)
	require.NoError(t, v.Remove(ctx, 2, 3))

	doc := `[{"website":"a.example","password":"1"},{"website":"b.example","password":"2"}]`
	_, err := v.Import(ctx, []byte(doc), ImportOptions{Mode: ImportMerge, Strategy: StrategyKeepLocal})
	require.NoError(t, err)
	all, err := v.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{1, 4, 5}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	_, err = v.Import(ctx, []byte(`[{"website":"c.example","password":"3"},{"website":"d.example","password":"4"}]`),
		ImportOptions{Mode: ImportReplace})
	require.NoError(t, err)
	all, err = v.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(6), all[0].ID)
	assert.Equal(t, uint64(7), all[1].ID)
}

func TestVault_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	v, clock := newUnlockedVault(t)
	added := addSamples(t, v)

	clock.Advance(time.Minute)
	edit := added[1]
	edit.Secret = "rotated"
	edit.CreatedAt = time.Time{}
	updated, err := v.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, added[1].CreatedAt, updated.CreatedAt)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)

	got, err := v.Get(ctx, edit.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Secret)

	_, err = v.Update(ctx, Entry{ID: 42, Website: "x", Secret: "y"})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// All or nothing.
	assert.ErrorIs(t, v.Remove(ctx, 1, 42), ErrEntryNotFound)
	all, err := v.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, v.Remove(ctx, 1, 3))
	all, err = v.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint64(2), all[0].ID)

	require.NoError(t, v.Clear(ctx))
	all, err = v.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, v.Initialized(), "clear keeps the master password")
}

func TestVault_AutoLock(t *testing.T) {
	ctx := context.Background()
	v, clock := newUnlockedVault(t)
	addSamples(t, v)

	clock.Advance(4 * time.Minute)
	_, err := v.List(ctx, "")
	require.NoError(t, err)

	// The list above counts as activity.
	clock.Advance(4 * time.Minute)
	locked, err := v.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, locked)

	clock.Advance(time.Minute)
	locked, err = v.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, locked)

	_, err = v.Get(ctx, 1)
	assert.ErrorIs(t, err, session.ErrSessionLocked)

	require.NoError(t, v.Unlock(ctx, masterPassword))
	_, err = v.Get(ctx, 1)
	require.NoError(t, err)
}

func TestVault_SettingsAndSelfUnlock(t *testing.T) {
	ctx := context.Background()
	source := func(context.Context) ([]byte, error) {
		return append([]byte(nil), masterPassword...), nil
	}
	v, _ := newVault(t, openStore(t), Config{AutoUnlock: source})
	require.NoError(t, v.Init(ctx, masterPassword))
	addSamples(t, v)

	assert.ErrorIs(t, v.Configure(ctx, 0, true), session.ErrInvalidPolicy)

	require.NoError(t, v.Configure(ctx, 15, false))
	st := v.Settings()
	assert.Equal(t, 15, st.AutoLockMinutes)
	assert.False(t, st.RequireMasterPassword)

	require.NoError(t, v.Lock(ctx))
	assert.False(t, v.IsLocked())
	all, err := v.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestVault_LockedWhenSourceIsEmpty(t *testing.T) {
	ctx := context.Background()
	source := func(context.Context) ([]byte, error) {
		return nil, errors.New("nothing stored")
	}
	v, _ := newVault(t, openStore(t), Config{AutoUnlock: source})
	require.NoError(t, v.Init(ctx, masterPassword))
	require.NoError(t, v.Ready(ctx))
	record, err := v.EncryptEntry(ctx, Entry{Website: "github.com", Secret: "gh-secret"})
	require.NoError(t, err)

	require.NoError(t, v.Configure(ctx, 5, false))
	require.NoError(t, v.Lock(ctx))

	// The source cannot deliver a password, so the vault stays locked.
	assert.True(t, v.IsLocked())
	assert.ErrorIs(t, v.Ready(ctx), session.ErrSessionLocked)
	_, err = v.DecryptEntry(ctx, record)
	assert.ErrorIs(t, err, session.ErrSessionLocked)

	require.NoError(t, v.Unlock(ctx, masterPassword))
	assert.NoError(t, v.Ready(ctx))
}

func TestVault_DefaultsSeedNewVault(t *testing.T) {
	defaults := session.State{AutoLockMinutes: 12, RequireMasterPassword: true}
	v, _ := newVault(t, openStore(t), Config{Defaults: &defaults})
	assert.Equal(t, 12, v.Settings().AutoLockMinutes)
}

func TestVault_ChangePassword(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	v, _ := newVault(t, store, Config{})
	require.NoError(t, v.Init(ctx, masterPassword))
	added := addSamples(t, v)

	oldRecords, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	oldKey, err := store.LoadMasterKeyRecord(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, v.ChangePassword(ctx, otherPassword, otherPassword), crypto.ErrVerificationFailed)
	assert.ErrorIs(t, v.ChangePassword(ctx, masterPassword, nil), crypto.ErrInvalidPassword)

	require.NoError(t, v.ChangePassword(ctx, masterPassword, otherPassword))
	assert.False(t, v.IsLocked())

	newKey, err := store.LoadMasterKeyRecord(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey.Salt, newKey.Salt)
	assert.NotEqual(t, oldKey.Verifier, newKey.Verifier)

	// Records sealed under the old key no longer open.
	for _, rec := range oldRecords {
		_, err := v.DecryptEntry(ctx, rec)
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	}

	all, err := v.List(ctx, "")
	require.NoError(t, err)
	if diff := cmp.Diff(added, all); diff != "" {
		t.Errorf("entries changed across rekey (-want +got):\n%s", diff)
	}

	require.NoError(t, v.Lock(ctx))
	assert.ErrorIs(t, v.Unlock(ctx, masterPassword), crypto.ErrVerificationFailed)
	require.NoError(t, v.Unlock(ctx, otherPassword))
}

func TestVault_ChangePasswordIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	v, _ := newVault(t, store, Config{})
	require.NoError(t, v.Init(ctx, masterPassword))
	added := addSamples(t, v)
	before, err := store.LoadEntries(ctx)
	require.NoError(t, err)

	// Reopen the same data through a store that cannot commit a rekey.
	broken, _ := newVault(t, failingRekey{store}, Config{})
	require.NoError(t, broken.Unlock(ctx, masterPassword))
	require.Error(t, broken.ChangePassword(ctx, masterPassword, otherPassword))

	after, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("entries changed by a failed rekey (-before +after):\n%s", diff)
	}

	// The session keeps working under the old key.
	all, err := broken.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(added))
	require.NoError(t, broken.Lock(ctx))
	require.NoError(t, broken.Unlock(ctx, masterPassword))
	assert.ErrorIs(t, broken.Unlock(ctx, otherPassword), crypto.ErrVerificationFailed)
}

func TestVault_ExportImportReplace(t *testing.T) {
	ctx := context.Background()
	src, _ := newUnlockedVault(t)
	added := addSamples(t, src)

	data, err := src.Export(ctx)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, "gh-secret", raw[0]["password"])

	dst, _ := newUnlockedVault(t)
	_, err = dst.Add(ctx, Entry{Website: "to-be-replaced", Secret: "x"})
	require.NoError(t, err)

	res, err := dst.Import(ctx, data, ImportOptions{Mode: ImportReplace})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)

	all, err := dst.List(ctx, "")
	require.NoError(t, err)
	if diff := cmp.Diff(added, all); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	empty, _ := newUnlockedVault(t)
	data, err = empty.Export(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestVault_ImportReplaceRenumbersDuplicates(t *testing.T) {
	ctx := context.Background()
	v, clock := newUnlockedVault(t)

	doc := `[{"id":5,"website":"a.example","password":"1"},{"id":5,"website":"b.example","password":"2"}]`
	_, err := v.Import(ctx, []byte(doc), ImportOptions{Mode: ImportReplace})
	require.NoError(t, err)

	all, err := v.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].ID)
	assert.Equal(t, uint64(2), all[1].ID)
	assert.Equal(t, clock.Now(), all[0].CreatedAt)
	assert.Equal(t, DefaultCategory, all[1].Category)
}

func mergeDoc(t *testing.T) []byte {
	t.Helper()
	doc := []Entry{
		{Website: "GitHub.com", Username: "alice", Secret: "gh-rotated", Category: "work"},
		{Website: "mail.example.com", Username: "alice@example.com", Secret: "mail-secret"},
		{Website: "new.example", Username: "carol", Secret: "new-secret"},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestVault_ImportMerge(t *testing.T) {
	tests := []struct {
		strategy   ConflictStrategy
		want       ImportResult
		wantGitHub []string
	}{
		{StrategyKeepLocal, ImportResult{Added: 1, Skipped: 1, Unchanged: 1}, []string{"gh-secret"}},
		{StrategyUseImport, ImportResult{Added: 1, Updated: 1, Unchanged: 1}, []string{"gh-rotated"}},
		{StrategyKeepBoth, ImportResult{Added: 2, Unchanged: 1}, []string{"gh-secret", "gh-rotated"}},
	}

	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			ctx := context.Background()
			v, _ := newUnlockedVault(t)
			addSamples(t, v)

			res, err := v.Import(ctx, mergeDoc(t), ImportOptions{Strategy: tt.strategy})
			require.NoError(t, err)
			assert.Equal(t, tt.want, *res)

			gh, err := v.Search(ctx, "github")
			require.NoError(t, err)
			var secrets []string
			for _, e := range gh {
				secrets = append(secrets, e.Secret)
			}
			assert.Equal(t, tt.wantGitHub, secrets)

			carol, err := v.Search(ctx, "carol")
			require.NoError(t, err)
			require.Len(t, carol, 1)
			assert.Greater(t, carol[0].ID, uint64(3))
		})
	}
}

func TestVault_ImportMergeAbortChangesNothing(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)
	added := addSamples(t, v)

	_, err := v.Import(ctx, mergeDoc(t), ImportOptions{Strategy: StrategyAbort})
	assert.ErrorIs(t, err, ErrImportAborted)

	resolverErr := errors.New("cancelled")
	_, err = v.Import(ctx, mergeDoc(t), ImportOptions{
		Strategy: StrategyAsk,
		Resolve:  func(Conflict) (Resolution, error) { return 0, resolverErr },
	})
	assert.ErrorIs(t, err, resolverErr)

	all, err := v.List(ctx, "")
	require.NoError(t, err)
	if diff := cmp.Diff(added, all); diff != "" {
		t.Errorf("aborted import changed the vault (-want +got):\n%s", diff)
	}
}

func TestVault_ImportRejectsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)

	for _, doc := range []string{
		``,
		`{"website":"a","password":"b"}`,
		`null`,
		`[{"website":"a","password":"b"`,
		`[{"website":"","password":"b"}]`,
		`[{"website":"a"}]`,
	} {
		_, err := v.Import(ctx, []byte(doc), ImportOptions{})
		assert.ErrorIs(t, err, ErrInvalidImport, "document %q", doc)
	}
}

func TestVault_Diff(t *testing.T) {
	ctx := context.Background()
	v, _ := newUnlockedVault(t)
	addSamples(t, v)

	data, err := v.Export(ctx)
	require.NoError(t, err)
	diff, err := v.Diff(ctx, data, false)
	require.NoError(t, err)
	assert.Empty(t, diff)

	diff, err = v.Diff(ctx, mergeDoc(t), false)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- vault/github.com")
	assert.Contains(t, diff, "+password: ******** (changed)")
	assert.Contains(t, diff, "+website: new.example")
	assert.Contains(t, diff, "only in vault")
	assert.NotContains(t, diff, "gh-rotated")
	assert.NotContains(t, diff, "bank-secret")

	diff, err = v.Diff(ctx, mergeDoc(t), true)
	require.NoError(t, err)
	assert.Contains(t, diff, "-password: gh-secret")
	assert.Contains(t, diff, "+password: gh-rotated")
}

func TestVault_StatusAndVaultID(t *testing.T) {
	ctx := context.Background()
	v, clock := newVault(t, openStore(t), Config{Cipher: crypto.CipherChaCha20Poly1305})

	status, err := v.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Initialized)

	require.NoError(t, v.Init(ctx, masterPassword))
	addSamples(t, v)

	status, err = v.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Initialized)
	assert.False(t, status.Locked)
	assert.Equal(t, crypto.CipherChaCha20Poly1305, status.Cipher)
	assert.Equal(t, testIters, status.Iterations)
	assert.Equal(t, 3, status.EntryCount)
	assert.Equal(t, session.Unlocked, status.Session.Status)
	assert.Equal(t, clock.Now(), status.Session.LastActivity)
	assert.False(t, status.Modified.IsZero())

	id1, err := v.VaultID(ctx)
	require.NoError(t, err)
	id2, err := v.VaultID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	require.NoError(t, v.Compact(ctx))
	all, err := v.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
