package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(n int) []crypto.Record {
	records := make([]crypto.Record, n)
	for i := range records {
		records[i] = crypto.Record{
			Nonce:      bytes.Repeat([]byte{byte(i)}, crypto.NonceSize),
			Ciphertext: []byte(fmt.Sprintf("ciphertext-%03d-padding-to-tag", i)),
		}
	}
	return records
}

func sampleKeyRecord() *crypto.KeyRecord {
	return &crypto.KeyRecord{
		Salt:       bytes.Repeat([]byte{1}, crypto.SaltSize),
		Verifier:   bytes.Repeat([]byte{2}, crypto.KeySize),
		Iterations: crypto.DefaultIters,
		Cipher:     crypto.CipherAESGCM,
		Created:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func openBackends(t *testing.T) map[Kind]Backend {
	t.Helper()
	ctx := context.Background()
	out := make(map[Kind]Backend)
	for _, kind := range []Kind{KindBolt, KindSQLite} {
		b, err := Open(ctx, kind, filepath.Join(t.TempDir(), "vault."+string(kind)))
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		out[kind] = b
	}
	return out
}

func TestBackend_Contract(t *testing.T) {
	for kind, b := range openBackends(t) {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			assert.Equal(t, kind, b.Kind())

			modified, err := b.GetModified(ctx)
			require.NoError(t, err)
			assert.False(t, modified.IsZero())

			record, err := b.LoadMasterKeyRecord(ctx)
			require.NoError(t, err)
			assert.Nil(t, record)

			state, err := b.LoadSessionState(ctx)
			require.NoError(t, err)
			assert.Nil(t, state)

			entries, err := b.LoadEntries(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			next, err := b.LoadNextID(ctx)
			require.NoError(t, err)
			assert.Zero(t, next)

			want := sampleKeyRecord()
			require.NoError(t, b.SaveMasterKeyRecord(ctx, want))
			got, err := b.LoadMasterKeyRecord(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			st := session.State{
				Status:                session.Unlocked,
				LastActivity:          time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
				AutoLockMinutes:       7,
				RequireMasterPassword: false,
			}
			require.NoError(t, b.SaveSessionState(ctx, st))
			gotState, err := b.LoadSessionState(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(st, *gotState); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}

			records := sampleRecords(12)
			require.NoError(t, b.SaveEntries(ctx, records, 13))
			gotRecords, err := b.LoadEntries(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(records, gotRecords); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, b.SaveEntries(ctx, records[:2], 3))
			gotRecords, err = b.LoadEntries(ctx)
			require.NoError(t, err)
			assert.Len(t, gotRecords, 2, "save replaces the whole set")
			next, err = b.LoadNextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(13), next, "next id never decreases")

			rekeyed := sampleKeyRecord()
			rekeyed.Salt = bytes.Repeat([]byte{9}, crypto.SaltSize)
			require.NoError(t, b.Rekey(ctx, rekeyed, sampleRecords(4)))
			got, err = b.LoadMasterKeyRecord(ctx)
			require.NoError(t, err)
			assert.Equal(t, rekeyed.Salt, got.Salt)
			gotRecords, err = b.LoadEntries(ctx)
			require.NoError(t, err)
			assert.Len(t, gotRecords, 4)

			require.NoError(t, b.Clear(ctx))
			gotRecords, err = b.LoadEntries(ctx)
			require.NoError(t, err)
			assert.Empty(t, gotRecords)
			got, err = b.LoadMasterKeyRecord(ctx)
			require.NoError(t, err)
			assert.NotNil(t, got, "clear keeps the master record")
			next, err = b.LoadNextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(13), next, "clear keeps the next id")

			id1, err := b.GetOrCreateVaultID(ctx)
			require.NoError(t, err)
			id2, err := b.GetOrCreateVaultID(ctx)
			require.NoError(t, err)
			assert.Equal(t, id1, id2)
			assert.Len(t, id1, 36)

			require.NoError(t, b.Compact(ctx))
			got, err = b.LoadMasterKeyRecord(ctx)
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestBackend_Persists(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []Kind{KindBolt, KindSQLite} {
		t.Run(string(kind), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vault")

			b, err := Open(ctx, kind, path)
			require.NoError(t, err)
			require.NoError(t, b.SaveEntries(ctx, sampleRecords(3), 9))
			require.NoError(t, b.Close())

			b, err = Open(ctx, kind, path)
			require.NoError(t, err)
			defer b.Close()
			records, err := b.LoadEntries(ctx)
			require.NoError(t, err)
			assert.Len(t, records, 3)
			next, err := b.LoadNextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(9), next)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindBolt, k)

	k, err = ParseKind("SQLite")
	require.NoError(t, err)
	assert.Equal(t, KindSQLite, k)

	_, err = ParseKind("postgres")
	assert.Error(t, err)

	_, err = Open(context.Background(), Kind("postgres"), "x")
	assert.Error(t, err)
}
