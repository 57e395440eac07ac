package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv(FileEnv, "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".passlock", "vault.db"), cfg.Vault.Path)
	assert.Equal(t, storage.KindBolt, cfg.Vault.Backend)
	assert.Equal(t, crypto.CipherAESGCM, cfg.Vault.Cipher)
	assert.Equal(t, session.DefaultAutoLockMinutes, cfg.Session.AutoLockMinutes)
	assert.True(t, cfg.Session.RequireMasterPassword)
	assert.Equal(t, time.Minute, cfg.Session.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Clipboard.ClearAfter)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.File)

	st := cfg.SessionDefaults()
	assert.Equal(t, session.Locked, st.Status)
	assert.Equal(t, session.DefaultAutoLockMinutes, st.AutoLockMinutes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
vault:
  path: /tmp/custom.db
  backend: sqlite
  cipher: chacha20-poly1305
session:
  auto_lock_minutes: 10
  require_master_password: false
log:
  level: debug
`), 0600))

	t.Setenv(FileEnv, file)
	t.Setenv("PASSLOCK_SESSION_AUTO_LOCK_MINUTES", "15")
	t.Setenv("PASSLOCK_CLIPBOARD_CLEAR_AFTER", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, file, cfg.File)
	assert.Equal(t, "/tmp/custom.db", cfg.Vault.Path)
	assert.Equal(t, storage.KindSQLite, cfg.Vault.Backend)
	assert.Equal(t, crypto.CipherChaCha20Poly1305, cfg.Vault.Cipher)
	assert.Equal(t, 15, cfg.Session.AutoLockMinutes, "env overrides file")
	assert.False(t, cfg.Session.RequireMasterPassword)
	assert.Equal(t, 5*time.Second, cfg.Clipboard.ClearAfter)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := isolate(t)
	t.Setenv("PASSLOCK_VAULT_PATH", "~/vaults/work.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "vaults", "work.db"), cfg.Vault.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"unknown backend", "PASSLOCK_VAULT_BACKEND", "postgres"},
		{"unknown cipher", "PASSLOCK_VAULT_CIPHER", "des"},
		{"zero auto-lock", "PASSLOCK_SESSION_AUTO_LOCK_MINUTES", "0"},
		{"negative tick", "PASSLOCK_SESSION_TICK_INTERVAL", "-1s"},
		{"bad log level", "PASSLOCK_LOG_LEVEL", "loud"},
		{"bad log format", "PASSLOCK_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
