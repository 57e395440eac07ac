// Package config provides passlock configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/logging"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/storage"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. PASSLOCK_VAULT_PATH.
	EnvPrefix = "PASSLOCK"
	// FileEnv names a config file to use instead of the default one.
	FileEnv = "PASSLOCK_CONFIG"

	defaultDir = ".passlock"
)

// Config holds all application configuration.
type Config struct {
	Vault     VaultConfig
	Session   SessionConfig
	Clipboard ClipboardConfig
	Log       LogConfig

	// File is the config file that was read, empty if none.
	File string
}

// VaultConfig selects where and how the vault is stored.
type VaultConfig struct {
	Path    string
	Backend storage.Kind
	Cipher  crypto.Cipher
}

// SessionConfig seeds the session policy of a new vault.
type SessionConfig struct {
	AutoLockMinutes       int
	RequireMasterPassword bool
	TickInterval          time.Duration
}

// ClipboardConfig holds clipboard settings.
type ClipboardConfig struct {
	ClearAfter time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from defaults, an optional YAML file and
// PASSLOCK_* environment variables, in increasing priority. An empty file
// selects $PASSLOCK_CONFIG or ~/.passlock/config.yaml.
func Load(file string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = os.Getenv(FileEnv)
		explicit = file != ""
	}
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			file = filepath.Join(home, defaultDir, "config.yaml")
		}
	}

	cfg := &Config{}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		err := v.ReadInConfig()
		switch {
		case err == nil:
			cfg.File = file
		case !explicit && errors.Is(err, os.ErrNotExist):
			// The default file is optional.
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	backend, err := storage.ParseKind(v.GetString("vault.backend"))
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.ParseCipher(v.GetString("vault.cipher"))
	if err != nil {
		return nil, err
	}
	path, err := expandHome(v.GetString("vault.path"))
	if err != nil {
		return nil, err
	}

	cfg.Vault = VaultConfig{
		Path:    path,
		Backend: backend,
		Cipher:  cipher,
	}
	cfg.Session = SessionConfig{
		AutoLockMinutes:       v.GetInt("session.auto_lock_minutes"),
		RequireMasterPassword: v.GetBool("session.require_master_password"),
		TickInterval:          v.GetDuration("session.tick_interval"),
	}
	cfg.Clipboard = ClipboardConfig{
		ClearAfter: v.GetDuration("clipboard.clear_after"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Vault defaults
	v.SetDefault("vault.path", filepath.Join("~", defaultDir, "vault.db"))
	v.SetDefault("vault.backend", string(storage.KindBolt))
	v.SetDefault("vault.cipher", string(crypto.CipherAESGCM))

	// Session defaults
	v.SetDefault("session.auto_lock_minutes", session.DefaultAutoLockMinutes)
	v.SetDefault("session.require_master_password", true)
	v.SetDefault("session.tick_interval", session.DefaultTickInterval)

	v.SetDefault("clipboard.clear_after", 30*time.Second)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Vault.Path == "" {
		return fmt.Errorf("vault path is required")
	}
	if _, err := storage.ParseKind(string(c.Vault.Backend)); err != nil {
		return err
	}
	if _, err := crypto.ParseCipher(string(c.Vault.Cipher)); err != nil {
		return err
	}
	if c.Session.AutoLockMinutes < 1 {
		return fmt.Errorf("session.auto_lock_minutes must be positive (got %d)", c.Session.AutoLockMinutes)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("session.tick_interval must be positive (got %s)", c.Session.TickInterval)
	}
	if c.Clipboard.ClearAfter < 0 {
		return fmt.Errorf("clipboard.clear_after must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SessionDefaults returns the session policy seeded into a new vault.
func (c *Config) SessionDefaults() session.State {
	return session.State{
		Status:                session.Locked,
		AutoLockMinutes:       c.Session.AutoLockMinutes,
		RequireMasterPassword: c.Session.RequireMasterPassword,
	}
}
