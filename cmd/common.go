package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/illarion/passlock/internal/config"
	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/keyring"
	"github.com/illarion/passlock/internal/logging"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/session"
	"github.com/illarion/passlock/internal/storage"
	"golang.org/x/term"
)

const maxPasswordAttempts = 3

var (
	appConfig *config.Config
	appLog    logging.Logger = logging.Nop()
)

var errNoEnvPassword = errors.New(core.PasswordEnv + " not set")

// Setup loads the configuration and logger used by every command.
func Setup(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	appConfig = cfg
	appLog = log
	return nil
}

func envPassword(context.Context) ([]byte, error) {
	if p := core.GetPasswordFromEnv(); p != nil {
		return p, nil
	}
	return nil, errNoEnvPassword
}

// openVault opens the configured vault. Unless create is set, a missing
// vault file is reported as not initialized.
func openVault(ctx context.Context, create bool) (*core.Vault, string) {
	path := appConfig.Vault.Path
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			HandleError(err)
		}
		if !create {
			HandleError(core.ErrNotInitialized)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			HandleError(fmt.Errorf("failed to create vault directory: %w", err))
		}
	}

	store, err := storage.Open(ctx, appConfig.Vault.Backend, path)
	if err != nil {
		HandleError(err)
	}

	vaultID, err := store.GetOrCreateVaultID(ctx)
	if err != nil {
		store.Close()
		HandleError(err)
	}

	defaults := appConfig.SessionDefaults()
	v, err := core.New(ctx, store, core.Config{
		Logger:     appLog,
		Cipher:     appConfig.Vault.Cipher,
		Defaults:   &defaults,
		AutoUnlock: keyring.Source(vaultID, envPassword),
	})
	if err != nil {
		store.Close()
		HandleError(err)
	}
	if !create && !v.Initialized() {
		v.Close(ctx)
		HandleError(core.ErrNotInitialized)
	}
	return v, vaultID
}

func closeVault(ctx context.Context, v *core.Vault) {
	if err := v.Close(ctx); err != nil {
		appLog.Warn(ctx, "failed to close vault", "error", err)
	}
}

// GetPassword retrieves password from environment or prompts user
// The caller is responsible for calling crypto.ClearBytes on the returned password
func GetPassword(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// GetPasswordForInit retrieves password for init command
// Checks environment variable first, then prompts with confirmation
func GetPasswordForInit() ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm("Enter master password: ")
}

// GetPasswordWithRetry unlocks v with the first working password from the
// keyring, PASSLOCK_PASSWORD or the terminal. A stale keyring entry falls
// through to a prompt. It returns the password and whether it came from
// the keyring; the caller must clear it.
func GetPasswordWithRetry(ctx context.Context, v *core.Vault, prompt, vaultID string) ([]byte, bool, error) {
	if vaultID != "" {
		if stored, err := keyring.GetPassword(vaultID); err == nil && stored != "" {
			password := []byte(stored)
			err := v.Unlock(ctx, password)
			if err == nil {
				return password, true, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, crypto.ErrVerificationFailed) {
				return nil, false, err
			}
			Warning("password in keyring is stale (run: passlock keyring save)")
		}
	}

	if password := core.GetPasswordFromEnv(); password != nil {
		if err := v.Unlock(ctx, password); err != nil {
			crypto.ClearBytes(password)
			return nil, false, err
		}
		return password, false, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, false, fmt.Errorf("no password available: set %s or run in a terminal", core.PasswordEnv)
	}

	var lastErr error
	for range maxPasswordAttempts {
		password, err := core.ReadPassword(prompt)
		if err != nil {
			return nil, false, err
		}
		lastErr = v.Unlock(ctx, password)
		if lastErr == nil {
			return password, false, nil
		}
		crypto.ClearBytes(password)
		if !errors.Is(lastErr, crypto.ErrVerificationFailed) && !errors.Is(lastErr, crypto.ErrInvalidPassword) {
			return nil, false, lastErr
		}
		fmt.Fprintln(os.Stderr, "Wrong password, try again")
	}
	return nil, false, lastErr
}

// ensureUnlocked makes sure the session is open, asking for the master
// password when it cannot unlock itself.
func ensureUnlocked(ctx context.Context, v *core.Vault, vaultID string) error {
	err := v.Ready(ctx)
	if err == nil || !errors.Is(err, session.ErrSessionLocked) {
		return err
	}
	password, _, err := GetPasswordWithRetry(ctx, v, "Enter master password: ", vaultID)
	if err != nil {
		return err
	}
	crypto.ClearBytes(password)
	return nil
}

func unlockOrExit(ctx context.Context, v *core.Vault, vaultID string) {
	if err := ensureUnlocked(ctx, v, vaultID); err != nil {
		HandleError(err)
	}
}

// OfferToSavePassword asks to remember password in the OS keyring when
// running interactively and nothing is stored yet.
func OfferToSavePassword(vaultID string, password []byte) {
	if vaultID == "" || !term.IsTerminal(int(os.Stdin.Fd())) || core.GetPasswordFromEnv() != nil {
		return
	}
	if keyring.HasPassword(vaultID) {
		return
	}
	if !PromptConfirm("Save password to OS keyring?") {
		return
	}
	if err := keyring.SavePassword(vaultID, string(password)); err != nil {
		Warning("failed to save to keyring: %s", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// errorMessage maps known errors to user-facing text.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return "vault not initialized\nRun 'passlock init' first"
	case errors.Is(err, core.ErrAlreadyExists):
		return "vault already exists at " + appConfig.Vault.Path + "\nUse 'passlock status' to see current state"
	case errors.Is(err, crypto.ErrVerificationFailed):
		return "wrong password"
	case errors.Is(err, crypto.ErrInvalidPassword):
		return "password must not be empty"
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return "vault data could not be decrypted"
	case errors.Is(err, session.ErrSessionLocked):
		return "vault is locked"
	case errors.Is(err, session.ErrInvalidPolicy):
		return "auto-lock timeout must be at least 1 minute"
	case errors.Is(err, storage.ErrVaultBusy):
		return "vault is in use by another process (is 'passlock shell' running?)"
	case errors.Is(err, passgen.ErrEmptyCharacterPool):
		return "no character classes selected\nUse --classes lower,upper,digit,symbol"
	default:
		return err.Error()
	}
}

// HandleError handles common errors consistently
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
	os.Exit(1)
}
