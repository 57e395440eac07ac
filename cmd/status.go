package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/keyring"
	"github.com/illarion/passlock/internal/session"
)

// Status shows the current state of the vault (no password required)
func Status(ctx context.Context) {
	if _, err := os.Stat(appConfig.Vault.Path); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No vault found at %s\n", appConfig.Vault.Path)
			fmt.Println("Run 'passlock init' to create one")
			return
		}
		HandleError(err)
	}

	v, vaultID := openVault(ctx, true)
	defer closeVault(ctx, v)

	status, err := v.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	PrintKeyValue("Vault", appConfig.Vault.Path)
	PrintKeyValue("Backend", string(appConfig.Vault.Backend))
	if !status.Initialized {
		PrintKeyValue("Initialized", "no (run: passlock init)")
		return
	}
	PrintKeyValue("Cipher", string(status.Cipher))
	PrintKeyValue("KDF", fmt.Sprintf("PBKDF2-HMAC-SHA256, %d iterations", status.Iterations))
	PrintKeyValue("Created", status.Created.Local().Format(time.RFC3339))
	if !status.Modified.IsZero() {
		PrintKeyValue("Modified", status.Modified.Local().Format(time.RFC3339))
	}
	PrintKeyValue("Entries", fmt.Sprint(status.EntryCount))

	fmt.Println()
	printSession(status.Session, status.Locked)

	if keyring.HasPassword(vaultID) {
		PrintKeyValue("Keyring", "password stored")
	} else {
		PrintKeyValue("Keyring", "not stored")
	}
}

func printSession(st session.State, locked bool) {
	state := successColor.Sprint("unlocked")
	if locked {
		state = warningColor.Sprint("locked")
	}
	PrintKeyValue("Session", state)
	if !st.LastActivity.IsZero() {
		PrintKeyValue("Last activity", st.LastActivity.Local().Format(time.RFC3339))
	}
	PrintKeyValue("Auto-lock", fmt.Sprintf("%d min", st.AutoLockMinutes))
	if st.RequireMasterPassword {
		PrintKeyValue("Require pw", "yes")
	} else {
		PrintKeyValue("Require pw", "no (unlocks from keyring or "+core.PasswordEnv+")")
	}
}

// Settings updates the auto-lock policy. A zero autoLock or nil require
// leaves that setting unchanged.
func Settings(ctx context.Context, autoLock int, require *bool) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	if err := updateSettings(ctx, v, autoLock, require, vaultID); err != nil {
		HandleError(err)
	}
}

func updateSettings(ctx context.Context, v *core.Vault, autoLock int, require *bool, vaultID string) error {
	st := v.Settings()
	if autoLock == 0 && require == nil {
		printSession(st, v.IsLocked())
		return nil
	}

	// Changing the policy needs an open session.
	if err := ensureUnlocked(ctx, v, vaultID); err != nil {
		return err
	}

	minutes := st.AutoLockMinutes
	if autoLock != 0 {
		minutes = autoLock
	}
	req := st.RequireMasterPassword
	if require != nil {
		req = *require
	}
	if err := v.Configure(ctx, minutes, req); err != nil {
		return err
	}

	if !req && !keyring.HasPassword(vaultID) && core.GetPasswordFromEnv() == nil {
		Warning("no password in keyring or %s; the vault will keep asking for it", core.PasswordEnv)
	}
	Success("Settings updated")
	printSession(v.Settings(), v.IsLocked())
	return nil
}

// Lock locks the session and discards the key
func Lock(ctx context.Context) {
	v, _ := openVault(ctx, false)
	defer closeVault(ctx, v)

	if err := v.Lock(ctx); err != nil {
		HandleError(err)
	}
	if !v.Settings().RequireMasterPassword {
		Warning("master password not required; the vault unlocks itself when a stored password is available (run: passlock settings --require-password=true)")
		return
	}
	Success("Vault locked")
}
