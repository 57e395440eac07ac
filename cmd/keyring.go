package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/keyring"
)

// KeyringSave saves the master password to the OS keyring
func KeyringSave(ctx context.Context) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	password, err := core.ReadPassword("Enter master password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	// Verify password is correct
	if err := v.Unlock(ctx, password); err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(vaultID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	Success("Password saved to keyring")
}

// KeyringDelete removes the master password from the OS keyring
func KeyringDelete(ctx context.Context) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	if err := keyring.DeletePassword(vaultID); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	if !v.Settings().RequireMasterPassword {
		Warning("master password not required but nothing left to unlock with; set %s or run: passlock settings --require-password=true", core.PasswordEnv)
	}
	Success("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus(ctx context.Context) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	if keyring.HasPassword(vaultID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
