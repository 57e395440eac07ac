package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/keyring"
)

// Passwd changes the master password and re-encrypts every entry
func Passwd(ctx context.Context) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	// Get current password with retry on stale keyring
	currentPassword, _, err := GetPasswordWithRetry(ctx, v, "Enter current password: ", vaultID)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPassword)

	if err := v.ChangePassword(ctx, currentPassword, newPassword); err != nil {
		HandleError(err)
	}

	// Update an existing keyring entry so auto-unlock keeps working
	if keyring.HasPassword(vaultID) {
		if err := keyring.SavePassword(vaultID, string(newPassword)); err != nil {
			Warning("failed to update keyring: %s", err)
		} else {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Old ciphertext lingers in free pages until compaction
	if err := v.Compact(ctx); err != nil {
		Warning("compaction failed: %s", err)
	}

	Success("Master password changed")
}
