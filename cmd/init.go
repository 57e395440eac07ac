package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/strength"
)

// Init creates the vault and sets the master password
func Init(ctx context.Context) {
	v, vaultID := openVault(ctx, true)
	defer closeVault(ctx, v)

	if v.Initialized() {
		HandleError(core.ErrAlreadyExists)
	}

	password, err := GetPasswordForInit()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if score, label := strength.Score(string(password)); label == strength.Weak {
		Warning("master password is weak (score %d/100)", score)
	}

	if err := v.Init(ctx, password); err != nil {
		HandleError(err)
	}

	Success("Initialized vault at %s", appConfig.Vault.Path)
	fmt.Printf("  backend: %s, cipher: %s\n", appConfig.Vault.Backend, appConfig.Vault.Cipher)

	OfferToSavePassword(vaultID, password)
}
