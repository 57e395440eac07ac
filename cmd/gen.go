package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/strength"
)

// DefaultGenerateLength is used when gen is given no length
const DefaultGenerateLength = 16

// Gen prints a random password. It does not open the vault.
func Gen(ctx context.Context, length int, classes string, copyPassword bool) {
	c, err := passgen.ParseClasses(classes)
	if err != nil {
		HandleError(err)
	}

	password, err := passgen.Generate(length, c)
	if err != nil {
		HandleError(err)
	}

	fmt.Println(password)
	r := strength.Analyze(password)
	fmt.Fprintf(os.Stderr, "%s %s (%d/100)\n", Dim("strength:"), labelColor(string(r.Label)).Sprint(r.Label), r.Score)

	if copyPassword {
		if err := copyAndWait(ctx, systemClipboard{}, password, appConfig.Clipboard.ClearAfter); err != nil {
			HandleError(err)
		}
	}
}

// Strength scores a password given as an argument or read from the terminal
func Strength(_ context.Context, args []string) {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		p, err := core.ReadPassword("Password to check: ")
		if err != nil {
			HandleError(err)
		}
		password = string(p)
		crypto.ClearBytes(p)
	}

	printReport(strength.Analyze(password))
}

func printReport(r strength.Report) {
	c := labelColor(string(r.Label))
	PrintKeyValue("Score", fmt.Sprintf("%d/100", r.Score))
	PrintKeyValue("Strength", c.Sprint(r.Label.Feedback()))
	if r.Label == strength.NoPassword {
		return
	}
	PrintKeyValue("Entropy", fmt.Sprintf("%.1f bits", r.Entropy))
	PrintKeyValue("zxcvbn", fmt.Sprintf("%d/4", r.Rating))
	PrintKeyValue("Crack time", r.CrackTime)
}
