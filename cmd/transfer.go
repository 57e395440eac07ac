package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/git"
	"github.com/illarion/passlock/internal/security"
	"golang.org/x/term"
)

// DefaultExportName returns the file name used when export is given none.
func DefaultExportName(now time.Time) string {
	return "password-manager-export-" + now.Format("2006-01-02") + ".json"
}

// Export writes every entry, passwords included, to a JSON file
func Export(ctx context.Context, out string, force bool) {
	if out == "" {
		out = DefaultExportName(time.Now())
	}

	pv, name, err := security.ForFile(out)
	if err != nil {
		HandleError(err)
	}
	defer pv.Close()

	if status, err := git.CheckExport(out); err == nil {
		for _, w := range status.Warnings() {
			Warning("%s", w)
		}
	}

	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	data, err := v.Export(ctx)
	if err != nil {
		HandleError(err)
	}

	if err := pv.WriteFileInRoot(name, data, 0600, force); err != nil {
		if errors.Is(err, security.ErrFileExists) {
			HandleError(fmt.Errorf("%s already exists (use --force to overwrite)", out))
		}
		HandleError(err)
	}

	Success("Exported vault to %s", out)
	Warning("the export contains your passwords in plain text")
}

func readExport(path string) ([]byte, error) {
	pv, name, err := security.ForFile(path)
	if err != nil {
		return nil, err
	}
	defer pv.Close()
	return pv.ReadFileInRoot(name)
}

// Import adds entries from an export file
func Import(ctx context.Context, path, mode, strategy string, reveal, force bool) {
	m, err := core.ParseImportMode(mode)
	if err != nil {
		HandleError(err)
	}
	s, err := core.ParseStrategy(strategy)
	if err != nil {
		HandleError(err)
	}
	if s == core.StrategyAsk && !term.IsTerminal(int(os.Stdin.Fd())) {
		HandleError(fmt.Errorf("conflicts need a terminal to ask; use --strategy keep-local, use-import, keep-both or abort"))
	}

	data, err := readExport(path)
	if err != nil {
		HandleError(err)
	}

	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	if m == core.ImportReplace && !force {
		if !PromptConfirm("Replace ALL vault entries with the import?") {
			fmt.Println("Cancelled")
			return
		}
	}

	res, err := v.Import(ctx, data, core.ImportOptions{
		Mode:     m,
		Strategy: s,
		Resolve:  core.PromptResolver(os.Stdin, os.Stdout, reveal),
	})
	if err != nil {
		HandleError(err)
	}

	Success("Imported %s", path)
	fmt.Printf("  %d added, %d updated, %d kept, %d unchanged\n", res.Added, res.Updated, res.Skipped, res.Unchanged)
}

// Diff compares the vault with an export file
func Diff(ctx context.Context, path string, reveal bool) {
	data, err := readExport(path)
	if err != nil {
		HandleError(err)
	}

	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	out, err := v.Diff(ctx, data, reveal)
	if err != nil {
		HandleError(err)
	}
	if out == "" {
		fmt.Println("No differences")
		return
	}
	printDiff(out)
}

func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			fmt.Println(Bold("%s", line))
		case strings.HasPrefix(line, "@@"):
			infoColor.Println(line)
		case strings.HasPrefix(line, "-"):
			errorColor.Println(line)
		case strings.HasPrefix(line, "+"):
			successColor.Println(line)
		default:
			fmt.Println(line)
		}
	}
}
