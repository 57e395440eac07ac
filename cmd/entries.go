package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/strength"
	"golang.org/x/term"
)

// EntryFields carries entry values given as flags. Nil fields were not
// given and are prompted for when adding.
type EntryFields struct {
	Website  *string
	Username *string
	Category *string
	Notes    *string

	Generate       int    // Generate a password of this length
	Classes        string // Character classes for Generate
	PromptPassword bool   // Ask for a new password when editing
}

// Add stores a new entry
func Add(ctx context.Context, f EntryFields) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	e, err := addEntry(ctx, v, f)
	if err != nil {
		HandleError(err)
	}
	Success("Added entry #%d (%s)", e.ID, e.Website)
}

func addEntry(ctx context.Context, v *core.Vault, f EntryFields) (core.Entry, error) {
	var e core.Entry
	var err error

	if e.Website, err = fieldOrPrompt(f.Website, "Website", ""); err != nil {
		return e, err
	}
	if e.Username, err = fieldOrPrompt(f.Username, "Username", ""); err != nil {
		return e, err
	}
	if e.Category, err = fieldOrPrompt(f.Category, "Category", core.DefaultCategory); err != nil {
		return e, err
	}
	if e.Notes, err = fieldOrPrompt(f.Notes, "Notes", ""); err != nil {
		return e, err
	}

	if f.Generate == 0 {
		f.PromptPassword = true
	}
	if e.Secret, err = newSecret(v, f, e.Website, e.Username); err != nil {
		return e, err
	}

	return v.Add(ctx, e)
}

func fieldOrPrompt(value *string, prompt, def string) (string, error) {
	if value != nil {
		return *value, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return def, nil
	}
	return readLineDefault(prompt, def)
}

// newSecret generates or prompts for a password as f asks. It returns ""
// when neither is requested.
func newSecret(v *core.Vault, f EntryFields, userInputs ...string) (string, error) {
	if f.Generate > 0 {
		classes := passgen.All
		if f.Classes != "" {
			var err error
			if classes, err = passgen.ParseClasses(f.Classes); err != nil {
				return "", err
			}
		}
		secret, err := v.GeneratePassword(f.Generate, classes)
		if err != nil {
			return "", err
		}
		printStrength(secret, userInputs...)
		return secret, nil
	}

	if !f.PromptPassword {
		return "", nil
	}
	password, err := core.ReadPasswordConfirm("Password: ")
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(password)
	secret := string(password)
	printStrength(secret, userInputs...)
	return secret, nil
}

func printStrength(password string, userInputs ...string) {
	r := strength.Analyze(password, userInputs...)
	c := labelColor(string(r.Label))
	fmt.Printf("Strength: %s (%d/100)\n", c.Sprint(r.Label), r.Score)
}

// Ls lists entries, or those matching query
func Ls(ctx context.Context, query, category string, show bool) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	if err := listEntries(ctx, v, os.Stdout, query, category, show); err != nil {
		HandleError(err)
	}
}

func listEntries(ctx context.Context, v *core.Vault, w io.Writer, query, category string, show bool) error {
	var entries []core.Entry
	var err error
	if query != "" {
		entries, err = v.Search(ctx, query)
	} else {
		entries, err = v.List(ctx, category)
	}
	if err != nil {
		return err
	}

	if query != "" && category != "" {
		category = strings.ToLower(category)
		filtered := entries[:0]
		for _, e := range entries {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "ID\tWEBSITE\tUSERNAME\tCATEGORY"
	if show {
		header += "\tPASSWORD"
	}
	fmt.Fprintln(tw, header)
	for _, e := range entries {
		if !show {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Website, e.Username, e.Category)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Website, e.Username, e.Category, e.Secret)
	}
	return tw.Flush()
}

// Get shows a single entry, or copies its password to the clipboard
func Get(ctx context.Context, idArg string, copyPassword, show bool) {
	id, err := parseID(idArg)
	if err != nil {
		HandleError(err)
	}

	e, err := fetchEntry(ctx, id)
	if err != nil {
		HandleError(err)
	}
	printEntry(e, show)

	if copyPassword {
		// The vault is closed by now; only the clipboard clear is pending.
		if err := copyAndWait(ctx, systemClipboard{}, e.Secret, appConfig.Clipboard.ClearAfter); err != nil {
			HandleError(err)
		}
	}
}

// fetchEntry reads one entry and closes the vault before returning, so
// other processes can open it while the caller keeps running.
func fetchEntry(ctx context.Context, id uint64) (core.Entry, error) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)

	if err := ensureUnlocked(ctx, v, vaultID); err != nil {
		return core.Entry{}, err
	}
	return v.Get(ctx, id)
}

func printEntry(e core.Entry, show bool) {
	if !show {
		e = e.Masked()
	}
	PrintKeyValue("ID", fmt.Sprint(e.ID))
	PrintKeyValue("Website", e.Website)
	PrintKeyValue("Username", e.Username)
	PrintKeyValue("Password", e.Secret)
	PrintKeyValue("Category", e.Category)
	if e.Notes != "" {
		PrintKeyValue("Notes", strings.ReplaceAll(e.Notes, "\n", "\n"+strings.Repeat(" ", 15)))
	}
	PrintKeyValue("Created", e.CreatedAt.Local().Format("2006-01-02 15:04"))
	if !e.UpdatedAt.Equal(e.CreatedAt) {
		PrintKeyValue("Updated", e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// Edit updates the given fields of an entry
func Edit(ctx context.Context, idArg string, f EntryFields) {
	id, err := parseID(idArg)
	if err != nil {
		HandleError(err)
	}

	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	e, err := editEntry(ctx, v, id, f)
	if err != nil {
		HandleError(err)
	}
	Success("Updated entry #%d (%s)", e.ID, e.Website)
}

func editEntry(ctx context.Context, v *core.Vault, id uint64, f EntryFields) (core.Entry, error) {
	e, err := v.Get(ctx, id)
	if err != nil {
		return e, err
	}

	changed := false
	for _, field := range []struct {
		value *string
		dst   *string
	}{
		{f.Website, &e.Website},
		{f.Username, &e.Username},
		{f.Category, &e.Category},
		{f.Notes, &e.Notes},
	} {
		if field.value != nil {
			*field.dst = *field.value
			changed = true
		}
	}

	secret, err := newSecret(v, f, e.Website, e.Username)
	if err != nil {
		return e, err
	}
	if secret != "" {
		e.Secret = secret
		changed = true
	}

	if !changed {
		return e, fmt.Errorf("nothing to change\nUse --website, --username, --category, --notes, --password or --generate")
	}
	return v.Update(ctx, e)
}

// Remove deletes entries by id
func Remove(ctx context.Context, args []string, force bool) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one entry id\n")
		fmt.Fprintf(os.Stderr, "Usage: passlock rm <id> [id...]\n")
		os.Exit(1)
	}
	ids, err := parseIDs(args)
	if err != nil {
		HandleError(err)
	}

	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	if err := removeEntries(ctx, v, ids, force); err != nil {
		HandleError(err)
	}
}

func removeEntries(ctx context.Context, v *core.Vault, ids []uint64, force bool) error {
	if !force {
		fmt.Println("Entries to remove:")
		for _, id := range ids {
			e, err := v.Get(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("  #%d %s (%s)\n", e.ID, e.Website, e.Username)
		}
		if !PromptConfirm(fmt.Sprintf("Remove %d entr%s?", len(ids), plural(len(ids), "y", "ies"))) {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := v.Remove(ctx, ids...); err != nil {
		return err
	}
	Success("Removed %d entr%s", len(ids), plural(len(ids), "y", "ies"))
	return nil
}

// Clear deletes every entry, keeping the master password and settings
func Clear(ctx context.Context, force bool) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	if !force && !PromptConfirm("Delete ALL entries? This cannot be undone.") {
		fmt.Println("Cancelled")
		return
	}
	if err := v.Clear(ctx); err != nil {
		HandleError(err)
	}

	// Deleted ciphertext lingers in free pages until compaction.
	if err := v.Compact(ctx); err != nil {
		Warning("compaction failed: %s", err)
	}
	Success("All entries deleted")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
