package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/illarion/passlock/internal/core"
	"github.com/illarion/passlock/internal/crypto"
	"github.com/illarion/passlock/internal/passgen"
	"github.com/illarion/passlock/internal/strength"
)

const shellPrompt = "passlock> "

var errShellExit = errors.New("exit")

// shell is an interactive session over one open vault. Secrets it copies
// are cleared when it exits or the vault locks.
type shell struct {
	v       *core.Vault
	vaultID string
	clip    *pendingClear
}

// Shell runs an interactive session that keeps the key in memory until
// the vault is locked by hand or by the auto-lock timer.
func Shell(ctx context.Context) {
	v, vaultID := openVault(ctx, false)
	defer closeVault(ctx, v)
	unlockOrExit(ctx, v, vaultID)

	sh := &shell{v: v, vaultID: vaultID, clip: newPendingClear(systemClipboard{})}
	stop := sh.startTicker(ctx, appConfig.Session.TickInterval)
	defer stop()

	fmt.Printf("Vault %s unlocked. Type 'help' for commands.\n", appConfig.Vault.Path)
	sh.run(ctx, readLine)
}

// run reads and executes commands until exit or end of input.
func (sh *shell) run(ctx context.Context, read func(prompt string) (string, error)) {
	defer sh.clip.Flush()

	for {
		line, err := read(shellPrompt)
		if err != nil {
			fmt.Println()
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		err = sh.command(ctx, args)
		if errors.Is(err, errShellExit) {
			return
		}
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		}
	}
}

// startTicker runs tick every interval and reports auto-locks. An
// interrupt clears the clipboard, locks the vault and ends the process,
// since the prompt is blocked on stdin. The returned func stops the
// ticker and waits for it.
func (sh *shell) startTicker(ctx context.Context, interval time.Duration) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				bg := context.WithoutCancel(ctx)
				fmt.Println()
				sh.clip.Flush()
				closeVault(bg, sh.v)
				os.Exit(130)
			case <-t.C:
				locked, err := sh.tick(ctx)
				if err != nil {
					appLog.Warn(ctx, "auto-lock check failed", "error", err)
				}
				if locked {
					fmt.Printf("\n%s\n%s", warningColor.Sprint("Vault locked after inactivity"), shellPrompt)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// tick applies the auto-lock timeout and clears a copied secret when the
// vault locks.
func (sh *shell) tick(ctx context.Context) (bool, error) {
	locked, err := sh.v.Tick(ctx)
	if locked {
		sh.clip.Flush()
	}
	return locked, err
}

func (sh *shell) copy(secret string) error {
	clearAfter := appConfig.Clipboard.ClearAfter
	if err := sh.clip.Copy(secret, clearAfter); err != nil {
		return err
	}
	if clearAfter > 0 {
		fmt.Printf("Password copied to clipboard. Clearing in %s\n", clearAfter)
	} else {
		fmt.Println("Password copied to clipboard")
	}
	return nil
}

// shellNeedsVault lists commands that read or change entries.
var shellNeedsVault = map[string]bool{
	"ls": true, "list": true, "get": true, "add": true, "edit": true, "rm": true,
}

func (sh *shell) command(ctx context.Context, args []string) error {
	v, vaultID := sh.v, sh.vaultID
	name, args := args[0], args[1:]

	if shellNeedsVault[name] {
		if v.IsLocked() {
			fmt.Println("Vault is locked")
		}
		if err := ensureUnlocked(ctx, v, vaultID); err != nil {
			return err
		}
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	switch name {
	case "exit", "quit":
		return errShellExit

	case "help", "?":
		printShellHelp(os.Stdout)
		return nil

	case "ls", "list":
		show := fs.Bool("show", false, "Show passwords")
		category := fs.String("category", "", "Only list this category")
		rest, err := ParseArgs(fs, args)
		if err != nil {
			return err
		}
		return listEntries(ctx, v, os.Stdout, strings.Join(rest, " "), *category, *show)

	case "get":
		copyPassword := fs.Bool("copy", false, "Copy the password to the clipboard")
		show := fs.Bool("show", false, "Show the password")
		rest, err := ParseArgs(fs, args)
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("usage: get <id> [--copy] [--show]")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		e, err := v.Get(ctx, id)
		if err != nil {
			return err
		}
		printEntry(e, *show)
		if *copyPassword {
			return sh.copy(e.Secret)
		}
		return nil

	case "add":
		fields := EntryFlags(fs)
		if _, err := ParseArgs(fs, args); err != nil {
			return err
		}
		e, err := addEntry(ctx, v, fields())
		if err != nil {
			return err
		}
		Success("Added entry #%d (%s)", e.ID, e.Website)
		return nil

	case "edit":
		fields := EntryFlags(fs)
		rest, err := ParseArgs(fs, args)
		if err != nil {
			return err
		}
		if len(rest) != 1 {
			return fmt.Errorf("usage: edit <id> [--website ...] [--password | --generate N]")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		e, err := editEntry(ctx, v, id, fields())
		if err != nil {
			return err
		}
		Success("Updated entry #%d (%s)", e.ID, e.Website)
		return nil

	case "rm":
		force := fs.Bool("force", false, "Do not ask for confirmation")
		rest, err := ParseArgs(fs, args)
		if err != nil {
			return err
		}
		if len(rest) == 0 {
			return fmt.Errorf("usage: rm <id> [id...]")
		}
		ids, err := parseIDs(rest)
		if err != nil {
			return err
		}
		return removeEntries(ctx, v, ids, *force)

	case "gen":
		length := fs.Int("n", DefaultGenerateLength, "Password length")
		classes := fs.String("classes", "all", "Character classes")
		copyPassword := fs.Bool("copy", false, "Copy to the clipboard")
		if _, err := ParseArgs(fs, args); err != nil {
			return err
		}
		c, err := passgen.ParseClasses(*classes)
		if err != nil {
			return err
		}
		password, err := v.GeneratePassword(*length, c)
		if err != nil {
			return err
		}
		fmt.Println(password)
		if *copyPassword {
			return sh.copy(password)
		}
		return nil

	case "strength":
		if len(args) == 0 {
			password, err := core.ReadPassword("Password to check: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)
			printReport(strength.Analyze(string(password)))
			return nil
		}
		printReport(strength.Analyze(strings.Join(args, " ")))
		return nil

	case "lock":
		sh.clip.Flush()
		if err := v.Lock(ctx); err != nil {
			return err
		}
		if !v.Settings().RequireMasterPassword {
			Warning("master password not required; the vault unlocks itself when a stored password is available")
			return nil
		}
		Success("Vault locked")
		return nil

	case "unlock":
		if err := ensureUnlocked(ctx, v, vaultID); err != nil {
			return err
		}
		Success("Vault unlocked")
		return nil

	case "status":
		st, err := v.Status(ctx)
		if err != nil {
			return err
		}
		PrintKeyValue("Vault", appConfig.Vault.Path)
		PrintKeyValue("Entries", fmt.Sprint(st.EntryCount))
		printSession(st.Session, st.Locked)
		return nil

	case "settings":
		settings := SettingsFlags(fs)
		if _, err := ParseArgs(fs, args); err != nil {
			return err
		}
		autoLock, require, err := settings()
		if err != nil {
			return err
		}
		return updateSettings(ctx, v, autoLock, require, vaultID)

	default:
		return fmt.Errorf("unknown command %q (type 'help')", name)
	}
}

func printShellHelp(w io.Writer) {
	fmt.Fprint(w, `Commands:
  ls [query] [--category C] [--show]   List or search entries
  get <id> [--copy] [--show]           Show an entry
  add [--website W] [--username U] [--category C] [--notes N] [--generate N]
  edit <id> [--website W] ... [--password | --generate N]
  rm <id> [id...] [--force]            Remove entries
  gen [-n N] [--classes C] [--copy]    Generate a password
  strength [password]                  Score a password
  lock | unlock                        Lock or unlock the session
  status                               Show session state
  settings [--auto-lock N] [--require-password true|false]
  exit                                 Leave the shell
`)
}
