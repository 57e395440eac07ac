package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/passlock/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgFile, args := splitGlobalFlags(os.Args[1:])
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := args[0], args[1:]
	switch command {
	case "help", "-h", "--help":
		if len(args) == 0 {
			printUsage()
			return
		}
		printCommandHelp(args[0])
		return
	case "completion":
		runCompletion(ctx, args)
		return
	}

	if err := cmd.Setup(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	switch command {
	case "init":
		runInit(ctx, args)
	case "add":
		runAdd(ctx, args)
	case "ls", "list", "search":
		runLs(ctx, args)
	case "get":
		runGet(ctx, args)
	case "edit":
		runEdit(ctx, args)
	case "rm":
		runRm(ctx, args)
	case "clear":
		runClear(ctx, args)
	case "passwd":
		runPasswd(ctx, args)
	case "gen":
		runGen(ctx, args)
	case "strength":
		runStrength(ctx, args)
	case "export":
		runExport(ctx, args)
	case "import":
		runImport(ctx, args)
	case "diff":
		runDiff(ctx, args)
	case "status":
		runStatus(ctx, args)
	case "settings":
		runSettings(ctx, args)
	case "lock":
		runLock(ctx, args)
	case "keyring":
		runKeyring(ctx, args)
	case "shell":
		runShell(ctx, args)
	case "compact":
		runCompact(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// splitGlobalFlags pulls --config off the front of the argument list.
func splitGlobalFlags(args []string) (string, []string) {
	var cfgFile string
	for len(args) > 0 {
		switch {
		case args[0] == "--config" || args[0] == "-config":
			if len(args) < 2 {
				fmt.Fprintln(os.Stderr, "Error: --config requires a file")
				os.Exit(1)
			}
			cfgFile, args = args[1], args[2:]
		case strings.HasPrefix(args[0], "--config="):
			cfgFile, args = strings.TrimPrefix(args[0], "--config="), args[1:]
		default:
			return cfgFile, args
		}
	}
	return cfgFile, args
}

// parse parses a command's flags, exiting on error, and returns the
// positional arguments.
func parse(fs *flag.FlagSet, args []string) []string {
	rest, err := cmd.ParseArgs(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return rest
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(ctx)
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fields := cmd.EntryFlags(fs)
	parse(fs, args)

	cmd.Add(ctx, fields())
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	category := fs.String("category", "", "Only list this category")
	show := fs.Bool("show", false, "Show passwords")
	rest := parse(fs, args)

	cmd.Ls(ctx, strings.Join(rest, " "), *category, *show)
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	copyPassword := fs.Bool("copy", false, "Copy the password to the clipboard")
	show := fs.Bool("show", false, "Show the password")
	rest := parse(fs, args)

	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock get <id> [--copy] [--show]")
		os.Exit(1)
	}
	cmd.Get(ctx, rest[0], *copyPassword, *show)
}

func runEdit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	fields := cmd.EntryFlags(fs)
	rest := parse(fs, args)

	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock edit <id> [flags]")
		os.Exit(1)
	}
	cmd.Edit(ctx, rest[0], fields())
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	force := fs.Bool("force", false, "Remove without confirmation")
	rest := parse(fs, args)

	cmd.Remove(ctx, rest, *force)
}

func runClear(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	force := fs.Bool("force", false, "Clear without confirmation")
	parse(fs, args)

	cmd.Clear(ctx, *force)
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parse(fs, args)

	cmd.Passwd(ctx)
}

func runGen(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	length := fs.Int("n", cmd.DefaultGenerateLength, "Password length")
	classes := fs.String("classes", "all", "Character classes: lower,upper,digit,symbol or all")
	copyPassword := fs.Bool("copy", false, "Copy to the clipboard")
	parse(fs, args)

	cmd.Gen(ctx, *length, *classes, *copyPassword)
}

func runStrength(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("strength", flag.ExitOnError)
	rest := parse(fs, args)

	cmd.Strength(ctx, rest)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var out string
	fs.StringVar(&out, "o", "", "Output file")
	fs.StringVar(&out, "out", "", "Output file")
	force := fs.Bool("force", false, "Overwrite an existing file")
	rest := parse(fs, args)

	if out == "" && len(rest) > 0 {
		out = rest[0]
	}
	cmd.Export(ctx, out, *force)
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	mode := fs.String("mode", "merge", "Import mode: merge or replace")
	strategy := fs.String("strategy", "ask", "Conflict strategy: ask, keep-local, use-import, keep-both or abort")
	reveal := fs.Bool("reveal", false, "Show passwords in conflict diffs")
	force := fs.Bool("force", false, "Replace without confirmation")
	rest := parse(fs, args)

	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock import <file> [--mode merge|replace] [--strategy S]")
		os.Exit(1)
	}
	cmd.Import(ctx, rest[0], *mode, *strategy, *reveal, *force)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	reveal := fs.Bool("reveal", false, "Show passwords")
	rest := parse(fs, args)

	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock diff <file> [--reveal]")
		os.Exit(1)
	}
	cmd.Diff(ctx, rest[0], *reveal)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(ctx)
}

func runSettings(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	settings := cmd.SettingsFlags(fs)
	parse(fs, args)

	autoLock, require, err := settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	cmd.Settings(ctx, autoLock, require)
}

func runLock(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	parse(fs, args)

	cmd.Lock(ctx)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "delete":
		cmd.KeyringDelete(ctx)
	case "status":
		cmd.KeyringStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: passlock keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runShell(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	parse(fs, args)

	cmd.Shell(ctx)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact(ctx)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passlock completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("passlock - local password manager with auto-locking sessions")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passlock [--config file] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new vault and set the master password")
	fmt.Println("  add         Add an entry")
	fmt.Println("  ls          List or search entries")
	fmt.Println("  get         Show an entry or copy its password")
	fmt.Println("  edit        Change an entry")
	fmt.Println("  rm          Remove entries")
	fmt.Println("  clear       Delete all entries")
	fmt.Println("  passwd      Change the master password")
	fmt.Println("  gen         Generate a random password")
	fmt.Println("  strength    Score a password")
	fmt.Println("  export      Export entries to a JSON file")
	fmt.Println("  import      Import entries from a JSON file")
	fmt.Println("  diff        Compare the vault with a JSON file")
	fmt.Println("  status      Show vault and session state")
	fmt.Println("  settings    Show or change auto-lock settings")
	fmt.Println("  lock        Lock the session now")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  shell       Start an interactive session")
	fmt.Println("  compact     Compact the vault to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passlock init                          # Create new vault")
	fmt.Println("  passlock add --website github.com      # Add an entry")
	fmt.Println("  passlock ls github                     # Search entries")
	fmt.Println("  passlock get 3 --copy                  # Copy a password")
	fmt.Println()
	fmt.Println("Use 'passlock help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("passlock init")
		fmt.Println()
		fmt.Println("Creates a new vault at the configured path (default ~/.passlock/vault.db)")
		fmt.Println("and sets the master password. The password is never stored; only a")
		fmt.Println("verifier derived from it is kept in the vault.")
		fmt.Println()
		fmt.Println("Set PASSLOCK_PASSWORD to run without a prompt.")
	case "add":
		fmt.Println("passlock add [--website W] [--username U] [--category C] [--notes N]")
		fmt.Println("             [--generate N [--classes C]]")
		fmt.Println()
		fmt.Println("Adds an entry. Fields not given as flags are prompted for.")
		fmt.Println("Without --generate the password is read from the terminal.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passlock add --website github.com --username alice --generate 20")
		fmt.Println("  passlock add --website bank.example --category finance")
	case "ls", "list", "search":
		fmt.Println("passlock ls [query] [--category C] [--show]")
		fmt.Println()
		fmt.Println("Lists entries, or those whose website, username, category or notes")
		fmt.Println("contain query (case-insensitive). Passwords are masked unless --show.")
	case "get":
		fmt.Println("passlock get <id> [--copy] [--show]")
		fmt.Println()
		fmt.Println("Shows an entry. With --copy the password is put on the clipboard and")
		fmt.Println("cleared after clipboard.clear_after unless the clipboard changed.")
	case "edit":
		fmt.Println("passlock edit <id> [--website W] [--username U] [--category C] [--notes N]")
		fmt.Println("                   [--password | --generate N [--classes C]]")
		fmt.Println()
		fmt.Println("Changes the given fields of an entry.")
	case "rm":
		fmt.Println("passlock rm <id> [id...] [--force]")
		fmt.Println()
		fmt.Println("Removes entries. Either all listed entries are removed or none.")
	case "clear":
		fmt.Println("passlock clear [--force]")
		fmt.Println()
		fmt.Println("Deletes every entry. The master password and settings are kept.")
	case "passwd":
		fmt.Println("passlock passwd")
		fmt.Println()
		fmt.Println("Changes the master password and re-encrypts every entry.")
		fmt.Println("Either every entry is re-encrypted or the vault is left unchanged.")
	case "gen":
		fmt.Println("passlock gen [-n N] [--classes C] [--copy]")
		fmt.Println()
		fmt.Println("Prints a random password. Classes are a comma separated list of")
		fmt.Println("lower, upper, digit and symbol, or all (default). Length defaults to 16.")
	case "strength":
		fmt.Println("passlock strength [password]")
		fmt.Println()
		fmt.Println("Scores a password from 0 to 100. Prompts when none is given.")
	case "export":
		fmt.Println("passlock export [-o|--out file | file] [--force]")
		fmt.Println()
		fmt.Println("Writes every entry, passwords included, to a JSON file with mode 0600.")
		fmt.Println("The default name is password-manager-export-YYYY-MM-DD.json.")
		fmt.Println("Warns when the file would land in a git repository.")
	case "import":
		fmt.Println("passlock import <file> [--mode merge|replace] [--strategy S] [--reveal] [--force]")
		fmt.Println()
		fmt.Println("Imports entries from a JSON export.")
		fmt.Println()
		fmt.Println("Modes:")
		fmt.Println("  merge     Add new entries, resolve conflicts per --strategy (default)")
		fmt.Println("  replace   Discard every existing entry first")
		fmt.Println()
		fmt.Println("Conflict strategies (same website and username, different content):")
		fmt.Println("  ask         Show a diff and ask for each conflict (default)")
		fmt.Println("  keep-local  Keep the vault entry")
		fmt.Println("  use-import  Take password, notes and category from the file")
		fmt.Println("  keep-both   Add the imported entry as a new one")
		fmt.Println("  abort       Stop at the first conflict, changing nothing")
	case "diff":
		fmt.Println("passlock diff <file> [--reveal]")
		fmt.Println()
		fmt.Println("Shows how the entries in a JSON export differ from the vault.")
		fmt.Println("Passwords are masked unless --reveal.")
	case "status":
		fmt.Println("passlock status")
		fmt.Println()
		fmt.Println("Shows the vault location, cipher, entry count and session state.")
		fmt.Println("Does not require a password.")
	case "settings":
		fmt.Println("passlock settings [--auto-lock N] [--require-password true|false]")
		fmt.Println()
		fmt.Println("Without flags shows the session settings. --auto-lock sets the idle")
		fmt.Println("minutes before the session locks (at least 1). With")
		fmt.Println("--require-password=false the vault unlocks itself from the OS keyring")
		fmt.Println("or PASSLOCK_PASSWORD.")
	case "lock":
		fmt.Println("passlock lock")
		fmt.Println()
		fmt.Println("Locks the session. The next command asks for the master password.")
	case "keyring":
		fmt.Println("passlock keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the master password in the OS keyring.")
	case "shell":
		fmt.Println("passlock shell")
		fmt.Println()
		fmt.Println("Starts an interactive session that keeps the vault unlocked in memory.")
		fmt.Println("The session locks after the auto-lock timeout; the next command asks")
		fmt.Println("for the master password again. Type 'help' inside for commands.")
	case "compact":
		fmt.Println("passlock compact")
		fmt.Println()
		fmt.Println("Compacts the vault to reclaim space left by removed entries.")
		fmt.Println("Runs automatically after 'clear' and 'passwd'.")
	case "completion":
		fmt.Println("passlock completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(passlock completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(passlock completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  passlock completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
