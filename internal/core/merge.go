package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"
)

const maskedSecret = "********"

// ConflictStrategy defines how to handle an imported entry that matches a
// vault entry by website and username but differs in content
type ConflictStrategy int

const (
	StrategyAsk       ConflictStrategy = iota // Ask user for each conflict
	StrategyKeepLocal                         // Always keep the vault version
	StrategyUseImport                         // Always overwrite with the imported version
	StrategyKeepBoth                          // Always keep both (import is added under a new id)
	StrategyAbort                             // Abort on any conflict
)

var strategyNames = map[ConflictStrategy]string{
	StrategyAsk:       "ask",
	StrategyKeepLocal: "keep-local",
	StrategyUseImport: "use-import",
	StrategyKeepBoth:  "keep-both",
	StrategyAbort:     "abort",
}

func (s ConflictStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConflictStrategy(%d)", int(s))
}

// ParseStrategy parses a strategy name as accepted by the --strategy flag.
func ParseStrategy(s string) (ConflictStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for strategy, name := range strategyNames {
		if s == name {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("unknown conflict strategy %q (valid: ask, keep-local, use-import, keep-both, abort)", s)
}

// Resolution is the choice made for a single conflict
type Resolution int

const (
	ResolutionKeepLocal Resolution = iota
	ResolutionUseImport
	ResolutionKeepBoth
)

// Conflict pairs a vault entry with the imported entry for the same account
type Conflict struct {
	Local    Entry
	Incoming Entry
}

// Resolver decides a conflict when the strategy is StrategyAsk.
type Resolver func(Conflict) (Resolution, error)

func resolveConflict(c Conflict, strategy ConflictStrategy, ask Resolver) (Resolution, error) {
	switch strategy {
	case StrategyKeepLocal:
		return ResolutionKeepLocal, nil
	case StrategyUseImport:
		return ResolutionUseImport, nil
	case StrategyKeepBoth:
		return ResolutionKeepBoth, nil
	case StrategyAbort:
		return 0, fmt.Errorf("%w: %s (%s)", ErrImportAborted, c.Local.Website, c.Local.Username)
	}
	if ask == nil {
		return 0, fmt.Errorf("%w: %s (%s): no resolver for interactive strategy",
			ErrImportAborted, c.Local.Website, c.Local.Username)
	}
	return ask(c)
}

// PromptResolver asks on the terminal for each conflict. Secrets in the
// shown diff are masked unless reveal is set.
func PromptResolver(in *os.File, out io.Writer, reveal bool) Resolver {
	return func(c Conflict) (Resolution, error) {
		fmt.Fprintf(out, "\nwarning: conflict detected: %s (%s)\n", c.Local.Website, c.Local.Username)
		fmt.Fprintf(out, "   Vault entry #%d differs from the imported entry\n\n", c.Local.ID)
		out.Write(ConflictDiff(c, reveal))

		fmt.Fprintf(out, "\nOptions:\n")
		fmt.Fprintf(out, "  [l] Keep vault version\n")
		fmt.Fprintf(out, "  [i] Use imported version (overwrite vault)\n")
		fmt.Fprintf(out, "  [b] Keep both (add import as a new entry)\n")
		fmt.Fprintf(out, "  [x] Abort import\n")

		for {
			fmt.Fprintf(out, "\nYour choice: ")
			choice, err := readChoice(in, out)
			if err != nil {
				return 0, err
			}

			switch choice {
			case "l":
				return ResolutionKeepLocal, nil
			case "i":
				return ResolutionUseImport, nil
			case "b":
				return ResolutionKeepBoth, nil
			case "x":
				return 0, fmt.Errorf("%w by user", ErrImportAborted)
			default:
				fmt.Fprintf(out, "Invalid choice. Please enter l, i, b, x\n")
			}
		}
	}
}

// readChoice reads a single character choice from the terminal
func readChoice(in *os.File, out io.Writer) (string, error) {
	// Try to use raw mode for single-key input
	oldState, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		// Not a terminal: read a line instead
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(line)), nil
	}
	defer func() { _ = term.Restore(int(in.Fd()), oldState) }()

	buf := make([]byte, 1)
	if _, err := in.Read(buf); err != nil {
		return "", err
	}

	choice := strings.ToLower(string(buf[0]))
	fmt.Fprintf(out, "%s\r\n", choice) // Echo the choice
	return choice, nil
}

// maskPair hides both secrets but still shows whether they differ.
func maskPair(local, incoming Entry) (Entry, Entry) {
	changed := local.Secret != incoming.Secret
	local, incoming = local.Masked(), incoming.Masked()
	if changed && incoming.Secret != "" {
		incoming.Secret = maskedSecret + " (changed)"
	}
	return local, incoming
}

// ConflictDiff renders a conflict with git-style markers around the
// differing fields.
func ConflictDiff(c Conflict, reveal bool) []byte {
	local, incoming := c.Local, c.Incoming
	if !reveal {
		local, incoming = maskPair(local, incoming)
	}
	return createLineDiff(local.render(), incoming.render())
}

func lineDiffs(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()

	// Line-mode diff
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lineArray)
}

// createLineDiff creates a line-level diff with conflict markers only around differences.
func createLineDiff(local, incoming string) []byte {
	return buildConflictFromDiffs(lineDiffs(local, incoming))
}

// buildConflictFromDiffs converts diff output to conflict-marked content.
// Equal sections pass through unchanged, while delete/insert pairs become conflict hunks.
func buildConflictFromDiffs(diffs []diffmatchpatch.Diff) []byte {
	var buf bytes.Buffer

	writeSide := func(t diffmatchpatch.Operation, i int) int {
		for i < len(diffs) && diffs[i].Type == t {
			text := diffs[i].Text
			buf.WriteString(text)
			if len(text) > 0 && text[len(text)-1] != '\n' {
				buf.WriteByte('\n')
			}
			i++
		}
		return i
	}

	i := 0
	for i < len(diffs) {
		switch diffs[i].Type {
		case diffmatchpatch.DiffEqual:
			buf.WriteString(diffs[i].Text)
			i++

		case diffmatchpatch.DiffDelete, diffmatchpatch.DiffInsert:
			buf.WriteString("<<<<<<< vault\n")
			i = writeSide(diffmatchpatch.DiffDelete, i)
			buf.WriteString("=======\n")
			i = writeSide(diffmatchpatch.DiffInsert, i)
			buf.WriteString(">>>>>>> import\n")
		}
	}

	return buf.Bytes()
}

// prefixedDiff renders a line diff where every line is prefixed with
// ' ', '-' or '+'. It returns "" when a and b are equal.
func prefixedDiff(a, b string) string {
	if a == b {
		return ""
	}

	var out strings.Builder
	for _, d := range lineDiffs(a, b) {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteByte('\n')
			}
		}
	}
	return out.String()
}
