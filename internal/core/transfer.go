package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ImportMode selects how imported entries are combined with the vault
type ImportMode int

const (
	ImportMerge   ImportMode = iota // Match by website and username, resolve conflicts
	ImportReplace                   // Replace the whole vault with the import
)

// ParseImportMode parses "merge" or "replace". The empty string selects merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return ImportMerge, nil
	case "replace":
		return ImportReplace, nil
	default:
		return 0, fmt.Errorf("unknown import mode %q (valid: merge, replace)", s)
	}
}

// ImportOptions configures Import
type ImportOptions struct {
	Mode     ImportMode
	Strategy ConflictStrategy
	Resolve  Resolver
}

// ImportResult contains the results of an import
type ImportResult struct {
	Added     int // New entries
	Updated   int // Vault entries overwritten by the import
	Skipped   int // Conflicts resolved in favour of the vault
	Unchanged int // Identical entries
}

// ParseExport decodes an export document: a JSON array of entries.
func ParseExport(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidImport
	}

	var entries []Entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i := range entries {
		entries[i].normalize()
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidImport, i+1, err)
		}
	}
	return entries, nil
}

// Export returns every entry, secrets included, as an indented JSON array.
func (v *Vault) Export(ctx context.Context) ([]byte, error) {
	entries, err := v.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entries: %w", err)
	}
	v.log.Info(ctx, "vault exported", "entries", len(entries))
	return data, nil
}

// Import adds the entries of an export document to the vault. Nothing is
// saved unless every conflict is resolved.
func (v *Vault) Import(ctx context.Context, data []byte, opts ImportOptions) (*ImportResult, error) {
	incoming, err := ParseExport(data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err = v.mutate(ctx, func(entries []Entry, ids *idSeq) ([]Entry, error) {
		now := v.clock.Now().UTC()
		if opts.Mode == ImportReplace {
			result.Added = len(incoming)
			return replaceEntries(incoming, ids, now), nil
		}
		return v.mergeEntries(entries, incoming, ids, opts, now, result)
	})
	if err != nil {
		return nil, err
	}

	v.log.Info(ctx, "vault imported",
		"added", result.Added, "updated", result.Updated,
		"skipped", result.Skipped, "unchanged", result.Unchanged)
	return result, nil
}

// replaceEntries keeps imported ids when they are unique and set, and
// numbers the entries from the next free ID otherwise.
func replaceEntries(incoming []Entry, ids *idSeq, now time.Time) []Entry {
	seen := make(map[uint64]bool, len(incoming))
	renumber := false
	for _, e := range incoming {
		if e.ID == 0 || seen[e.ID] {
			renumber = true
			break
		}
		seen[e.ID] = true
	}

	out := make([]Entry, len(incoming))
	for i, e := range incoming {
		if renumber {
			e.ID = ids.take()
		}
		stamp(&e, now)
		out[i] = e
	}
	return out
}

func stamp(e *Entry, now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
}

func (v *Vault) mergeEntries(entries, incoming []Entry, ids *idSeq, opts ImportOptions, now time.Time, result *ImportResult) ([]Entry, error) {
	for _, inc := range incoming {
		idx := -1
		for i := range entries {
			if entries[i].sameAccount(&inc) {
				idx = i
				break
			}
		}

		if idx < 0 {
			entries = appendNew(entries, inc, ids.take(), now)
			result.Added++
			continue
		}
		if entries[idx].sameContent(&inc) {
			result.Unchanged++
			continue
		}

		res, err := resolveConflict(Conflict{Local: entries[idx], Incoming: inc}, opts.Strategy, opts.Resolve)
		if err != nil {
			return nil, err
		}
		switch res {
		case ResolutionKeepLocal:
			result.Skipped++
		case ResolutionUseImport:
			local := &entries[idx]
			local.Secret = inc.Secret
			local.Notes = inc.Notes
			local.Category = inc.Category
			local.UpdatedAt = now
			result.Updated++
		case ResolutionKeepBoth:
			entries = appendNew(entries, inc, ids.take(), now)
			result.Added++
		}
	}
	return entries, nil
}

func appendNew(entries []Entry, e Entry, id uint64, now time.Time) []Entry {
	e.ID = id
	e.UpdatedAt = time.Time{}
	stamp(&e, now)
	return append(entries, e)
}

// Diff renders the differences between the vault and an export document.
// Secrets are masked unless reveal is set. An empty result means both
// hold the same entries.
func (v *Vault) Diff(ctx context.Context, data []byte, reveal bool) (string, error) {
	incoming, err := ParseExport(data)
	if err != nil {
		return "", err
	}
	local, err := v.List(ctx, "")
	if err != nil {
		return "", err
	}

	var out strings.Builder
	matched := make([]bool, len(local))
	for _, inc := range incoming {
		idx := -1
		for i := range local {
			if !matched[i] && local[i].sameAccount(&inc) {
				idx = i
				break
			}
		}

		if idx < 0 {
			if !reveal {
				inc = inc.Masked()
			}
			writeDiff(&out, "(new)", inc, "", inc.render())
			continue
		}

		matched[idx] = true
		l, r := local[idx], inc
		if l.sameContent(&r) {
			continue
		}
		if !reveal {
			l, r = maskPair(l, r)
		}
		writeDiff(&out, fmt.Sprintf("#%d", l.ID), l, l.render(), r.render())
	}

	for i, e := range local {
		if matched[i] {
			continue
		}
		if !reveal {
			e = e.Masked()
		}
		writeDiff(&out, fmt.Sprintf("#%d (only in vault)", e.ID), e, e.render(), "")
	}

	return out.String(), nil
}

func writeDiff(out *strings.Builder, label string, e Entry, a, b string) {
	diff := prefixedDiff(a, b)
	if diff == "" {
		return
	}
	fmt.Fprintf(out, "--- vault/%s\n", e.Website)
	fmt.Fprintf(out, "+++ import/%s\n", e.Website)
	fmt.Fprintf(out, "@@ %s %s @@\n", label, e.Username)
	out.WriteString(diff)
}
