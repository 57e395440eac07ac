package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/illarion/passlock/internal/crypto"
)

// loadEntries decrypts every stored record. Callers must hold v.mu when
// the result feeds a save.
func (v *Vault) loadEntries(ctx context.Context, c *crypto.Codec) ([]Entry, error) {
	records, err := v.store.LoadEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	entries := make([]Entry, len(records))
	for i, r := range records {
		if err := c.Decrypt(r, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (v *Vault) saveEntries(ctx context.Context, c *crypto.Codec, entries []Entry, ids *idSeq) error {
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })

	records := make([]crypto.Record, len(entries))
	for i := range entries {
		ids.observe(entries[i].ID)
		var err error
		records[i], err = c.Encrypt(entries[i])
		if err != nil {
			return fmt.Errorf("failed to encrypt entry %d: %w", entries[i].ID, err)
		}
	}
	if err := v.store.SaveEntries(ctx, records, ids.next); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}
	return nil
}

// read runs fn over the decrypted entries.
func (v *Vault) read(ctx context.Context, fn func([]Entry) error) error {
	err := v.lock.WithCodec(ctx, func(c *crypto.Codec) error {
		entries, err := v.loadEntries(ctx, c)
		if err != nil {
			return err
		}
		return fn(entries)
	})
	if err != nil {
		return err
	}
	v.touch(ctx)
	return nil
}

// mutate runs fn over the decrypted entries and saves what it returns.
// New entries must take their IDs from ids.
func (v *Vault) mutate(ctx context.Context, fn func(entries []Entry, ids *idSeq) ([]Entry, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.lock.WithCodec(ctx, func(c *crypto.Codec) error {
		entries, err := v.loadEntries(ctx, c)
		if err != nil {
			return err
		}
		stored, err := v.store.LoadNextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to load next entry id: %w", err)
		}
		ids := newIDSeq(stored, entries)
		entries, err = fn(entries, ids)
		if err != nil {
			return err
		}
		return v.saveEntries(ctx, c, entries, ids)
	})
	if err != nil {
		return err
	}
	v.touch(ctx)
	return nil
}

// Add stores a new entry and returns it with its assigned ID.
func (v *Vault) Add(ctx context.Context, e Entry) (Entry, error) {
	e.normalize()
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	err := v.mutate(ctx, func(entries []Entry, ids *idSeq) ([]Entry, error) {
		now := v.clock.Now().UTC()
		e.ID = ids.take()
		e.CreatedAt = now
		e.UpdatedAt = now
		return append(entries, e), nil
	})
	if err != nil {
		return Entry{}, err
	}

	v.log.Info(ctx, "entry added", "id", e.ID)
	return e, nil
}

// List returns all entries ordered by ID, optionally filtered by category.
func (v *Vault) List(ctx context.Context, category string) ([]Entry, error) {
	category = strings.ToLower(strings.TrimSpace(category))

	var out []Entry
	err := v.read(ctx, func(entries []Entry) error {
		for _, e := range entries {
			if category == "" || e.Category == category {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Search returns entries whose website or username contains query.
func (v *Vault) Search(ctx context.Context, query string) ([]Entry, error) {
	entries, err := v.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e Entry) bool { return !e.Matches(query) }), nil
}

// Get returns the entry with the given ID.
func (v *Vault) Get(ctx context.Context, id uint64) (Entry, error) {
	var found Entry
	err := v.read(ctx, func(entries []Entry) error {
		for _, e := range entries {
			if e.ID == id {
				found = e
				return nil
			}
		}
		return fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	})
	return found, err
}

// Update replaces the editable fields of an existing entry.
func (v *Vault) Update(ctx context.Context, e Entry) (Entry, error) {
	e.normalize()
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	var updated Entry
	err := v.mutate(ctx, func(entries []Entry, _ *idSeq) ([]Entry, error) {
		for i := range entries {
			if entries[i].ID != e.ID {
				continue
			}
			e.CreatedAt = entries[i].CreatedAt
			e.UpdatedAt = v.clock.Now().UTC()
			entries[i] = e
			updated = e
			return entries, nil
		}
		return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, e.ID)
	})
	if err != nil {
		return Entry{}, err
	}

	v.log.Info(ctx, "entry updated", "id", updated.ID)
	return updated, nil
}

// Remove deletes the given entries. Nothing is removed if any ID is unknown.
func (v *Vault) Remove(ctx context.Context, ids ...uint64) error {
	err := v.mutate(ctx, func(entries []Entry, _ *idSeq) ([]Entry, error) {
		for _, id := range ids {
			if !slices.ContainsFunc(entries, func(e Entry) bool { return e.ID == id }) {
				return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
			}
		}
		return slices.DeleteFunc(entries, func(e Entry) bool {
			return slices.Contains(ids, e.ID)
		}), nil
	})
	if err != nil {
		return err
	}

	v.log.Info(ctx, "entries removed", "count", len(ids))
	return nil
}

// Clear deletes every entry. The master password, settings and the next
// entry ID are kept.
func (v *Vault) Clear(ctx context.Context) error {
	err := v.mutate(ctx, func([]Entry, *idSeq) ([]Entry, error) {
		return nil, nil
	})
	if err != nil {
		return err
	}
	v.log.Info(ctx, "vault cleared")
	return nil
}
