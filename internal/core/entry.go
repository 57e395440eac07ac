package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is assigned to entries saved without one.
const DefaultCategory = "other"

// Entry is a decrypted vault entry.
type Entry struct {
	ID        uint64    `json:"id"`
	Website   string    `json:"website"`
	Username  string    `json:"username"`
	Secret    string    `json:"password"`
	Category  string    `json:"category"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Entry) normalize() {
	e.Website = strings.TrimSpace(e.Website)
	e.Username = strings.TrimSpace(e.Username)
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	if e.Category == "" {
		e.Category = DefaultCategory
	}
}

// Validate checks the fields an entry cannot be saved without.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Website) == "" {
		return fmt.Errorf("%w: website is required", ErrInvalidEntry)
	}
	if e.Secret == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidEntry)
	}
	return nil
}

// Matches reports whether query appears in the website or username, ignoring case.
func (e *Entry) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Website), q) ||
		strings.Contains(strings.ToLower(e.Username), q)
}

// sameAccount reports whether two entries describe the same login.
func (e *Entry) sameAccount(o *Entry) bool {
	return strings.EqualFold(e.Website, o.Website) && strings.EqualFold(e.Username, o.Username)
}

// sameContent compares the user-editable fields.
func (e *Entry) sameContent(o *Entry) bool {
	return e.Secret == o.Secret && e.Notes == o.Notes && e.Category == o.Category
}

// Masked returns a copy with the secret replaced by asterisks.
func (e Entry) Masked() Entry {
	if e.Secret != "" {
		e.Secret = strings.Repeat("*", 8)
	}
	return e
}

// render formats the entry for line diffs.
func (e *Entry) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "website: %s\n", e.Website)
	fmt.Fprintf(&b, "username: %s\n", e.Username)
	fmt.Fprintf(&b, "password: %s\n", e.Secret)
	fmt.Fprintf(&b, "category: %s\n", e.Category)
	for _, line := range strings.Split(e.Notes, "\n") {
		if line != "" {
			fmt.Fprintf(&b, "notes: %s\n", line)
		}
	}
	return b.String()
}

// idSeq hands out entry IDs. It starts above both the persisted high-water
// mark and every live ID, so removed IDs are never handed out again.
type idSeq struct {
	next uint64
}

func newIDSeq(stored uint64, entries []Entry) *idSeq {
	s := &idSeq{next: max(stored, 1)}
	for _, e := range entries {
		s.observe(e.ID)
	}
	return s
}

func (s *idSeq) observe(id uint64) {
	if id >= s.next {
		s.next = id + 1
	}
}

func (s *idSeq) take() uint64 {
	id := s.next
	s.next++
	return id
}
