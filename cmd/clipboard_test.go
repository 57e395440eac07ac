package cmd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeClipboard records every write.
type fakeClipboard struct {
	mu     sync.Mutex
	text   string
	writes []string
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func TestPendingClear_FlushClearsSecret(t *testing.T) {
	clip := &fakeClipboard{}
	p := newPendingClear(clip)

	if err := p.Copy("s3cret", time.Hour); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if got := clip.Text(); got != "s3cret" {
		t.Fatalf("clipboard = %q, want the secret", got)
	}
	if !p.Flush() {
		t.Errorf("Flush() = false, want true")
	}
	if got := clip.Text(); got != "" {
		t.Errorf("clipboard after Flush = %q, want empty", got)
	}
	if p.Flush() {
		t.Errorf("second Flush() = true, want false")
	}
}

func TestPendingClear_KeepsNewerContent(t *testing.T) {
	clip := &fakeClipboard{}
	p := newPendingClear(clip)

	if err := p.Copy("s3cret", time.Hour); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	clip.WriteAll("copied elsewhere")

	if p.Flush() {
		t.Errorf("Flush() = true, want false")
	}
	if got := clip.Text(); got != "copied elsewhere" {
		t.Errorf("clipboard = %q, want the newer content", got)
	}
}

func TestPendingClear_ClearsAfterDelay(t *testing.T) {
	clip := &fakeClipboard{}
	p := newPendingClear(clip)

	if err := p.Copy("s3cret", 10*time.Millisecond); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for clip.Text() != "" {
		if time.Now().After(deadline) {
			t.Fatalf("clipboard not cleared after delay")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPendingClear_SecondCopyReplacesFirst(t *testing.T) {
	clip := &fakeClipboard{}
	p := newPendingClear(clip)

	if err := p.Copy("first", time.Hour); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if err := p.Copy("second", time.Hour); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	p.Flush()

	want := []string{"first", "", "second", ""}
	if diff := cmp.Diff(want, clip.writes); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyAndWait_ClearsOnCancel(t *testing.T) {
	clip := &fakeClipboard{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := copyAndWait(ctx, clip, "s3cret", time.Hour); err != nil {
		t.Fatalf("copyAndWait() error = %v", err)
	}
	if got := clip.Text(); got != "" {
		t.Errorf("clipboard = %q, want empty", got)
	}
}
