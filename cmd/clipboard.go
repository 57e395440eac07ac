package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

var errClipboardUnsupported = errors.New("clipboard is not supported on this system")

// clipboardIO reads and writes the clipboard.
type clipboardIO interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", errClipboardUnsupported
	}
	return clipboard.ReadAll()
}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// pendingClear removes a copied secret from the clipboard after a delay,
// unless something else has been copied since. Flush clears it early.
type pendingClear struct {
	mu     sync.Mutex
	clip   clipboardIO
	secret string
	timer  *time.Timer
	gen    uint64
}

func newPendingClear(clip clipboardIO) *pendingClear {
	return &pendingClear{clip: clip}
}

// Copy writes secret to the clipboard and schedules its removal after
// clearAfter. A secret copied earlier is cleared first. With clearAfter
// zero the secret stays.
func (p *pendingClear) Copy(secret string, clearAfter time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flushLocked()
	if err := p.clip.WriteAll(secret); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	if clearAfter <= 0 {
		return nil
	}

	p.gen++
	gen := p.gen
	p.secret = secret
	p.timer = time.AfterFunc(clearAfter, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen == gen {
			p.flushLocked()
		}
	})
	return nil
}

// Flush clears the pending secret now. It reports whether the clipboard
// was cleared.
func (p *pendingClear) Flush() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *pendingClear) flushLocked() bool {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.secret == "" {
		return false
	}
	secret := p.secret
	p.secret = ""
	p.gen++

	current, err := p.clip.ReadAll()
	if err != nil || current != secret {
		return false
	}
	return p.clip.WriteAll("") == nil
}

// copyAndWait copies secret and blocks until it is cleared after
// clearAfter or ctx is done, clearing either way.
func copyAndWait(ctx context.Context, clip clipboardIO, secret string, clearAfter time.Duration) error {
	p := newPendingClear(clip)
	if err := p.Copy(secret, clearAfter); err != nil {
		return err
	}
	if clearAfter <= 0 {
		fmt.Println("Password copied to clipboard")
		return nil
	}

	fmt.Printf("Password copied to clipboard. Clearing in %s...\n", clearAfter)
	timer := time.NewTimer(clearAfter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	p.Flush()
	fmt.Println("Clipboard cleared")
	return nil
}
