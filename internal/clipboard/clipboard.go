// Package clipboard hands revealed secrets to the system clipboard and
// clears them again after a timeout.
package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
)

// Backend hooks, replaced in tests.
var (
	writeAll = clipboard.WriteAll
	readAll  = clipboard.ReadAll
)

// CopyWithTimeout copies text to clipboard and clears it after timeout.
// The clear runs in the background, so the process must outlive timeout.
func CopyWithTimeout(text string, timeout time.Duration) error {
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	if timeout <= 0 {
		return nil
	}

	go func() {
		time.Sleep(timeout)
		clearIfUnchanged(text)
	}()

	return nil
}

// CopyAndWait copies text, blocks until timeout elapses or ctx is done,
// then clears the clipboard. One-shot commands use it so the secret does
// not outlive the process.
func CopyAndWait(ctx context.Context, text string, timeout time.Duration) error {
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	clearIfUnchanged(text)
	return ctx.Err()
}

// clearIfUnchanged leaves the clipboard alone if the user copied something else meanwhile.
func clearIfUnchanged(text string) {
	current, err := readAll()
	if err != nil || current != text {
		return
	}
	if err := writeAll(""); err != nil {
		log.Warn().Err(err).Msg("failed to clear clipboard")
	}
}

// IsAvailable returns true if clipboard functionality is available
func IsAvailable() bool {
	if clipboard.Unsupported {
		return false
	}
	_, err := readAll()
	return err == nil
}

// Timed copies secrets with a fixed clear timeout. It is the Copier used
// by the interactive shell.
type Timed struct {
	TTL time.Duration

	mu   sync.Mutex
	last string
}

// Copy implements app.Copier.
func (t *Timed) Copy(secret string) error {
	if err := CopyWithTimeout(secret, t.TTL); err != nil {
		return err
	}
	t.mu.Lock()
	t.last = secret
	t.mu.Unlock()
	return nil
}

// Flush clears the clipboard now if it still holds the last copied secret.
// Pending background clears do not survive process exit.
func (t *Timed) Flush() {
	t.mu.Lock()
	last := t.last
	t.last = ""
	t.mu.Unlock()

	if last != "" {
		clearIfUnchanged(last)
	}
}
