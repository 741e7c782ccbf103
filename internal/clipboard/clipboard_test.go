package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBoard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (m *memoryBoard) write(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.text = s
	return nil
}

func (m *memoryBoard) read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, m.err
}

func useMemoryBoard(t *testing.T) *memoryBoard {
	t.Helper()
	board := &memoryBoard{}
	origWrite, origRead := writeAll, readAll
	writeAll, readAll = board.write, board.read
	t.Cleanup(func() { writeAll, readAll = origWrite, origRead })
	return board
}

func TestCopyWithTimeoutClears(t *testing.T) {
	board := useMemoryBoard(t)

	require.NoError(t, CopyWithTimeout("hunter2", 20*time.Millisecond))
	got, _ := board.read()
	assert.Equal(t, "hunter2", got)

	assert.Eventually(t, func() bool {
		got, _ := board.read()
		return got == ""
	}, time.Second, 5*time.Millisecond)
}

func TestCopyWithTimeoutKeepsNewerContent(t *testing.T) {
	board := useMemoryBoard(t)

	require.NoError(t, CopyWithTimeout("hunter2", 20*time.Millisecond))
	require.NoError(t, board.write("something else"))

	time.Sleep(60 * time.Millisecond)
	got, _ := board.read()
	assert.Equal(t, "something else", got)
}

func TestCopyAndWaitCancelled(t *testing.T) {
	board := useMemoryBoard(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := CopyAndWait(ctx, "hunter2", time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	got, _ := board.read()
	assert.Equal(t, "", got)
}

func TestCopyAndWaitTimeout(t *testing.T) {
	board := useMemoryBoard(t)

	require.NoError(t, CopyAndWait(context.Background(), "hunter2", 10*time.Millisecond))
	got, _ := board.read()
	assert.Equal(t, "", got)
}

func TestCopyError(t *testing.T) {
	board := useMemoryBoard(t)
	board.err = errors.New("no display")

	assert.Error(t, CopyWithTimeout("x", time.Second))
	assert.Error(t, (&Timed{TTL: time.Second}).Copy("x"))
	assert.Error(t, CopyAndWait(context.Background(), "x", time.Millisecond))
}

func TestTimedFlush(t *testing.T) {
	board := useMemoryBoard(t)

	timed := &Timed{TTL: time.Hour}
	require.NoError(t, timed.Copy("hunter2"))
	got, _ := board.read()
	assert.Equal(t, "hunter2", got)

	timed.Flush()
	got, _ = board.read()
	assert.Equal(t, "", got)

	require.NoError(t, timed.Copy("hunter2"))
	require.NoError(t, board.write("mine"))
	timed.Flush()
	got, _ = board.read()
	assert.Equal(t, "mine", got)
}
