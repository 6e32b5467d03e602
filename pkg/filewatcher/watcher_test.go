package filewatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockListener struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (m *mockListener) OnFileChange(event ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockListener) getEvents() []ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChangeEvent{}, m.events...)
}

// startWatcher runs a watcher for path until the test ends.
func startWatcher(t *testing.T, path string, debounce time.Duration) (*Watcher, *mockListener) {
	t.Helper()
	w, err := NewWatcher(path, debounce)
	require.NoError(t, err)

	listener := &mockListener{}
	w.AddListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.NoError(t, w.Close())
	})

	// Give the watch loop time to start receiving.
	time.Sleep(50 * time.Millisecond)
	return w, listener
}

func TestWatcher_BasicFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	w, listener := startWatcher(t, path, 30*time.Millisecond)
	assert.Equal(t, path, w.Path())

	require.NoError(t, os.WriteFile(path, []byte(`{"authToken":"abc"}`), 0o600))

	require.Eventually(t, func() bool { return len(listener.getEvents()) > 0 }, 2*time.Second, 10*time.Millisecond)
	event := listener.getEvents()[0]
	assert.NoError(t, event.Error)
	assert.Equal(t, path, event.Path)
	assert.False(t, event.Removed())
	assert.False(t, event.Timestamp.IsZero())
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	_, listener := startWatcher(t, path, 30*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	require.Eventually(t, func() bool { return len(listener.getEvents()) > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, listener := startWatcher(t, path, 30*time.Millisecond)

	tmp := filepath.Join(dir, ".credentials-123.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"authToken":"t2"}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return len(listener.getEvents()) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, ev := range listener.getEvents() {
		assert.Equal(t, path, ev.Path, "sibling temp files are not reported")
	}
}

func TestWatcher_Removal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, listener := startWatcher(t, path, 30*time.Millisecond)
	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool { return len(listener.getEvents()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, listener.getEvents()[0].Removed())
}

func TestWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, listener := startWatcher(t, path, 150*time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(listener.getEvents()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, listener.getEvents(), 1, "a burst of writes is reported once")
}

func TestWatcher_MultipleListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	w, first := startWatcher(t, path, 30*time.Millisecond)
	second := &mockListener{}
	w.AddListener(second)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o600))

	require.Eventually(t, func() bool {
		return len(first.getEvents()) > 0 && len(second.getEvents()) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "credentials.json"), 0)
	assert.Error(t, err)
}

func TestWatcher_ClosedWatcherStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	w, err := NewWatcher(path, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounceDelay)

	require.NoError(t, w.Close())
	err = w.Start(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
