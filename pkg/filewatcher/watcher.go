// Package filewatcher reports changes to a single file with debounce.
//
// The parent directory is watched rather than the file itself, so a file
// that is replaced by rename, removed, or not yet created is still tracked.
package filewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when NewWatcher is given a non-positive delay.
const DefaultDebounce = 200 * time.Millisecond

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Path      string      // Path to the changed file
	Op        fsnotify.Op // Last operation seen before the debounce fired
	Timestamp time.Time   // Time of the change
	Error     error       // Error reported by the watcher, if any
}

// Removed reports whether the file no longer exists after the change.
func (e ChangeEvent) Removed() bool {
	return e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename)
}

// ChangeListener is an interface for receiving file change notifications
type ChangeListener interface {
	OnFileChange(event ChangeEvent)
}

// Watcher monitors one file and notifies listeners once per burst of changes.
type Watcher struct {
	watcher       *fsnotify.Watcher
	listeners     []ChangeListener
	filePath      string
	debounceDelay time.Duration
	mu            sync.RWMutex
}

// NewWatcher creates a watcher for filePath. The parent directory must exist.
func NewWatcher(filePath string, debounceDelay time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("filewatcher: failed to get absolute path: %w", err)
	}
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filewatcher: failed to create fsnotify watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("filewatcher: failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		watcher:       fsWatcher,
		filePath:      absPath,
		debounceDelay: debounceDelay,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.filePath
}

// AddListener adds a listener to receive file change notifications
func (w *Watcher) AddListener(listener ChangeListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, listener)
}

// Start watches until ctx is done or the watcher is closed. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	var (
		timerMu sync.Mutex
		timer   *time.Timer
		lastOp  fsnotify.Op
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("filewatcher: events channel closed")
			}

			// Editors and atomic writers touch sibling temp files.
			eventPath, err := filepath.Abs(event.Name)
			if err != nil || eventPath != w.filePath {
				continue
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			timerMu.Lock()
			lastOp = event.Op
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceDelay, func() {
				timerMu.Lock()
				op := lastOp
				timerMu.Unlock()
				w.notifyListeners(ChangeEvent{Path: w.filePath, Op: op, Timestamp: time.Now()})
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("filewatcher: errors channel closed")
			}
			w.notifyListeners(ChangeEvent{Path: w.filePath, Timestamp: time.Now(), Error: err})
		}
	}
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) notifyListeners(event ChangeEvent) {
	w.mu.RLock()
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()

	for _, listener := range listeners {
		listener.OnFileChange(event)
	}
}
