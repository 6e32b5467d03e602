package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Token string `json:"authToken"`
	User  string `json:"user,omitempty"`
}

// FileStore keeps the credential pair in a single JSON file. Writes go to a
// temporary file that is renamed over the target, so other processes never
// read a half-written document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credentials file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the file. A missing or empty file yields zero Credentials.
func (s *FileStore) Get(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("credstore: failed to read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return Credentials{}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Token == "" {
		return Credentials{}, nil
	}

	creds := Credentials{Token: doc.Token}
	if doc.User != "" {
		creds.User = []byte(doc.User)
	}
	return creds, nil
}

// Set atomically replaces the file. An empty token removes it.
func (s *FileStore) Set(ctx context.Context, creds Credentials) error {
	if creds.Empty() {
		return s.Clear(ctx)
	}

	data, err := json.MarshalIndent(fileDocument{Token: creds.Token, User: string(creds.User)}, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: failed to encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.path, data)
}

// Clear removes the file.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credstore: failed to remove %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// writeFileAtomic replaces path with data through a synced temp file in the
// same directory. The file is owner-only; atomic.WriteFile keeps the mode
// of the file it replaces, so an existing file is tightened first.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: failed to create %s: %w", dir, err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credstore: failed to chmod %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("credstore: failed to replace %s: %w", path, err)
	}
	return nil
}
