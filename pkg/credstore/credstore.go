// Package credstore persists the session credential pair: the bearer token
// and the serialized user record. Both entries are always written and
// cleared together.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SmileSnow819/natours/pkg/kvs"
)

// Well-known keys of the two persisted entries.
const (
	TokenKey = "authToken"
	UserKey  = "user"
)

var (
	// ErrCorrupt is returned when stored credentials cannot be decoded.
	ErrCorrupt = errors.New("credstore: stored credentials are corrupt")

	// ErrUnsupportedType is returned by New for an unknown store type.
	ErrUnsupportedType = errors.New("credstore: unsupported store type")
)

// Credentials is the persisted pair. User holds the serialized user record
// exactly as it was handed to Set.
type Credentials struct {
	Token string
	User  []byte
}

// Empty reports whether no token is stored.
func (c Credentials) Empty() bool {
	return c.Token == ""
}

// Store is the persistence contract the session manager depends on.
type Store interface {
	// Get returns the stored credentials. Nothing stored is not an error:
	// it yields zero Credentials.
	Get(ctx context.Context) (Credentials, error)

	// Set replaces both entries. A nil User removes the user entry.
	Set(ctx context.Context, creds Credentials) error

	// Clear removes both entries.
	Clear(ctx context.Context) error

	// Close releases the backing resources.
	Close() error
}

// Config selects the backend credentials are kept in.
type Config struct {
	// Type is "file", or a kvs type: "memory", "leveldb", "redis".
	Type string

	// File is the credentials file for Type "file".
	File string

	// KVS configures the kvs backends.
	KVS kvs.Config

	// TTL bounds how long credentials survive in a kvs backend. Zero keeps
	// them until logout.
	TTL time.Duration

	// EncryptionKey, when set, seals both entries with AES-256-GCM.
	EncryptionKey string
}

// DefaultFilePath returns <user config dir>/natours/credentials.json.
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "natours", "credentials.json")
}

// New builds the Store described by cfg.
func New(cfg Config) (Store, error) {
	var store Store

	switch cfg.Type {
	case "file":
		path := cfg.File
		if path == "" {
			path = DefaultFilePath()
		}
		store = NewFileStore(path)
	case "", "memory", "leveldb", "redis":
		kvsCfg := cfg.KVS
		kvsCfg.Type = cfg.Type
		backend, err := kvs.New(kvsCfg)
		if err != nil {
			return nil, fmt.Errorf("credstore: %w", err)
		}
		store = NewKVSStore(backend, cfg.TTL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}

	if cfg.EncryptionKey != "" {
		store = NewEncryptedStore(store, NewEncryptor(cfg.EncryptionKey))
	}

	return store, nil
}
