// Package kvs provides the key-value backends credentials are persisted in:
// an in-process map, a LevelDB directory and Redis.
package kvs

import (
	"context"
	"errors"
	"time"
)

// Store is a key-value store with TTL support. All implementations must be
// safe for concurrent use.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Apply performs all ops atomically: readers observe either none or all
	// of them. Deleting a missing key is not an error; a TTL <= 0 means the
	// key does not expire.
	Apply(ctx context.Context, ops ...Op) error

	// Close releases resources. Subsequent operations return ErrClosed.
	Close() error
}

// Op is a single write inside Apply.
type Op struct {
	Key    string
	Value  []byte
	TTL    time.Duration
	Delete bool
}

// Put returns an Op storing value under key.
func Put(key string, value []byte, ttl time.Duration) Op {
	return Op{Key: key, Value: value, TTL: ttl}
}

// Del returns an Op removing key.
func Del(key string) Op {
	return Op{Key: key, Delete: true}
}

var (
	// ErrNotFound is returned when a key is not found or has expired.
	ErrNotFound = errors.New("kvs: key not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("kvs: store is closed")
)

// Config selects and configures a backend.
type Config struct {
	// Type is "memory", "leveldb" or "redis". Empty means memory.
	Type string `yaml:"type" json:"type"`

	// Namespace isolates keys of one profile from another sharing the
	// same backend.
	Namespace string `yaml:"namespace" json:"namespace"`

	Memory  MemoryConfig  `yaml:"memory" json:"memory"`
	LevelDB LevelDBConfig `yaml:"leveldb" json:"leveldb"`
	Redis   RedisConfig   `yaml:"redis" json:"redis"`
}

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// CleanupInterval is how often expired keys are purged. Default: 5 minutes.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// LevelDBConfig configures the LevelDB store.
type LevelDBConfig struct {
	// Path is the database directory. Empty means <user cache dir>/natours/credentials.
	Path string `yaml:"path" json:"path"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `yaml:"sync_writes" json:"sync_writes"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// New creates a store for cfg.Type, wrapped in a NamespacedStore when
// cfg.Namespace is set.
func New(cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Type {
	case "memory", "":
		store, err = NewMemoryStore(cfg.Memory)
	case "leveldb":
		store, err = NewLevelDBStore(cfg.LevelDB)
	case "redis":
		store, err = NewRedisStore(cfg.Redis)
	default:
		return nil, errors.New("kvs: unsupported store type: " + cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewNamespacedStore(store, cfg.Namespace), nil
}
