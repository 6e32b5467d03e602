package kvs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBStore persists values in a LevelDB directory on the local disk.
// Expired keys are removed lazily when read.
type LevelDBStore struct {
	db       *leveldb.DB
	path     string
	writeOpt *opt.WriteOptions
	closed   bool
	mu       sync.RWMutex
}

// DefaultLevelDBPath returns the directory used when LevelDBConfig.Path is empty.
func DefaultLevelDBPath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "natours", "credentials")
}

// NewLevelDBStore opens (or creates) the database at cfg.Path. A corrupted
// database is recovered once before giving up.
func NewLevelDBStore(cfg LevelDBConfig) (*LevelDBStore, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = DefaultLevelDBPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("kvs/leveldb: failed to create directory: %w", err)
	}

	opts := &opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(dbPath, opts)
	if err != nil {
		if lerrors.IsCorrupted(err) {
			db, err = leveldb.RecoverFile(dbPath, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("kvs/leveldb: failed to open database at %s: %w", dbPath, err)
		}
	}

	return &LevelDBStore{
		db:       db,
		path:     dbPath,
		writeOpt: &opt.WriteOptions{Sync: cfg.SyncWrites},
	}, nil
}

// Path returns the database directory.
func (l *LevelDBStore) Path() string {
	return l.path
}

// encodeValue prefixes value with its expiration.
// Format: [8 bytes: expiration unix nano, 0 = never][value bytes]
func encodeValue(value []byte, ttl time.Duration, now time.Time) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	encoded := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(encoded[0:8], uint64(expiresAt))
	copy(encoded[8:], value)
	return encoded
}

// decodeValue splits an encoded value and reports whether it has expired.
func decodeValue(encoded []byte, now time.Time) ([]byte, bool, error) {
	if len(encoded) < 8 {
		return nil, false, errors.New("kvs/leveldb: invalid encoded value (too short)")
	}

	expiresAt := int64(binary.BigEndian.Uint64(encoded[0:8]))
	if expiresAt > 0 && now.UnixNano() > expiresAt {
		return nil, true, nil
	}

	return encoded[8:], false, nil
}

func (l *LevelDBStore) checkOpen() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// Get retrieves a value by key.
func (l *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}

	encoded, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kvs/leveldb: get failed: %w", err)
	}

	value, expired, err := decodeValue(encoded, time.Now())
	if err != nil {
		return nil, err
	}
	if expired {
		_ = l.db.Delete([]byte(key), l.writeOpt)
		return nil, ErrNotFound
	}

	return value, nil
}

// Apply writes ops as one LevelDB batch.
func (l *LevelDBStore) Apply(ctx context.Context, ops ...Op) error {
	if err := l.checkOpen(); err != nil {
		return err
	}

	now := time.Now()
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete([]byte(op.Key))
			continue
		}
		batch.Put([]byte(op.Key), encodeValue(op.Value, op.TTL, now))
	}

	if err := l.db.Write(batch, l.writeOpt); err != nil {
		return fmt.Errorf("kvs/leveldb: write failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *LevelDBStore) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	l.mu.Unlock()

	if err := l.db.Close(); err != nil {
		return fmt.Errorf("kvs/leveldb: close failed: %w", err)
	}
	return nil
}
