package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SmileSnow819/natours/pkg/kvs"
)

// KVSStore keeps the credential pair under TokenKey and UserKey in a
// kvs.Store.
type KVSStore struct {
	kvs kvs.Store
	ttl time.Duration
}

// NewKVSStore creates a credential store on top of backend.
func NewKVSStore(backend kvs.Store, ttl time.Duration) *KVSStore {
	return &KVSStore{kvs: backend, ttl: ttl}
}

// Get reads both entries. A user entry without a token is ignored.
func (s *KVSStore) Get(ctx context.Context) (Credentials, error) {
	token, err := s.kvs.Get(ctx, TokenKey)
	if errors.Is(err, kvs.ErrNotFound) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("credstore: failed to read token: %w", err)
	}

	user, err := s.kvs.Get(ctx, UserKey)
	if err != nil && !errors.Is(err, kvs.ErrNotFound) {
		return Credentials{}, fmt.Errorf("credstore: failed to read user: %w", err)
	}

	return Credentials{Token: string(token), User: user}, nil
}

// Set writes both entries in one batch. An empty token clears the store.
func (s *KVSStore) Set(ctx context.Context, creds Credentials) error {
	if creds.Empty() {
		return s.Clear(ctx)
	}

	userOp := kvs.Del(UserKey)
	if creds.User != nil {
		userOp = kvs.Put(UserKey, creds.User, s.ttl)
	}

	if err := s.kvs.Apply(ctx, userOp, kvs.Put(TokenKey, []byte(creds.Token), s.ttl)); err != nil {
		return fmt.Errorf("credstore: failed to write credentials: %w", err)
	}
	return nil
}

// Clear removes both entries in one batch.
func (s *KVSStore) Clear(ctx context.Context) error {
	if err := s.kvs.Apply(ctx, kvs.Del(TokenKey), kvs.Del(UserKey)); err != nil {
		return fmt.Errorf("credstore: failed to clear credentials: %w", err)
	}
	return nil
}

// Close closes the underlying kvs store.
func (s *KVSStore) Close() error {
	return s.kvs.Close()
}
