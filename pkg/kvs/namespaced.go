package kvs

import "context"

// NamespacedStore prepends a prefix to every key so several CLI profiles
// can share one backend:
//
//	base, _ := kvs.New(kvs.Config{Type: "redis", ...})
//	work := kvs.NewNamespacedStore(base, "work:")
//	home := kvs.NewNamespacedStore(base, "home:")
type NamespacedStore struct {
	store  Store
	prefix string
}

// NewNamespacedStore wraps store. An empty namespace returns store as-is.
// A trailing ":" is added to the namespace when missing.
func NewNamespacedStore(store Store, namespace string) Store {
	if namespace == "" {
		return store
	}
	if namespace[len(namespace)-1] != ':' {
		namespace += ":"
	}
	return &NamespacedStore{store: store, prefix: namespace}
}

func (n *NamespacedStore) key(key string) string {
	return n.prefix + key
}

// Get retrieves a value by key.
func (n *NamespacedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.key(key))
}

// Apply prefixes every op key and forwards the batch.
func (n *NamespacedStore) Apply(ctx context.Context, ops ...Op) error {
	prefixed := make([]Op, len(ops))
	for i, op := range ops {
		op.Key = n.key(op.Key)
		prefixed[i] = op
	}
	return n.store.Apply(ctx, prefixed...)
}

// Close closes the underlying store.
func (n *NamespacedStore) Close() error {
	return n.store.Close()
}
