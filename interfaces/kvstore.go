package interfaces

import "context"

// KVStore persists processed batches under deterministic keys. Put is an
// atomic overwrite: writing the same key twice is expected and harmless.
type KVStore interface {
	Put(ctx context.Context, namespace, key string, value interface{}) error
	Get(ctx context.Context, namespace, key string, out interface{}) error
}
