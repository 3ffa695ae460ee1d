package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/interfaces"
	ierr "github.com/dmarcstack/dmarcstack/internal/errors"
	"github.com/dmarcstack/dmarcstack/internal/tracing"
)

type redisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(cfg *config.RedisConfig) interfaces.KVStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisKVStore{client: client}
}

// namespacedKey keeps entries from different namespaces from colliding.
func namespacedKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

func (s *redisKVStore) Put(ctx context.Context, namespace, key string, value interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "redisKVStore.Put")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagStorageKey(span, key)

	payload, err := json.Marshal(value)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to marshal value")
	}

	// No TTL, reports are retained until explicitly removed.
	if err := s.client.Set(ctx, namespacedKey(namespace, key), payload, 0).Err(); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to store key %s", key)
	}
	return nil
}

func (s *redisKVStore) Get(ctx context.Context, namespace, key string, out interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "redisKVStore.Get")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagStorageKey(span, key)

	payload, err := s.client.Get(ctx, namespacedKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.Wrapf(ierr.ErrNotFound, "key %s in namespace %s", key, namespace)
		}
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to read key %s", key)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to unmarshal stored value")
	}
	return nil
}
