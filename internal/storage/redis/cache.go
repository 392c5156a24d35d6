// Package redis provides a read-through Redis cache in front of the pizza
// catalog.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/pizzeria/internal/domain/catalog"
)

// DefaultTTL is how long a cached pizza stays valid.
const DefaultTTL = 5 * time.Minute

// Store is the subset of Redis the cache needs. Get reports a miss with
// ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ClientStore adapts a go-redis client to Store.
type ClientStore struct {
	client redis.UniversalClient
}

// NewClientStore returns a Store backed by client.
func NewClientStore(client redis.UniversalClient) *ClientStore {
	return &ClientStore{client: client}
}

// Get implements Store.
func (s *ClientStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Store.
func (s *ClientStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// NewClient creates a go-redis client for addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

var _ catalog.Repository = (*CatalogCache)(nil)

// CatalogCache caches single-pizza lookups. List and GetByIDs always hit
// the underlying repository. Redis failures degrade to uncached reads.
type CatalogCache struct {
	next   catalog.Repository
	store  Store
	ttl    time.Duration
	prefix string
}

// NewCatalogCache wraps next with a cache kept in store.
func NewCatalogCache(next catalog.Repository, store Store, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{
		next:   next,
		store:  store,
		ttl:    ttl,
		prefix: "pizzeria:pizza",
	}
}

func (c *CatalogCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

// GetByID returns the cached pizza or loads and caches it. Not-found
// results are not cached.
func (c *CatalogCache) GetByID(ctx context.Context, id string) (*catalog.Pizza, error) {
	lg := zctx.From(ctx)
	key := c.key(id)

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		lg.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	case ok:
		var p catalog.Pizza
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		lg.Warn("Dropping malformed catalog cache entry", zap.String("key", key))
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			lg.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return p, nil
}

// GetByIDs implements catalog.Repository.
func (c *CatalogCache) GetByIDs(ctx context.Context, ids []string) ([]catalog.Pizza, error) {
	return c.next.GetByIDs(ctx, ids)
}

// List implements catalog.Repository.
func (c *CatalogCache) List(ctx context.Context) ([]catalog.Pizza, error) {
	return c.next.List(ctx)
}
