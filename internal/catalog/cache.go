package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "catalog:snapshot"

// Cache wraps a Querier with a short-lived Redis snapshot cache. A stale
// snapshot only widens the reconciliation race window the engine already
// accepts, so TTL-based expiry is enough.
type Cache struct {
	client *redis.Client
	next   Querier
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, next Querier, ttl time.Duration) *Cache {
	return &Cache{client: client, next: next, ttl: ttl}
}

// QueryCatalog serves the cached snapshot when present, loading and storing
// it otherwise. Redis failures fall through to the underlying querier.
func (c *Cache) QueryCatalog(ctx context.Context) ([]Entry, error) {
	if c.client == nil {
		return c.next.QueryCatalog(ctx)
	}

	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err == nil {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.next.QueryCatalog(ctx)
	}

	entries, err := c.next.QueryCatalog(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(entries); err == nil {
		_ = c.client.Set(ctx, snapshotKey, data, c.ttl).Err()
	}
	return entries, nil
}

// Invalidate drops the cached snapshot, forcing the next query to reload.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotKey).Err()
}
