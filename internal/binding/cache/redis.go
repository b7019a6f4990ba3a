// Package cache implements the reverse-lookup cache on Redis. Bindings are
// immutable once accepted, so entries never need invalidation; the TTL only
// bounds memory.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bindery/internal/binding/models"
	platformredis "bindery/internal/platform/redis"
	id "bindery/pkg/domain"
)

type RedisLookupCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLookupCache(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *RedisLookupCache {
	return &RedisLookupCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(platform models.Platform, handle string) string {
	return fmt.Sprintf("bind:%s:%s", platform, handle)
}

// GetAccount reads a cached reverse lookup. Any Redis failure is treated as
// a miss; the store remains the source of truth.
func (c *RedisLookupCache) GetAccount(ctx context.Context, platform models.Platform, handle string) (id.AccountID, bool) {
	raw, err := c.client.Get(ctx, cacheKey(platform, handle)).Result()
	if err != nil {
		return "", false
	}
	accountID, err := id.ParseAccountID(raw)
	if err != nil {
		// poisoned entry, drop it
		c.client.Del(ctx, cacheKey(platform, handle))
		return "", false
	}
	return accountID, true
}

// SetAccount caches a reverse lookup. Best effort: failures are logged and
// ignored.
func (c *RedisLookupCache) SetAccount(ctx context.Context, platform models.Platform, handle string, accountID id.AccountID) {
	if err := c.client.Set(ctx, cacheKey(platform, handle), accountID.String(), c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to cache reverse lookup",
			"platform", platform.String(),
			"error", err,
		)
	}
}
