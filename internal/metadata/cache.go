package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "soulpass/pkg/domain"
)

// Cache is a best-effort redis layer in front of Render for hot explorer
// reads. Render stays the source of truth: a cache miss or a redis outage
// degrades to recomputation, never to an error. Mutating operations
// invalidate the record's key; an invalidation failure is logged and can
// leave at most one stale read window until the TTL expires.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a cache. A nil client disables caching (all lookups
// miss), which keeps call sites unconditional.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(tokenID id.TokenID) string {
	return "passport:metadata:" + tokenID.String()
}

// Get returns the cached document for the token, if present.
func (c *Cache) Get(ctx context.Context, tokenID id.TokenID) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	doc, err := c.client.Get(ctx, cacheKey(tokenID)).Result()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "metadata cache read failed",
				"token_id", tokenID.String(), "error", err)
		}
		return "", false
	}
	return doc, true
}

// Set stores the rendered document.
func (c *Cache) Set(ctx context.Context, tokenID id.TokenID, doc string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(tokenID), doc, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "metadata cache write failed",
			"token_id", tokenID.String(), "error", err)
	}
}

// Invalidate drops the cached document after a mutation.
func (c *Cache) Invalidate(ctx context.Context, tokenID id.TokenID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(tokenID)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "metadata cache invalidation failed",
			"token_id", tokenID.String(), "error", err)
	}
}

// InvalidateAll drops every cached document. Used when the global metadata
// base changes, which affects every record at once.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, "passport:metadata:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "metadata cache invalidation failed",
				"key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "metadata cache scan failed", "error", err)
	}
}
