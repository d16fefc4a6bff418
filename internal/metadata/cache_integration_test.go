//go:build integration

package metadata_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulpass/internal/metadata"
	id "soulpass/pkg/domain"
	"soulpass/pkg/testutil/containers"
)

func TestCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	cache := metadata.NewCache(redis.Client, time.Minute, nil)
	ctx := context.Background()

	tokenID := id.TokenID(42)

	_, ok := cache.Get(ctx, tokenID)
	assert.False(t, ok, "expected miss before set")

	cache.Set(ctx, tokenID, "data:application/json;base64,e30=")

	doc, ok := cache.Get(ctx, tokenID)
	require.True(t, ok)
	assert.Equal(t, "data:application/json;base64,e30=", doc)

	cache.Invalidate(ctx, tokenID)
	_, ok = cache.Get(ctx, tokenID)
	assert.False(t, ok, "expected miss after invalidation")
}

func TestCacheInvalidateAll(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	cache := metadata.NewCache(redis.Client, time.Minute, nil)
	ctx := context.Background()

	for i := uint64(0); i < 5; i++ {
		cache.Set(ctx, id.TokenID(i), "doc")
	}
	cache.InvalidateAll(ctx)

	for i := uint64(0); i < 5; i++ {
		_, ok := cache.Get(ctx, id.TokenID(i))
		assert.False(t, ok)
	}
}

func TestNilClientDisablesCache(t *testing.T) {
	cache := metadata.NewCache(nil, time.Minute, nil)
	ctx := context.Background()

	cache.Set(ctx, id.TokenID(1), "doc")
	_, ok := cache.Get(ctx, id.TokenID(1))
	assert.False(t, ok)
	cache.Invalidate(ctx, id.TokenID(1))
}
