package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

// requireStored checks a SetIfGeneration result:
// requireStored(t)(c.SetIfGeneration(...)).
func requireStored(t *testing.T) func(bool, error) {
	return func(stored bool, err error) {
		t.Helper()
		require.NoError(t, err)
		require.True(t, stored)
	}
}

func TestRedisPolicyCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())
	ctx := context.Background()

	_, found, err := c.Get(ctx, "alice@acme.com")
	require.NoError(t, err)
	assert.False(t, found)

	p, err := authz.NewPolicy(authz.LevelGroup, "alice@acme.com", "acme", "user", "admin@vulntrack.io", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	requireStored(t)(c.SetIfGeneration(ctx, "alice@acme.com", 0, []*authz.Policy{p}, time.Hour))

	ttl := mr.TTL("authz:policies:alice@acme.com")
	assert.LessOrEqual(t, ttl, time.Hour)
	assert.Greater(t, ttl, 50*time.Minute)

	got, found, err := c.Get(ctx, "alice@acme.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0].Object())
	assert.Equal(t, "user", got[0].Role())
	assert.True(t, p.ModifiedDate().Equal(got[0].ModifiedDate()))

	require.NoError(t, c.Delete(ctx, "alice@acme.com"))
	_, found, err = c.Get(ctx, "alice@acme.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPolicyCache_EmptyListIsAHit(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())
	ctx := context.Background()

	requireStored(t)(c.SetIfGeneration(ctx, "nobody@acme.com", 0, nil, time.Hour))
	got, found, err := c.Get(ctx, "nobody@acme.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestRedisPolicyCache_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())
	ctx := context.Background()

	requireStored(t)(c.SetIfGeneration(ctx, "alice@acme.com", 0, nil, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.Get(ctx, "alice@acme.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPolicyCache_CorruptEntryIsAMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())

	require.NoError(t, mr.Set("authz:policies:alice@acme.com", "{not json"))
	_, found, err := c.Get(context.Background(), "alice@acme.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPolicyCache_OutageIsAnError(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())
	mr.Close()

	_, _, err := c.Get(context.Background(), "alice@acme.com")
	assert.Error(t, err)
	assert.Error(t, c.Delete(context.Background(), "alice@acme.com"))
}

func TestRedisPolicyCache_DeleteRejectsOlderGeneration(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisPolicyCache(client, logger.NewNopLogger())
	ctx := context.Background()

	gen, err := c.Generation(ctx, "bob@acme.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Delete(ctx, "bob@acme.com"))

	stored, err := c.SetIfGeneration(ctx, "bob@acme.com", gen, nil, time.Hour)
	require.NoError(t, err)
	assert.False(t, stored)
	_, found, err := c.Get(ctx, "bob@acme.com")
	require.NoError(t, err)
	assert.False(t, found)

	gen, err = c.Generation(ctx, "bob@acme.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	requireStored(t)(c.SetIfGeneration(ctx, "bob@acme.com", gen, nil, time.Hour))

	// The counter outlives the entry it guards.
	mr.FastForward(48 * time.Hour)
	assert.Equal(t, time.Duration(0), mr.TTL("authz:gen:authz:policies:bob@acme.com"))
	gen, err = c.Generation(ctx, "bob@acme.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestRedisGroupServiceCache(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisGroupServiceCache(client, logger.NewNopLogger())
	ctx := context.Background()

	gs := authz.NewGroupServices("acme")
	gs.Add(authz.ServiceForces, "admin@vulntrack.io", time.Now())
	requireStored(t)(c.SetIfGeneration(ctx, "acme", 0, gs, time.Hour))

	got, found, err := c.Get(ctx, "acme")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Has(authz.ServiceForces))
	assert.False(t, got.Has(authz.ServiceIntegrates))

	require.NoError(t, c.Delete(ctx, "acme"))
	_, found, err = c.Get(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found)

	stored, err := c.SetIfGeneration(ctx, "acme", 0, gs, time.Hour)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(time.Hour)
		assert.LessOrEqual(t, d, time.Hour)
		assert.Greater(t, d, 53*time.Minute)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
