// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/users/token"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

/*
TestRedisRegistry_Lifecycle covers write, lookup and self-expiry of an entry.
*/
func TestRedisRegistry_Lifecycle(t *testing.T) {
	server, client := newRedis(t)
	registry := token.NewRedisRegistry(client)
	ctx := context.Background()

	// 1. Absent means not revoked.
	revoked, err := registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	// 2. Revoke stores an empty marker with the given TTL.
	inserted, err := registry.Revoke(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, inserted)

	value, err := server.Get(constants.RedisPrefixRevoked + "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "", value)
	assert.Equal(t, time.Minute, server.TTL(constants.RedisPrefixRevoked+"jti-1"))

	revoked, err = registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// 3. A second revocation reports that the entry already existed and
	// leaves the original TTL alone.
	server.FastForward(10 * time.Second)
	inserted, err = registry.Revoke(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, 50*time.Second, server.TTL(constants.RedisPrefixRevoked+"jti-1"))

	// 4. The entry expires with the token.
	server.FastForward(time.Minute)
	revoked, err = registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestRedisRegistry_NonPositiveTTL verifies that dead tokens are not written.
*/
func TestRedisRegistry_NonPositiveTTL(t *testing.T) {
	server, client := newRedis(t)
	registry := token.NewRedisRegistry(client)

	for _, ttl := range []time.Duration{0, -time.Second} {
		inserted, err := registry.Revoke(context.Background(), "jti-2", ttl)
		require.NoError(t, err)
		assert.False(t, inserted)
	}
	assert.False(t, server.Exists(constants.RedisPrefixRevoked+"jti-2"))
}

/*
TestRedisRegistry_Unavailable surfaces connectivity errors.
*/
func TestRedisRegistry_Unavailable(t *testing.T) {
	server, client := newRedis(t)
	registry := token.NewRedisRegistry(client)
	server.Close()

	_, err := registry.IsRevoked(context.Background(), "jti-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_revocation_exists_failed")

	_, err = registry.Revoke(context.Background(), "jti-3", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis_revocation_set_failed")
}
