// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
)

// Registry is the revocation denylist keyed by token ID.
type Registry interface {

	// Revoke marks jti as revoked for ttl and reports whether this call
	// created the entry. A non-positive ttl is a no-op that reports false.
	Revoke(context context.Context, jti string, ttl time.Duration) (bool, error)

	// IsRevoked reports whether jti has an unexpired revocation entry.
	IsRevoked(context context.Context, jti string) (bool, error)
}

// RedisRegistry implements [Registry] with one key per revoked token.
type RedisRegistry struct {
	client redis.Cmdable
}

// NewRedisRegistry creates a new Redis-backed [Registry].
func NewRedisRegistry(client redis.Cmdable) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func revokedKey(jti string) string {
	return constants.RedisPrefixRevoked + jti
}

/*
Revoke writes an empty marker that expires together with the token.

Description: The write is a single SET NX, so among concurrent callers for
one jti exactly one observes true. An existing entry keeps its TTL.

Parameters:
  - context: context.Context
  - jti: string
  - ttl: time.Duration (remaining token lifetime)

Returns:
  - bool: true when this call inserted the entry
  - error: Connectivity failures
*/
func (registry *RedisRegistry) Revoke(context context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	inserted, err := registry.client.SetNX(context, revokedKey(jti), "", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_set_failed: %w", err)
	}
	return inserted, nil
}

// IsRevoked performs a single EXISTS lookup. Absence means not revoked.
func (registry *RedisRegistry) IsRevoked(context context.Context, jti string) (bool, error) {
	count, err := registry.client.Exists(context, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_exists_failed: %w", err)
	}
	return count > 0, nil
}
