// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the managed client behind the token revocation registry.

Revocation entries are written with a TTL equal to the token's remaining
lifetime, so the keyspace never outgrows the set of still-valid revoked tokens.
Every protected request performs one EXISTS lookup against it.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
)

// Revocation lookups sit on the hot path of every protected request, so the
// socket timeouts are short.
const (
	dialTimeout   = 3 * time.Second
	socketTimeout = 500 * time.Millisecond
	pingTimeout   = 2 * time.Second
)

// NewClient parses redisURL, applies poolSize when positive and pings once.
func NewClient(context stdctx.Context, redisURL string, poolSize int, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	if poolSize > 0 {
		options.PoolSize = poolSize
		options.MinIdleConns = max(1, poolSize/5)
	}
	options.ClientName = constants.AppName
	options.DialTimeout = dialTimeout
	options.ReadTimeout = socketTimeout
	options.WriteTimeout = socketTimeout

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)
	return client, nil
}

// Ping accepts any client so health checks also work against a cluster or ring.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
