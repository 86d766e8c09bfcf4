// Package redis holds the Redis-backed series counter store.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"fiscaldoc/internal/config"
)

// KeyPrefix namespaces every key the engine writes.
const KeyPrefix = "fiscal:"

// NewClient connects to Redis. One address gives a single-node client; more
// give a cluster client.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (goredis.UniversalClient, error) {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 100,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis %v: %w", cfg.Addrs, err)
	}
	return client, nil
}
