// Package redis provides a distributed keyed lock on top of redislock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// Config tunes lease length and how long Obtain keeps retrying.
type Config struct {
	Prefix     string
	TTL        time.Duration
	RetryEvery time.Duration
	MaxRetries int
}

type locker struct {
	client *redislock.Client
	cfg    Config
}

// NewLocker creates a Locker backed by client.
func NewLocker(client goredis.UniversalClient, cfg Config) port.Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.RetryEvery <= 0 {
		cfg.RetryEvery = 50 * time.Millisecond
	}
	return &locker{client: redislock.New(client), cfg: cfg}
}

func (l *locker) Obtain(ctx context.Context, key string) (port.Lock, error) {
	lockKey := fmt.Sprintf("%slock:%s", l.cfg.Prefix, key)
	lock, err := l.client.Obtain(ctx, lockKey, l.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.cfg.RetryEvery), l.cfg.MaxRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}
	return &lease{lock: lock}, nil
}

type lease struct {
	lock *redislock.Lock
}

func (l *lease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
