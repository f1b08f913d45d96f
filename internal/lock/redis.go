package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when a Redis lock could not be acquired in time.
var ErrNotObtained = errors.New("lock not obtained")

// Redis is a Locker shared by every server process using the same Redis.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	log    *zap.Logger
}

// NewRedis builds a Redis locker on top of rdb. ttl bounds how long a lock
// survives a crashed holder.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Redis {
	return &Redis{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
		log:    log,
	}
}

// Lock obtains "lock:<key>", retrying with a linear backoff.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	l, err := r.client.Obtain(ctx, lockKey, r.ttl, &redislock.Options{RetryStrategy: r.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, lockKey)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock: %w", err)
	}

	return func() {
		// The request context may already be cancelled here.
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn("failed to release redis lock", zap.String("key", lockKey), zap.Error(err))
		}
	}, nil
}
