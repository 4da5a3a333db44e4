package dialer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter caps sessions per owner across every API replica sharing a Redis.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	// ttl bounds how long a slot survives a crashed process.
	ttl time.Duration
	log *slog.Logger
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration, log *slog.Logger) *RedisLimiter {
	if limit <= 0 {
		limit = 2
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl, log: log}
}

func ownerKey(ownerID string) string { return "dialer:owner:" + ownerID + ":sessions" }

func (l *RedisLimiter) Acquire(ctx context.Context, ownerID string) (func(), error) {
	key := ownerKey(ownerID)
	ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, key, l.limit, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("dialer: acquire session slot: %w", err)
	}
	if !ok {
		return nil, ErrCapacity
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := utils.ReleaseConcurrencyCap(ctx, l.rdb, key); err != nil {
			l.log.Warn("release session slot failed", "owner_id", ownerID, "err", err)
		}
	}, nil
}
