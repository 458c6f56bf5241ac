package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter budgets model calls per session over a rolling day.
type RedisLimiter struct {
	client *redis.Client
	limit  int // max model calls per day
}

func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
	}
}

func (r *RedisLimiter) CheckLimit(ctx context.Context, sessionID string) (bool, error) {
	val, err := r.client.Get(ctx, "usage:"+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil // no usage yet
	}
	if err != nil {
		return false, err
	}
	usage, _ := strconv.Atoi(val)
	return usage < r.limit, nil
}

func (r *RedisLimiter) Increment(ctx context.Context, sessionID string, calls int) error {
	key := "usage:" + sessionID
	if err := r.client.IncrBy(ctx, key, int64(calls)).Err(); err != nil {
		return err
	}
	// Expiry is refreshed on every call; a quiet day resets the budget.
	return r.client.Expire(ctx, key, 24*time.Hour).Err()
}
