package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunGuard decides which instance sends a scheduled run when several
// instances of the bot share the same token
type RunGuard interface {
	// Acquire returns true only for the first caller of a key until ttl expires
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisGuard claims keys with SET NX
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (guard *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := guard.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// LocalGuard lets every run through; used when no redis is configured
type LocalGuard struct{}

func (LocalGuard) Acquire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
