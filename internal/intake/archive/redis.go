// internal/intake/archive/redis.go
package archive

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "intake:key:"

// RedisReservation reserves canonical keys with SETNX, which is atomic
// across concurrent runners sharing one archive.
type RedisReservation struct {
	client *redis.Client
}

func NewRedisReservation(client *redis.Client) *RedisReservation {
	return &RedisReservation{client: client}
}

func (r *RedisReservation) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+key, 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis reserve %s: %w", key, err)
	}
	return ok, nil
}
