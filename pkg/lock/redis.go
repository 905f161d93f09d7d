package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "hotelbook:lock:"

// compare-and-delete so a lock that expired and was re-taken is left alone
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	fullKey := redisKeyPrefix + key
	owner := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{fullKey}, owner).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis release: %w", err)
		}
		return nil
	}, nil
}
