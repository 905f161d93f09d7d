package cache

import (
	"context"
	"fmt"
	"time"

	"hotelbook/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "hotelbook:avail:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

func genKey(roomID string) string {
	return keyPrefix + roomID + ":gen"
}

func entryKey(key Key, gen string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, key.RoomID, gen, key.dates())
}

func (c *Redis) Get(ctx context.Context, key Key) (bool, bool, string) {
	gen, err := c.client.Get(ctx, genKey(key.RoomID)).Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		c.log.Warn("Availability cache generation lookup failed", "room_id", key.RoomID, "error", err)
		return false, false, ""
	}

	val, err := c.client.Get(ctx, entryKey(key, gen)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Availability cache lookup failed", "room_id", key.RoomID, "error", err)
		}
		return false, false, gen
	}
	return val == "1", true, gen
}

func (c *Redis) Set(ctx context.Context, key Key, token string, available bool) {
	if token == "" {
		return
	}
	val := "0"
	if available {
		val = "1"
	}
	if err := c.client.Set(ctx, entryKey(key, token), val, c.ttl).Err(); err != nil {
		c.log.Warn("Availability cache write failed", "room_id", key.RoomID, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, roomID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey(roomID))
	// old generations age out with their entries
	pipe.Expire(ctx, genKey(roomID), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate availability for room %s: %w", roomID, err)
	}
	return nil
}
