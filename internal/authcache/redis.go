package authcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authcache"

// Redis is the Store used when the API runs as more than one instance.
// Entries expire with the token lifetime: past that point the entry can no
// longer be consulted, so keeping it would only leak memory.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) key(userID uint) string {
	return redisKeyPrefix + ":" + strconv.FormatUint(uint64(userID), 10)
}

func (r *Redis) Set(ctx context.Context, userID uint, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("authcache: redis set: %w", err)
	}
	return nil
}

func (r *Redis) TryGet(ctx context.Context, userID uint) (Entry, bool, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("authcache: redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (r *Redis) Remove(ctx context.Context, userID uint) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("authcache: redis del: %w", err)
	}
	return nil
}
