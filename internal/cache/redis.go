// Package cache stores classification results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shahar-caura/relay/internal/intent"
)

const keyPrefix = "relay:cache:"

// Redis is a TTL-bounded result cache. It satisfies agent.Cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and verifies the connection with a PING.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connecting to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func redisKey(key string) string {
	return keyPrefix + key
}

// Get returns the cached result for key. A miss is (nil, false, nil).
func (r *Redis) Get(ctx context.Context, key string) (*intent.Result, bool, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}

	res, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// Set stores result under key for the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, result *intent.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: encoding result: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// decode rejects entries whose intent is outside the closed set, such as
// values written by an older release.
func decode(data []byte) (*intent.Result, error) {
	var res intent.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("cache: decoding entry: %w", err)
	}
	return intent.NewResult(res.Intent, res.Params), nil
}
