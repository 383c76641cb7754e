package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for cached verification results.
const resultKeyPrefix = "verify:result:"

// RedisCache shares classified results across instances. Recommended for
// deployments where several replicas may see the same invoice.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed result cache. A non-positive TTL
// caches forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Result, error) {
	data, err := r.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, ErrCacheMiss
	}
	if err != nil {
		return Result{}, fmt.Errorf("read cached result: %w", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("decode cached result: %w", err)
	}
	return result, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if err := r.client.Set(ctx, resultKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("write cached result: %w", err)
	}
	return nil
}
