//go:build integration

// Package containers starts the backing services integration tests run
// against. Build-tagged so unit test runs never touch Docker.
package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// Redis wraps a disposable Redis instance.
type Redis struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

// NewRedis starts a Redis container and verifies connectivity.
func NewRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis URL: %v", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{Container: container, URL: url, Client: client}
}

// FlushAll clears every key; call between tests that share the container.
func (r *Redis) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
