// Package redis wraps the go-redis client behind the server configuration.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signoff/internal/platform/config"
)

// Client embeds the go-redis client so callers keep its full API.
type Client struct {
	*redis.Client
}

// New dials Redis from the configuration and verifies the connection with a
// ping before handing it out. An empty URL means caching is disabled; that
// returns nil, nil so callers can branch on the client alone.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}
