package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options describes how to reach the key-value backend.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New creates a pooled Redis client and verifies connectivity before
// handing it out. The caller owns the client and closes it on shutdown.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
