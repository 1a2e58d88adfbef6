package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 3 * time.Second
)

// NewRedisClient parses a redis:// or rediss:// url, fills in timeouts the
// url leaves unset, and pings the server. role names the client in errors
// ("store", "cache").
func NewRedisClient(ctx context.Context, url, role string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis %s url is required", role)
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis %s url: %w", role, err)
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = redisDialTimeout
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisIOTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = redisIOTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", role, err)
	}
	return client, nil
}
