package caching

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient accepts either host:port or a redis:// URL.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
		if password != "" {
			opts.Password = password
		}
	} else {
		opts = &redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
