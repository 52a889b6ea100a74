package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LinkCache stores presigned links under a key prefix.
type LinkCache struct {
	client goredis.Cmdable
	prefix string
}

func New(addr, password string, db int) (*LinkCache, *goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewLinkCache(client, ""), client, nil
}

func NewLinkCache(client goredis.Cmdable, prefix string) *LinkCache {
	if prefix == "" {
		prefix = "docqa:link:"
	}
	return &LinkCache{client: client, prefix: prefix}
}

func (c *LinkCache) Get(ctx context.Context, key string) (string, bool, error) {
	link, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get link: %w", err)
	}
	return link, true, nil
}

func (c *LinkCache) Set(ctx context.Context, key, link string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, link, ttl).Err(); err != nil {
		return fmt.Errorf("redis set link: %w", err)
	}
	return nil
}
