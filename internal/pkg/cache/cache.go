package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

var client *redis.Client

// SetupCache connects the shared Redis client (DB 0). A failed ping is only a
// warning; callers that need Redis fall back or fail on first use.
func SetupCache(cfg config.CacheConfig) {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] Could not connect to redis at %s: %v", client.Options().Addr, err)
		return
	}
	log.Infof("[Cache] Connected to redis at %s", client.Options().Addr)
}

// GetClient returns the shared client or nil when SetupCache was not called.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the shared client. Tests use this to point at an isolated DB.
func SetClient(c *redis.Client) {
	client = c
}

// Available reports whether a client is configured and answers a ping.
func Available(ctx context.Context) bool {
	if client == nil {
		return false
	}
	return client.Ping(ctx).Err() == nil
}

func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if client == nil {
		return redis.ErrClosed
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Get returns redis.Nil when the key is missing.
func Get(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", redis.Nil
	}
	return client.Get(ctx, key).Result()
}

func Delete(ctx context.Context, key string) error {
	if client == nil {
		return nil
	}
	return client.Del(ctx, key).Err()
}
