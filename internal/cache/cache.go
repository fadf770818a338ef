package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
)

// Cache is a best-effort wrapper around Redis. Every failure is logged and
// swallowed: cached data is derived and disposable, so the absence of the
// cache changes latency, never correctness. A nil or disabled Cache is safe
// to call.
type Cache struct {
	client *redis.Client
}

// New connects to Redis when caching is enabled. A failed connection
// disables the cache instead of failing startup.
func New(cfg *config.Config) *Cache {
	if !cfg.CacheEnabled {
		slog.Info("cache disabled by configuration")
		return &Cache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
		DB:   cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis ping failed, cache disabled", "addr", cfg.RedisAddr(), "error", err)
		return &Cache{}
	}

	slog.Info("redis connection established", "addr", cfg.RedisAddr())
	return &Cache{client: client}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached payload and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("redis GET failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Error("redis SET failed", "key", key, "error", err)
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Error("redis DEL failed", "keys", keys, "error", err)
	}
}

// DeletePattern removes every key matching pattern using SCAN, so large
// keyspaces don't block Redis the way KEYS would.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				slog.Error("redis DEL failed for pattern batch", "pattern", pattern, "error", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		slog.Error("redis SCAN failed", "pattern", pattern, "error", err)
		return
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			slog.Error("redis DEL failed for pattern batch", "pattern", pattern, "error", err)
		}
	}
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
