package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// RedisCache is a read-through cache in front of another Source. Redis
// failures are logged and the request falls through to the wrapped source.
type RedisCache struct {
	rdb    *redis.Client
	next   Source
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

func NewRedisCache(rdb *redis.Client, next Source, ttl time.Duration, log *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{rdb: rdb, next: next, ttl: ttl, prefix: "slotkeeper:settings", log: log}
}

func (c *RedisCache) key(providerID string) string {
	return c.prefix + ":" + strings.TrimSpace(providerID)
}

func (c *RedisCache) Get(ctx context.Context, providerID string) (Payload, error) {
	raw, err := c.rdb.Get(ctx, c.key(providerID)).Bytes()
	switch {
	case err == nil:
		var p Payload
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		c.log.Warn("discarding undecodable cached settings", slog.String("provider_id", providerID))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("settings cache read failed", slog.String("provider_id", providerID), slog.Any("err", err))
	}

	p, err := c.next.Get(ctx, providerID)
	if err != nil {
		return Payload{}, err
	}

	c.store(ctx, providerID, p)
	return p, nil
}

// store caches p only when it normalizes cleanly. Disabled or broken
// documents are read through every time so a fix shows up immediately.
func (c *RedisCache) store(ctx context.Context, providerID string, p Payload) {
	if _, err := Normalize(providerID, p); err != nil {
		return
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(providerID), encoded, c.ttl).Err(); err != nil {
		c.log.Warn("settings cache write failed", slog.String("provider_id", providerID), slog.Any("err", err))
	}
}

// Invalidate drops the cached document so the next Get reads through.
func (c *RedisCache) Invalidate(ctx context.Context, providerID string) error {
	return c.rdb.Del(ctx, c.key(providerID)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
