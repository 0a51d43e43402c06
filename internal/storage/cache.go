package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const guildCachePrefix = "guild-config:"

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached is a read-through guild config cache in front of another Store.
// Upserts and deletes invalidate the cached document, so the dashboard and
// the bot see the same config after a write.
type Cached struct {
	Store
	rdb    RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(inner Store, rdb RedisClient, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{Store: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cached) FindGuildConfig(ctx context.Context, guildID string) (*GuildConfig, error) {
	key := guildCachePrefix + guildID
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cfg GuildConfig
		if jsonErr := json.Unmarshal(raw, &cfg); jsonErr == nil {
			return &cfg, nil
		}
		c.logger.Warn("guild cache entry corrupt", zap.String("guild_id", guildID))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("guild cache read failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	cfg, err := c.Store.FindGuildConfig(ctx, guildID)
	if err != nil || cfg == nil {
		return cfg, err
	}
	if payload, jsonErr := json.Marshal(cfg); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("guild cache write failed", zap.String("guild_id", guildID), zap.Error(setErr))
		}
	}
	return cfg, nil
}

func (c *Cached) UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error {
	if err := c.Store.UpsertGuildConfig(ctx, cfg); err != nil {
		return err
	}
	c.invalidate(ctx, cfg.GuildID)
	return nil
}

func (c *Cached) DeleteGuildConfig(ctx context.Context, guildID string) error {
	if err := c.Store.DeleteGuildConfig(ctx, guildID); err != nil {
		return err
	}
	c.invalidate(ctx, guildID)
	return nil
}

func (c *Cached) invalidate(ctx context.Context, guildID string) {
	if err := c.rdb.Del(ctx, guildCachePrefix+guildID).Err(); err != nil {
		c.logger.Warn("guild cache invalidate failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}
