package postgres

import (
	"context"
	"fmt"
	"time"

	"telegram-vpn-shop/internal/domain/ports/repository"
	"telegram-vpn-shop/internal/infra/metrics"
	red "telegram-vpn-shop/internal/infra/redis"
)

var _ repository.SettingsRepository = (*settingsRepoCacheDecorator)(nil)

// settingsRepoCacheDecorator caches individual settings in Redis. Webhook
// handlers read provider secrets on every delivery; the cache keeps that off
// the database.
type settingsRepoCacheDecorator struct {
	inner repository.SettingsRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSettingsRepoCacheDecorator(inner repository.SettingsRepository, cache red.RedisClient, ttl time.Duration) repository.SettingsRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &settingsRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func settingKey(key string) string { return fmt.Sprintf("setting:%s", key) }

func (d *settingsRepoCacheDecorator) Get(ctx context.Context, key string) (string, error) {
	val, err := d.cache.Get(ctx, settingKey(key))
	if err == nil {
		metrics.IncCacheRequest("setting", "hit")
		return val, nil
	}
	// redis.Nil and real Redis errors both fall through to the database
	metrics.IncCacheRequest("setting", "miss")
	val, err = d.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if val != "" {
		_ = d.cache.Set(ctx, settingKey(key), val, d.ttl)
	}
	return val, nil
}

// Writes invalidate the cached entry.
func (d *settingsRepoCacheDecorator) Set(ctx context.Context, key, value string) error {
	_ = d.cache.Del(ctx, settingKey(key))
	return d.inner.Set(ctx, key, value)
}

func (d *settingsRepoCacheDecorator) All(ctx context.Context) (map[string]string, error) {
	// listing is an admin-panel path; no point caching it
	return d.inner.All(ctx)
}
