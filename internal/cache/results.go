// Package cache keeps downloaded provider result files in Redis so a batch
// whose lead updates failed can be retried on the next tick without pulling
// the same files from the provider again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ignite/lead-verifier/internal/pkg/logger"
	"github.com/ignite/lead-verifier/internal/provider"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verification:result:"

// ResultCache is a read-through provider.Downloader. Only successful
// downloads are stored; Redis errors fall back to the wrapped downloader.
type ResultCache struct {
	client *redis.Client
	next   provider.Downloader
	ttl    time.Duration
}

// NewResultCache wraps next with a Redis cache whose entries expire after ttl.
func NewResultCache(client *redis.Client, next provider.Downloader, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{client: client, next: next, ttl: ttl}
}

// Download returns the cached body for url or downloads and stores it.
func (c *ResultCache) Download(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)

	body, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		logger.Debug("cache: result file hit", "key", key)
		return body, nil
	case !errors.Is(err, redis.Nil):
		logger.Warn("cache: redis get failed, downloading directly", "key", key, "error", err)
	}

	body, err = c.next.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		logger.Warn("cache: redis set failed", "key", key, "error", err)
	}
	return body, nil
}

// Forget drops a cached file, used once its batch is fully processed.
func (c *ResultCache) Forget(ctx context.Context, urls ...string) error {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			keys = append(keys, cacheKey(u))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// cacheKey hashes the URL; result links embed the provider credential.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
