package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

const cacheKeyPrefix = "extraction:"

// CachedResult is what gets stored per narrative text.
type CachedResult struct {
	Fields     models.FusedResult      `json:"fields"`
	Strategies map[models.Strategy]int `json:"strategies"`
}

// TextHash is the hex sha256 of text; it keys both the cache and the audit row.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func CacheKey(text string) string {
	return cacheKeyPrefix + TextHash(text)
}

// RedisCache stores fused results in Redis. Failures are logged and
// reported as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, text string) (*CachedResult, bool) {
	raw, err := c.client.Get(ctx, CacheKey(text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).Warn("extraction cache read failed")
		}
		return nil, false
	}

	var cached CachedResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		logger.Log.WithError(err).Warn("discarding corrupt cache entry")
		return nil, false
	}
	if cached.Fields == nil {
		cached.Fields = models.FusedResult{}
	}
	return &cached, true
}

func (c *RedisCache) Set(ctx context.Context, text string, result CachedResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Log.WithError(err).Warn("extraction cache encode failed")
		return
	}
	if err := c.client.Set(ctx, CacheKey(text), raw, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("extraction cache write failed")
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
