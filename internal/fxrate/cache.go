package fxrate

import (
	"context"
	"errors"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "fx:rate:"

var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store used to share quotes between instances.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// CachedSource serves quotes from the cache and falls through to the
// upstream source on a miss. Cache failures never fail a lookup.
type CachedSource struct {
	upstream Source
	cache    Cache
	ttl      time.Duration
}

func NewCachedSource(upstream Source, cache Cache, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSource{upstream: upstream, cache: cache, ttl: ttl}
}

func (s *CachedSource) GetRate(ctx context.Context, from, to string) (domain.FxQuote, error) {
	key := cacheKeyPrefix + PairKey(from, to)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var q domain.FxQuote
		if jerr := json.Unmarshal([]byte(raw), &q); jerr == nil && q.Rate > 0 {
			metrics.FxSourceRequests.WithLabelValues("cache").Inc()
			return q, nil
		}
		logger.Warn("Discarding undecodable cached rate", "key", key)
	case !errors.Is(err, ErrCacheMiss):
		logger.Warn("Rate cache read failed", "key", key, "error", err)
	}

	q, err := s.upstream.GetRate(ctx, from, to)
	if err != nil {
		metrics.FxSourceRequests.WithLabelValues("error").Inc()
		return domain.FxQuote{}, err
	}

	if b, err := json.Marshal(q); err == nil {
		if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
			logger.Warn("Rate cache write failed", "key", key, "error", err)
		}
	}
	return q, nil
}
