package geo

import (
	"context"
	"strings"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geo:zip:"

// negativeMarker caches not-found ZIPs so repeated reconciliation runs do not
// hammer the upstream for the same bad ZIP.
const negativeMarker = "!"

// CachedResolver wraps a resolver with a redis cache. ZIP to county/state
// mappings are effectively static, so a long TTL is safe. Cache failures
// degrade to the inner resolver, never to an error.
type CachedResolver struct {
	inner coverage.GeoLookup
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedResolver decorates inner with a redis cache.
func NewCachedResolver(inner coverage.GeoLookup, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedResolver {
	return &CachedResolver{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

// Resolve implements coverage.GeoLookup.
func (c *CachedResolver) Resolve(ctx context.Context, zip string) (coverage.Place, error) {
	key := cacheKeyPrefix + zip

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cached == negativeMarker {
			return coverage.Place{}, apperr.NotFound("zip not found: " + zip)
		}
		if county, state, ok := strings.Cut(cached, "|"); ok {
			return coverage.Place{County: county, State: state}, nil
		}
	case err != redis.Nil:
		c.log.Warn("geo cache read failed", "zip", zip, "error", err)
	}

	place, err := c.inner.Resolve(ctx, zip)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			c.store(ctx, key, negativeMarker)
		}
		return coverage.Place{}, err
	}

	c.store(ctx, key, place.County+"|"+place.State)
	return place, nil
}

func (c *CachedResolver) store(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn("geo cache write failed", "key", key, "error", err)
	}
}

// Compile-time check that CachedResolver implements coverage.GeoLookup
var _ coverage.GeoLookup = (*CachedResolver)(nil)
