package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/dispatch-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
)

type distanceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheStats interface {
	RecordCacheOperation(hit bool)
}

// CachedDistanceResolver fronts a real distance provider with a Redis
// cache. Zip pairs are symmetric, so both orders hit the same key.
// Resolution never fails loudly: a dead provider falls back to the zip
// heuristic through the caller's ResolveDistance path.
type CachedDistanceResolver struct {
	upstream DistanceResolver
	cache    distanceCache
	ttl      time.Duration
	stats    cacheStats
	logger   *zap.Logger
}

// NewCachedDistanceResolver wires the cache in front of an upstream
// provider. Any of upstream, cache and stats may be nil.
func NewCachedDistanceResolver(upstream DistanceResolver, cache distanceCache, ttl time.Duration, stats cacheStats, logger *zap.Logger) *CachedDistanceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedDistanceResolver{upstream: upstream, cache: cache, ttl: ttl, stats: stats, logger: logger}
}

// GetDistance returns the cached distance for the zip pair, consulting the
// upstream provider on a miss and writing the result back.
func (r *CachedDistanceResolver) GetDistance(ctx context.Context, fromZip, toZip string) (models.DistanceResult, error) {
	key := distanceKey(fromZip, toZip)

	if r.cache != nil {
		var cached models.DistanceResult
		err := r.cache.Get(ctx, key, &cached)
		if err == nil {
			if r.stats != nil {
				r.stats.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if r.stats != nil {
			r.stats.RecordCacheOperation(false)
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			r.logger.Warn("distance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if r.upstream == nil {
		return models.DistanceResult{}, appErrors.ErrCacheMiss
	}

	result, err := r.upstream.GetDistance(ctx, fromZip, toZip)
	if err != nil {
		return models.DistanceResult{}, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, result, r.ttl); err != nil {
			r.logger.Warn("distance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

func distanceKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dispatch:distance:%s:%s", a, b)
}
