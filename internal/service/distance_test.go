package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-api/internal/models"
	appErrors "github.com/fieldserve/dispatch-api/pkg/errors"
)

type memoryDistanceCache struct {
	entries map[string][]byte
	sets    int
}

func (m *memoryDistanceCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryDistanceCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

type countingResolver struct {
	result models.DistanceResult
	calls  int
}

func (c *countingResolver) GetDistance(_ context.Context, _, _ string) (models.DistanceResult, error) {
	c.calls++
	return c.result, nil
}

func TestCachedDistanceResolverMissThenHit(t *testing.T) {
	upstream := &countingResolver{result: models.DistanceResult{DistanceMiles: 12.5, DurationMinutes: 22}}
	cache := &memoryDistanceCache{}
	resolver := NewCachedDistanceResolver(upstream, cache, time.Hour, nil, nil)

	first, err := resolver.GetDistance(context.Background(), "75201", "75601")
	require.NoError(t, err)
	assert.Equal(t, 12.5, first.DistanceMiles)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := resolver.GetDistance(context.Background(), "75201", "75601")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls)
}

func TestCachedDistanceResolverSymmetricKey(t *testing.T) {
	upstream := &countingResolver{result: models.DistanceResult{DistanceMiles: 8}}
	cache := &memoryDistanceCache{}
	resolver := NewCachedDistanceResolver(upstream, cache, time.Hour, nil, nil)

	_, err := resolver.GetDistance(context.Background(), "75201", "75601")
	require.NoError(t, err)

	// The reverse direction reuses the same cache entry.
	_, err = resolver.GetDistance(context.Background(), "75601", "75201")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	assert.Len(t, cache.entries, 1)
}

type recordingCacheStats struct {
	hits   int
	misses int
}

func (r *recordingCacheStats) RecordCacheOperation(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestCachedDistanceResolverRecordsCacheStats(t *testing.T) {
	upstream := &countingResolver{result: models.DistanceResult{DistanceMiles: 12.5, DurationMinutes: 22}}
	stats := &recordingCacheStats{}
	resolver := NewCachedDistanceResolver(upstream, &memoryDistanceCache{}, time.Hour, stats, nil)

	_, err := resolver.GetDistance(context.Background(), "75201", "75601")
	require.NoError(t, err)
	_, err = resolver.GetDistance(context.Background(), "75201", "75601")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.misses)
	assert.Equal(t, 1, stats.hits)
}

func TestCachedDistanceResolverNoUpstream(t *testing.T) {
	resolver := NewCachedDistanceResolver(nil, &memoryDistanceCache{}, time.Hour, nil, nil)

	_, err := resolver.GetDistance(context.Background(), "75201", "75601")
	require.Error(t, err)
}

func TestDistanceKeyOrdersZips(t *testing.T) {
	assert.Equal(t, distanceKey("75201", "10001"), distanceKey("10001", "75201"))
	assert.Equal(t, "dispatch:distance:10001:75201", distanceKey("75201", "10001"))
}
