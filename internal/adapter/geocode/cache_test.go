package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls int
	place domain.Place
	err   error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.Place, error) {
	m.calls++
	return m.place, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{place: domain.Place{City: "Seattle", State: "WA"}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	p1, err := cached.ReverseGeocode(context.Background(), 47.6062, -122.3321)
	require.NoError(t, err)
	p2, err := cached.ReverseGeocode(context.Background(), 47.6062, -122.3321)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_EmptyNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 47.6, -122.3)
	_, _ = cached.ReverseGeocode(context.Background(), 47.6, -122.3)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 47.6, -122.3)
	require.Error(t, err)

	inner.err = nil
	inner.place = domain.Place{State: "WA"}
	p, err := cached.ReverseGeocode(context.Background(), 47.6, -122.3)
	require.NoError(t, err)
	assert.Equal(t, "WA", p.State)
	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRU[string, domain.Place](2)
	c.put("a", domain.Place{City: "A"})
	c.put("b", domain.Place{City: "B"})

	// Touch "a" so "b" is least recently used.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", domain.Place{City: "C"})

	_, ok = c.get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRU[string, domain.Place](2)
	c.put("a", domain.Place{City: "A"})
	c.put("a", domain.Place{City: "A2"})

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", v.City)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_SingleEntry(t *testing.T) {
	c := newLRU[string, domain.Place](0)
	c.put("a", domain.Place{City: "A"})
	c.put("b", domain.Place{City: "B"})

	_, ok := c.get("a")
	assert.False(t, ok)
	v, ok := c.get("b")
	require.True(t, ok)
	assert.Equal(t, "B", v.City)
}
