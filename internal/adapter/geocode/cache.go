package geocode

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/outage-alert-etl/internal/domain"
	"github.com/couchcryptid/outage-alert-etl/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Outage centers
// repeat across polls, so most lookups after the first are hits.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[string, domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder holding at
// most maxEntries places.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRU[string, domain.Place](maxEntries),
		metrics: metrics,
	}
}

// ReverseGeocode serves repeated coordinates from the cache.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if place, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Empty results are not cached so they can be retried next poll.
	if !place.IsZero() {
		c.cache.put(key, place)
	}
	return place, nil
}

// lruCache is a mutex-guarded LRU keyed by rounded coordinates. The list
// front is the most recently used entry.
type lruCache[K comparable, V any] struct {
	capacity int

	mu    sync.Mutex
	order *list.List
	items map[K]*list.Element
}

type lruItem[K comparable, V any] struct {
	key   K
	value V
}

func newLRU[K comparable, V any](capacity int) *lruCache[K, V] {
	return &lruCache[K, V]{
		capacity: max(capacity, 1),
		order:    list.New(),
		items:    make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruItem[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruItem[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&lruItem[K, V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruItem[K, V]).key)
	}
}
