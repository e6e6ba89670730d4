package ml

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// CacheKey identifies one bundle inference.
type CacheKey struct {
	ModelVersion string
	FeatureTime  time.Time
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%d", k.ModelVersion, k.FeatureTime.UnixMilli())
}

// InferenceCache keeps recent bundle outputs so repeated runs on the same
// feature row skip the models.
type InferenceCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewInferenceCache creates a new inference cache
func NewInferenceCache(ttl time.Duration, maxSize int) *InferenceCache {
	return &InferenceCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached inference
func (c *InferenceCache) Get(key CacheKey) (*Inference, bool) {
	result, found := c.cache.Get(key.String())

	c.mu.Lock()
	defer c.mu.Unlock()
	if found {
		if inf, ok := result.(*Inference); ok {
			c.hitCount++
			c.updateMetrics()
			return inf, true
		}
	}
	c.missCount++
	c.updateMetrics()
	return nil, false
}

// Set stores an inference
func (c *InferenceCache) Set(key CacheKey, inf *Inference) {
	if c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}
	c.cache.Set(key.String(), inf, c.ttl)
}

// Clear flushes the entire cache
func (c *InferenceCache) Clear() {
	c.cache.Flush()

	c.mu.Lock()
	c.hitCount = 0
	c.missCount = 0
	c.mu.Unlock()
}

// Stats returns cache statistics
func (c *InferenceCache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats()
}

func (c *InferenceCache) stats() (hits, misses uint64, ratio float64) {
	hits, misses = c.hitCount, c.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// caller holds mu
func (c *InferenceCache) updateMetrics() {
	_, _, ratio := c.stats()
	MLCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (c *InferenceCache) ItemCount() int {
	return c.cache.ItemCount()
}
