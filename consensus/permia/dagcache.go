// Copyright 2024 The go-equa Authors

package permia

import (
	"encoding/binary"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
)

// dagCacheBytes bounds the in-memory cache of generated DAG elements. This
// is a memoization layer only: every entry is reproducible on demand from
// dagElement, so the cache can be sized well below the conceptual 4 GiB DAG
// without changing verification results.
const dagCacheBytes = 256 * 1024 * 1024

// DAGCache memoizes dagElement lookups for one epoch. It is read-mostly
// once warm; callers across goroutines share a single instance per epoch.
type DAGCache struct {
	mu        sync.RWMutex
	epochSeed [32]byte
	cache     *fastcache.Cache
}

// NewDAGCache creates a cache bound to a single epoch seed.
func NewDAGCache(epochSeed [32]byte) *DAGCache {
	return &DAGCache{
		epochSeed: epochSeed,
		cache:     fastcache.New(dagCacheBytes),
	}
}

// Element returns the DAG element at index, computing and memoizing it on
// first access.
func (c *DAGCache) Element(index uint64) [DAGElementSize]byte {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], index)

	c.mu.RLock()
	if v, ok := c.cache.HasGet(nil, key[:]); ok {
		c.mu.RUnlock()
		var el [DAGElementSize]byte
		copy(el[:], v)
		return el
	}
	c.mu.RUnlock()

	el := dagElement(&c.epochSeed, index)

	c.mu.Lock()
	c.cache.Set(key[:], el[:])
	c.mu.Unlock()

	return el
}

// Reset discards every memoized element, for reuse across an epoch
// boundary without reallocating the underlying cache.
func (c *DAGCache) Reset(epochSeed [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochSeed = epochSeed
	c.cache.Reset()
}
