// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guard

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/records-router/pkg/types"
)

// CacheKey derives the stable cache key for one provider's view of a
// query: an FNV-1a hash over the provider ID and the normalized query
// fields. Queries differing only in whitespace or case share a key.
func CacheKey(providerID string, q types.Query) string {
	h := fnv.New64a()
	h.Write([]byte(providerID))
	for _, f := range q.CacheFields() {
		h.Write([]byte{0x1f})
		h.Write([]byte(f))
	}
	return fmt.Sprintf("%s:%016x", providerID, h.Sum64())
}

// ProviderFromKey recovers the provider ID prefix of a cache key.
func ProviderFromKey(key string) string {
	if i := strings.LastIndex(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}

// memoryCache is the in-process response cache: a size-bounded LRU whose
// entries expire after the configured TTL.
type memoryCache struct {
	lru *expirable.LRU[string, *types.ProviderResult]
}

func newMemoryCache(size int, ttl time.Duration) *memoryCache {
	return &memoryCache{
		lru: expirable.NewLRU[string, *types.ProviderResult](size, nil, ttl),
	}
}

func (c *memoryCache) get(key string) *types.ProviderResult {
	res, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	return res
}

func (c *memoryCache) put(key string, res *types.ProviderResult) {
	c.lru.Add(key, res)
}

// Store persists cached responses beyond process lifetime. Get returns
// (nil, nil) on a miss or when the entry is older than notBefore.
type Store interface {
	Get(key string, notBefore time.Time) (*types.ProviderResult, error)
	Put(key string, res *types.ProviderResult, storedAt time.Time) error
	Close() error
}
