// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guard protects record providers from overload. It combines a
// per-provider token bucket with a time-boxed response cache so repeated
// queries are satisfied without re-dispatch and burst traffic never
// exceeds a provider's terms of service.
// See docs/ARCHITECTURE.md § Rate/Cache Guard.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/records-router/pkg/types"
)

// ErrRateLimited is returned by Acquire when a permit cannot be granted
// within the configured wait budget. Callers surface it as a provider
// outcome, never as a fatal error.
var ErrRateLimited = errors.New("provider rate limit exceeded")

// Guard owns the token buckets and the response cache shared by all
// concurrent dispatches. It is constructed once and injected, so tests
// can substitute isolated instances.
type Guard struct {
	cfg types.GuardConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	cache *memoryCache
	store Store
}

// New creates a Guard from cfg (zero fields take documented defaults).
// An optional Store persists cached responses across restarts; pass nil
// for a purely in-memory cache.
func New(cfg types.GuardConfig, store Store) *Guard {
	cfg = types.RouterConfig{Guard: cfg}.Defaults().Guard
	return &Guard{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		cache:    newMemoryCache(cfg.CacheSize, cfg.CacheTTL),
		store:    store,
	}
}

// limiter returns the bucket for providerID, creating it on first use.
func (g *Guard) limiter(providerID string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[providerID]
	if !ok {
		perHour := rate.Limit(float64(g.cfg.RequestsPerHour) / 3600.0)
		lim = rate.NewLimiter(perHour, g.cfg.Burst)
		g.limiters[providerID] = lim
	}
	return lim
}

// Acquire obtains a request permit for providerID. It returns nil
// immediately when a token is available, blocks up to the configured
// MaxWait when the bucket is refilling, and fails with ErrRateLimited
// when the wait would exceed that budget. Context cancellation aborts
// a pending wait.
func (g *Guard) Acquire(ctx context.Context, providerID string) error {
	res := g.limiter(providerID).Reserve()
	if !res.OK() {
		return ErrRateLimited
	}
	delay := res.Delay()
	if delay > g.cfg.MaxWait {
		res.Cancel()
		return ErrRateLimited
	}
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Lookup returns the cached response for key, or nil on a miss. A hit in
// the persistent store repopulates the in-memory cache. A hit bypasses
// rate limiting entirely: callers check Lookup before Acquire.
func (g *Guard) Lookup(key string) *types.ProviderResult {
	if res := g.cache.get(key); res != nil {
		return res
	}
	if g.store == nil {
		return nil
	}
	notBefore := time.Now().Add(-g.cfg.CacheTTL)
	res, err := g.store.Get(key, notBefore)
	if err != nil || res == nil {
		return nil
	}
	g.cache.put(key, res)
	return res
}

// StoreResponse caches a successful provider response under key. Failed
// calls must never be stored; transient errors would otherwise be served
// for a full TTL. Writes are last-write-wins: concurrent dispatches of
// the same key derive the same value.
func (g *Guard) StoreResponse(key string, res *types.ProviderResult) error {
	g.cache.put(key, res)
	if g.store == nil {
		return nil
	}
	return g.store.Put(key, res, time.Now())
}

// ProviderStats reports the current state of one provider's bucket.
type ProviderStats struct {
	ProviderID      string  `json:"provider_id"`
	TokensAvailable float64 `json:"tokens_available"`
	RequestsPerHour int     `json:"requests_per_hour"`
	Burst           int     `json:"burst"`
}

// Stats returns bucket state for every provider seen so far.
func (g *Guard) Stats() []ProviderStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	stats := make([]ProviderStats, 0, len(g.limiters))
	for id, lim := range g.limiters {
		stats = append(stats, ProviderStats{
			ProviderID:      id,
			TokensAvailable: lim.Tokens(),
			RequestsPerHour: g.cfg.RequestsPerHour,
			Burst:           g.cfg.Burst,
		})
	}
	return stats
}

// Close releases the persistent store, if any.
func (g *Guard) Close() error {
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}
