// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "records-router/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// GuardConfig holds settings for the per-provider rate limiter and the
// response cache.
type GuardConfig struct {
	// RequestsPerHour is the sustained per-provider request rate
	// (default 1000, matching provider terms of service).
	RequestsPerHour int `json:"requests_per_hour" yaml:"requests_per_hour"`

	// Burst is the token bucket capacity (default 30).
	Burst int `json:"burst" yaml:"burst"`

	// MaxWait bounds how long Acquire blocks for a permit before
	// failing rate-limited (default 2s).
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// CacheTTL is how long cached responses stay valid (default 24h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// CacheSize caps the in-memory response cache entries (default 512).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheDB optionally names a SQLite file backing the cache so
	// responses survive restarts. Empty disables persistence.
	CacheDB string `json:"cache_db,omitempty" yaml:"cache_db,omitempty"`
}

// DispatchConfig holds settings for the concurrent provider fan-out.
type DispatchConfig struct {
	// ProviderTimeout bounds each provider call independently of its
	// siblings (default 5s).
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout"`

	// MaxConcurrent bounds in-flight provider calls (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// FusionConfig holds settings for duplicate clustering and ranking.
// Threshold and tolerance are tunables, not invariants.
type FusionConfig struct {
	// SimilarityThreshold is the minimum token-sort name similarity for
	// two records to cluster (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// YearTolerance is the allowed birth-year difference within a
	// cluster, absorbing transcription error (default 1).
	YearTolerance int `json:"year_tolerance" yaml:"year_tolerance"`

	// ProviderPriority breaks representative ties: earlier providers
	// win (e.g. familysearch before websearch).
	ProviderPriority []string `json:"provider_priority" yaml:"provider_priority"`
}

// RouterConfig groups all stage configurations for the router pipeline.
type RouterConfig struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Guard    GuardConfig    `json:"guard" yaml:"guard"`
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`
	Fusion   FusionConfig   `json:"fusion" yaml:"fusion"`
}

// Defaults fills zero-valued fields with the documented defaults.
func (c RouterConfig) Defaults() RouterConfig {
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "records-router/0.1"
	}
	if c.Guard.RequestsPerHour == 0 {
		c.Guard.RequestsPerHour = 1000
	}
	if c.Guard.Burst == 0 {
		c.Guard.Burst = 30
	}
	if c.Guard.MaxWait == 0 {
		c.Guard.MaxWait = 2 * time.Second
	}
	if c.Guard.CacheTTL == 0 {
		c.Guard.CacheTTL = 24 * time.Hour
	}
	if c.Guard.CacheSize == 0 {
		c.Guard.CacheSize = 512
	}
	if c.Dispatch.ProviderTimeout == 0 {
		c.Dispatch.ProviderTimeout = 5 * time.Second
	}
	if c.Dispatch.MaxConcurrent == 0 {
		c.Dispatch.MaxConcurrent = 4
	}
	if c.Fusion.SimilarityThreshold == 0 {
		c.Fusion.SimilarityThreshold = 0.85
	}
	if c.Fusion.YearTolerance == 0 {
		c.Fusion.YearTolerance = 1
	}
	if len(c.Fusion.ProviderPriority) == 0 {
		c.Fusion.ProviderPriority = []string{"familysearch", "websearch"}
	}
	return c
}
