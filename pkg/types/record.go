// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// ProviderResult is one provider's native response to a query: an ordered
// sequence of provider-native records plus call metadata. It is owned by
// the adapter that produced it until the normalizer consumes it.
type ProviderResult struct {
	ProviderID string `json:"provider_id"`

	// Records are provider-native payloads, opaque until normalization.
	Records []json.RawMessage `json:"records"`

	// Truncated marks responses clipped at the provider's page size.
	Truncated bool `json:"truncated,omitempty"`

	// NextPage is the provider's continuation token, when paginated.
	NextPage string `json:"next_page,omitempty"`

	// Latency is the duration of the upstream call.
	Latency time.Duration `json:"latency"`
}

// CanonicalRecord is a provider record normalized into the common schema,
// independent of the originating provider's native format.
type CanonicalRecord struct {
	// RecordID is provider-qualified and globally unique per
	// provider+native-id pair (e.g. "familysearch:FS123"). Two records
	// from different providers may describe the same real-world record
	// without sharing an ID; fusion reconciles them.
	RecordID string `json:"record_id" yaml:"record_id"`

	// ProviderID identifies the provider that produced this record.
	ProviderID string `json:"provider_id" yaml:"provider_id"`

	// Name is the person name as the provider returned it.
	Name string `json:"name" yaml:"name"`

	// NormalizedName is the lowercased, punctuation-stripped form used
	// for duplicate matching.
	NormalizedName string `json:"normalized_name" yaml:"normalized_name"`

	// BirthDate and DeathDate are provider-reported date strings.
	// A bare year ("1850") is common in historical records.
	BirthDate string `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	DeathDate string `json:"death_date,omitempty" yaml:"death_date,omitempty"`

	// EventPlace is the normalized place associated with the record.
	EventPlace string `json:"event_place,omitempty" yaml:"event_place,omitempty"`

	// RecordURL links to the record on the provider's site.
	RecordURL string `json:"record_url,omitempty" yaml:"record_url,omitempty"`

	// Confidence in [0,1] reflects field completeness at normalization
	// time. It is the dominant term of the fused rank score.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Raw preserves the provider-native payload for audit.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// FusedRecord is a cluster of near-duplicate canonical records collapsed
// into its representative. It is the only artifact returned to callers
// and is immutable once constructed.
type FusedRecord struct {
	CanonicalRecord `yaml:",inline"`

	// MergedFrom lists the record IDs of every cluster member,
	// representative included. SourceCount == len(MergedFrom) >= 1.
	MergedFrom []string `json:"merged_from" yaml:"merged_from"`

	// SourceCount is the cluster size.
	SourceCount int `json:"source_count" yaml:"source_count"`

	// RankScore orders the final list: confidence boosted by
	// cross-provider corroboration.
	RankScore float64 `json:"rank_score" yaml:"rank_score"`
}

// ProviderStatus classifies the outcome of one provider dispatch.
type ProviderStatus string

const (
	StatusOK          ProviderStatus = "ok"
	StatusError       ProviderStatus = "error"
	StatusTimeout     ProviderStatus = "timeout"
	StatusRateLimited ProviderStatus = "rate_limited"
	StatusSkipped     ProviderStatus = "skipped"
)

// ProviderOutcome reports how one provider fared for one query. The
// dispatcher emits exactly one outcome per selected provider, in the
// caller's selection order, so gaps in the result set are explainable.
type ProviderOutcome struct {
	ProviderID  string         `json:"provider_id" yaml:"provider_id"`
	Status      ProviderStatus `json:"status" yaml:"status"`
	ErrorDetail string         `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`

	// ResultCount is the number of records that survived normalization.
	ResultCount int `json:"result_count" yaml:"result_count"`

	// LatencyMs is the wall-clock time of the provider call, or of the
	// cache lookup on a hit.
	LatencyMs int64 `json:"latency_ms" yaml:"latency_ms"`

	// Cached marks outcomes satisfied from the response cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// OK reports whether the provider produced a usable response.
func (o ProviderOutcome) OK() bool { return o.Status == StatusOK }
