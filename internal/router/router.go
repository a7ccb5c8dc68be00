// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router is the single entry point for record searches. It
// drives the pipeline (dispatch, normalization, fusion) and returns the
// ranked record list together with a per-provider outcome report, so
// partial provider failure degrades the result set instead of failing
// the query.
// See docs/ARCHITECTURE.md § Router Facade.
package router

import (
	"context"
	"errors"
	"io"

	"github.com/pdiddy/records-router/internal/dispatch"
	"github.com/pdiddy/records-router/internal/fuse"
	"github.com/pdiddy/records-router/internal/guard"
	"github.com/pdiddy/records-router/internal/normalize"
	"github.com/pdiddy/records-router/internal/provider"
	"github.com/pdiddy/records-router/pkg/types"
)

// ErrAllProvidersUnavailable is returned only when every selected
// provider failed and the cache held nothing. Callers still receive the
// outcome report alongside it.
var ErrAllProvidersUnavailable = errors.New("all selected providers unavailable")

// Router owns the injected pipeline components. Construct one per
// process (or per test) with New; it has no global state.
type Router struct {
	registry *provider.Registry
	guard    *guard.Guard
	places   normalize.PlaceResolver
	cfg      types.RouterConfig
	w        io.Writer
}

// New assembles a Router. places may be nil to skip place resolution;
// w receives human-readable warnings (io.Discard silences them).
func New(registry *provider.Registry, g *guard.Guard, places normalize.PlaceResolver, cfg types.RouterConfig, w io.Writer) *Router {
	return &Router{
		registry: registry,
		guard:    g,
		places:   places,
		cfg:      cfg.Defaults(),
		w:        w,
	}
}

// Report is the full answer to one query: the fused record list plus
// one outcome per selected provider, in selection order.
type Report struct {
	Records     []types.FusedRecord    `json:"records" yaml:"records"`
	Outcomes    []types.ProviderOutcome `json:"provider_outcomes" yaml:"provider_outcomes"`
	DupsRemoved int                    `json:"duplicates_removed" yaml:"duplicates_removed"`
}

// SearchRecords runs one query end to end. It never fails for partial
// provider failure; ErrAllProvidersUnavailable is the only error, and
// even then the report carries the outcome detail. Zero selected
// providers is a no-op, not an error.
func (r *Router) SearchRecords(ctx context.Context, q types.Query) (*Report, error) {
	if len(q.Providers) == 0 {
		return &Report{}, nil
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 20
	}

	adapters := r.registry.Select(q.Providers)
	results := dispatch.Dispatch(ctx, q, q.Providers, adapters, r.guard, r.cfg.Dispatch, r.w)

	var all []types.CanonicalRecord
	outcomes := make([]types.ProviderOutcome, len(results))
	anyOK := false
	for i, res := range results {
		outcome := res.Outcome
		if res.Res != nil {
			norm := normalize.Normalize(res.Res, r.places, q.Year)
			all = append(all, norm.Records...)
			// Report what survived normalization, not what the
			// provider claimed to return.
			outcome.ResultCount = len(norm.Records)
		}
		if outcome.OK() {
			anyOK = true
		}
		outcomes[i] = outcome
	}

	fused := fuse.Fuse(all, r.cfg.Fusion, 0)
	dups := len(all) - len(fused)
	if len(fused) > q.MaxResults {
		fused = fused[:q.MaxResults]
	}

	report := &Report{Records: fused, Outcomes: outcomes, DupsRemoved: dups}
	if !anyOK && len(fused) == 0 {
		return report, ErrAllProvidersUnavailable
	}
	return report, nil
}

// RecordObject is the plain shape handed to upstream callers (CLI,
// higher-level tools): canonical fields only, no raw payload.
type RecordObject struct {
	Name             string  `json:"name"`
	BirthDate        string  `json:"birth_date,omitempty"`
	EventPlace       string  `json:"event_place,omitempty"`
	RecordURL        string  `json:"record_url,omitempty"`
	ProviderRecordID string  `json:"provider_record_id"`
	Confidence       float64 `json:"confidence"`
	SourceCount      int     `json:"source_count"`
}

// PlainRecords projects the fused records into caller-facing objects.
func (r *Report) PlainRecords() []RecordObject {
	out := make([]RecordObject, len(r.Records))
	for i, f := range r.Records {
		out[i] = RecordObject{
			Name:             f.Name,
			BirthDate:        f.BirthDate,
			EventPlace:       f.EventPlace,
			RecordURL:        f.RecordURL,
			ProviderRecordID: f.RecordID,
			Confidence:       f.Confidence,
			SourceCount:      f.SourceCount,
		}
	}
	return out
}
