// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch fans one query out to every selected provider adapter
// through the rate/cache guard. Providers run concurrently under a
// bounded limit; each has an independent timeout, and one provider's
// failure never aborts its siblings. The dispatcher converts every
// failure into a ProviderOutcome so callers always get a full report.
// See docs/ARCHITECTURE.md § Dispatch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/records-router/internal/guard"
	"github.com/pdiddy/records-router/internal/provider"
	"github.com/pdiddy/records-router/pkg/types"
)

// Result pairs one provider's response with its outcome. Res is nil
// unless the outcome status is ok.
type Result struct {
	Res     *types.ProviderResult
	Outcome types.ProviderOutcome
}

// Dispatch queries every selected adapter concurrently and returns one
// Result per adapter, in input order regardless of completion order, so
// callers correlate deterministically. A nil adapter slot (unregistered
// provider ID) yields a skipped outcome. Dispatch never returns an
// error: when all providers fail the caller still receives the full
// outcome list and decides what that means.
func Dispatch(ctx context.Context, q types.Query, ids []string, adapters []provider.Adapter, g *guard.Guard, cfg types.DispatchConfig, w io.Writer) []Result {
	results := make([]Result, len(adapters))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.MaxConcurrent)

	for i := range adapters {
		grp.Go(func() error {
			results[i] = dispatchOne(ctx, q, ids[i], adapters[i], g, cfg.ProviderTimeout)
			return nil
		})
	}
	grp.Wait()

	for _, r := range results {
		if !r.Outcome.OK() {
			fmt.Fprintf(w, "warning: provider %s failed: %s: %s\n",
				r.Outcome.ProviderID, r.Outcome.Status, r.Outcome.ErrorDetail)
		}
	}
	return results
}

// dispatchOne runs the guard-and-search sequence for a single provider:
// cache lookup, permit acquisition, adapter call, cache store.
func dispatchOne(ctx context.Context, q types.Query, id string, a provider.Adapter, g *guard.Guard, timeout time.Duration) Result {
	if a == nil {
		return Result{Outcome: types.ProviderOutcome{
			ProviderID:  id,
			Status:      types.StatusSkipped,
			ErrorDetail: "provider not registered",
		}}
	}

	start := time.Now()
	key := guard.CacheKey(id, q)

	// A cache hit bypasses rate limiting entirely.
	if cached := g.Lookup(key); cached != nil {
		return Result{
			Res: cached,
			Outcome: types.ProviderOutcome{
				ProviderID:  id,
				Status:      types.StatusOK,
				ResultCount: len(cached.Records),
				LatencyMs:   time.Since(start).Milliseconds(),
				Cached:      true,
			},
		}
	}

	if err := g.Acquire(ctx, id); err != nil {
		status := types.StatusRateLimited
		if !errors.Is(err, guard.ErrRateLimited) {
			status = types.StatusTimeout // context expired while waiting
		}
		return Result{Outcome: types.ProviderOutcome{
			ProviderID:  id,
			Status:      status,
			ErrorDetail: err.Error(),
			LatencyMs:   time.Since(start).Milliseconds(),
		}}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := a.Search(callCtx, q)
	latency := time.Since(start)
	if err != nil {
		return Result{Outcome: types.ProviderOutcome{
			ProviderID:  id,
			Status:      statusForError(err),
			ErrorDetail: err.Error(),
			LatencyMs:   latency.Milliseconds(),
		}}
	}

	// Only successful calls populate the cache; storing failures would
	// serve a transient error for a full TTL.
	_ = g.StoreResponse(key, res)

	return Result{
		Res: res,
		Outcome: types.ProviderOutcome{
			ProviderID:  id,
			Status:      types.StatusOK,
			ResultCount: len(res.Records),
			LatencyMs:   latency.Milliseconds(),
		},
	}
}

// statusForError maps adapter failures onto outcome statuses.
func statusForError(err error) types.ProviderStatus {
	switch provider.KindOf(err) {
	case provider.KindTimeout:
		return types.StatusTimeout
	case "":
		if errors.Is(err, context.DeadlineExceeded) {
			return types.StatusTimeout
		}
		return types.StatusError
	default:
		return types.StatusError
	}
}
