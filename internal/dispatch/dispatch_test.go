package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/records-router/internal/guard"
	"github.com/pdiddy/records-router/internal/provider"
	"github.com/pdiddy/records-router/pkg/types"
)

// fakeAdapter is a scriptable provider for dispatcher tests.
type fakeAdapter struct {
	id      string
	records int
	err     error
	delay   time.Duration

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Search(ctx context.Context, _ types.Query) (*types.ProviderResult, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		old := f.maxActive.Load()
		if n <= old || f.maxActive.CompareAndSwap(old, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, provider.Errf(f.id, provider.KindTimeout, "%v", ctx.Err())
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	recs := make([]json.RawMessage, f.records)
	for i := range recs {
		recs[i] = json.RawMessage(fmt.Sprintf(`{"id":"%s-%d","name":"John Smith"}`, f.id, i))
	}
	return &types.ProviderResult{ProviderID: f.id, Records: recs}, nil
}

func testGuard() *guard.Guard {
	return guard.New(types.GuardConfig{
		RequestsPerHour: 1,
		Burst:           100,
		MaxWait:         10 * time.Millisecond,
		CacheTTL:        time.Hour,
		CacheSize:       16,
	}, nil)
}

func testDispatchCfg() types.DispatchConfig {
	return types.DispatchConfig{ProviderTimeout: 200 * time.Millisecond, MaxConcurrent: 4}
}

func runDispatch(t *testing.T, adapters []provider.Adapter, ids []string, g *guard.Guard, cfg types.DispatchConfig) []Result {
	t.Helper()
	return Dispatch(context.Background(), types.Query{Surname: "Smith"}, ids, adapters, g, cfg, io.Discard)
}

func TestDispatchOutcomeOrderIsInputOrder(t *testing.T) {
	slow := &fakeAdapter{id: "slow", records: 1, delay: 50 * time.Millisecond}
	fast := &fakeAdapter{id: "fast", records: 2}

	results := runDispatch(t, []provider.Adapter{slow, fast}, []string{"slow", "fast"}, testGuard(), testDispatchCfg())

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Outcome.ProviderID != "slow" || results[1].Outcome.ProviderID != "fast" {
		t.Errorf("outcome order = [%s %s], want input order regardless of completion",
			results[0].Outcome.ProviderID, results[1].Outcome.ProviderID)
	}
}

func TestDispatchIsolatesTimeout(t *testing.T) {
	hung := &fakeAdapter{id: "hung", delay: time.Hour}
	ok := &fakeAdapter{id: "ok", records: 5}

	results := runDispatch(t, []provider.Adapter{hung, ok}, []string{"hung", "ok"}, testGuard(), testDispatchCfg())

	if results[0].Outcome.Status != types.StatusTimeout {
		t.Errorf("hung status = %s, want timeout", results[0].Outcome.Status)
	}
	if results[1].Outcome.Status != types.StatusOK || results[1].Outcome.ResultCount != 5 {
		t.Errorf("ok outcome = %+v, want ok with 5 records", results[1].Outcome)
	}
	if results[1].Res == nil || len(results[1].Res.Records) != 5 {
		t.Errorf("healthy provider's records must survive a sibling timeout")
	}
}

func TestDispatchAllProvidersFail(t *testing.T) {
	a := &fakeAdapter{id: "a", err: provider.Errf("a", provider.KindUpstream, "HTTP 502")}
	b := &fakeAdapter{id: "b", err: provider.Errf("b", provider.KindAuth, "no token")}

	results := runDispatch(t, []provider.Adapter{a, b}, []string{"a", "b"}, testGuard(), testDispatchCfg())

	if len(results) != 2 {
		t.Fatalf("all-fail must still return the full outcome list, got %d", len(results))
	}
	for _, r := range results {
		if r.Outcome.Status != types.StatusError {
			t.Errorf("%s status = %s, want error", r.Outcome.ProviderID, r.Outcome.Status)
		}
		if r.Res != nil {
			t.Errorf("%s should contribute no records", r.Outcome.ProviderID)
		}
		if r.Outcome.ErrorDetail == "" {
			t.Errorf("%s outcome should carry error detail", r.Outcome.ProviderID)
		}
	}
}

func TestDispatchSkipsUnregistered(t *testing.T) {
	ok := &fakeAdapter{id: "ok", records: 1}

	results := runDispatch(t, []provider.Adapter{nil, ok}, []string{"ghost", "ok"}, testGuard(), testDispatchCfg())

	if results[0].Outcome.Status != types.StatusSkipped || results[0].Outcome.ProviderID != "ghost" {
		t.Errorf("unregistered outcome = %+v, want skipped ghost", results[0].Outcome)
	}
	if results[1].Outcome.Status != types.StatusOK {
		t.Errorf("registered provider should still run, got %s", results[1].Outcome.Status)
	}
}

func TestDispatchRateLimitedOutcome(t *testing.T) {
	g := guard.New(types.GuardConfig{
		RequestsPerHour: 1,
		Burst:           1,
		MaxWait:         time.Millisecond,
		CacheTTL:        time.Hour,
		CacheSize:       16,
	}, nil)
	a := &fakeAdapter{id: "a", records: 1}
	ids := []string{"a"}
	adapters := []provider.Adapter{a}

	first := runDispatch(t, adapters, ids, g, testDispatchCfg())
	if first[0].Outcome.Status != types.StatusOK {
		t.Fatalf("first dispatch = %s, want ok", first[0].Outcome.Status)
	}

	// Same provider, different query: cache miss, bucket empty.
	results := Dispatch(context.Background(), types.Query{Surname: "Jones"}, ids, adapters, g, testDispatchCfg(), io.Discard)
	if results[0].Outcome.Status != types.StatusRateLimited {
		t.Errorf("exhausted bucket = %s, want rate_limited", results[0].Outcome.Status)
	}
	if a.calls.Load() != 1 {
		t.Errorf("adapter called %d times, want 1 (rate-limited call never dispatched)", a.calls.Load())
	}
}

func TestDispatchCacheHitBypassesRateLimit(t *testing.T) {
	g := guard.New(types.GuardConfig{
		RequestsPerHour: 1,
		Burst:           1,
		MaxWait:         time.Millisecond,
		CacheTTL:        time.Hour,
		CacheSize:       16,
	}, nil)
	a := &fakeAdapter{id: "a", records: 3}
	ids := []string{"a"}
	adapters := []provider.Adapter{a}

	first := runDispatch(t, adapters, ids, g, testDispatchCfg())
	if first[0].Outcome.Status != types.StatusOK || first[0].Outcome.Cached {
		t.Fatalf("first dispatch outcome = %+v, want uncached ok", first[0].Outcome)
	}

	// Identical query: served from cache with the bucket empty, and the
	// adapter is not called again.
	second := runDispatch(t, adapters, ids, g, testDispatchCfg())
	if second[0].Outcome.Status != types.StatusOK || !second[0].Outcome.Cached {
		t.Errorf("second dispatch outcome = %+v, want cached ok", second[0].Outcome)
	}
	if second[0].Res == nil || len(second[0].Res.Records) != 3 {
		t.Errorf("cached response should carry the stored records")
	}
	if a.calls.Load() != 1 {
		t.Errorf("adapter called %d times, want 1", a.calls.Load())
	}
}

func TestDispatchFailuresAreNotCached(t *testing.T) {
	g := testGuard()
	a := &fakeAdapter{id: "a", err: provider.Errf("a", provider.KindUpstream, "HTTP 503")}
	ids := []string{"a"}
	adapters := []provider.Adapter{a}

	runDispatch(t, adapters, ids, g, testDispatchCfg())

	// The provider recovers; the earlier failure must not be served.
	a.err = nil
	a.records = 2
	results := runDispatch(t, adapters, ids, g, testDispatchCfg())
	if results[0].Outcome.Cached {
		t.Errorf("failure must not populate the cache")
	}
	if results[0].Outcome.ResultCount != 2 {
		t.Errorf("recovered provider should be re-queried, got %+v", results[0].Outcome)
	}
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	shared := &fakeAdapter{id: "x", records: 1, delay: 20 * time.Millisecond}
	adapters := []provider.Adapter{shared, shared, shared, shared}
	ids := []string{"x", "x", "x", "x"}

	cfg := testDispatchCfg()
	cfg.MaxConcurrent = 1
	// Distinct queries would be cleaner, but one shared adapter with the
	// cache disabled by per-call keys is enough: use a cold guard and
	// accept cache hits after the first call.
	g := guard.New(types.GuardConfig{
		RequestsPerHour: 1,
		Burst:           100,
		MaxWait:         10 * time.Millisecond,
		CacheTTL:        time.Nanosecond, // effectively disable caching
		CacheSize:       16,
	}, nil)

	Dispatch(context.Background(), types.Query{Surname: "Smith"}, ids, adapters, g, cfg, io.Discard)

	if shared.maxActive.Load() > 1 {
		t.Errorf("max concurrent calls = %d, want 1", shared.maxActive.Load())
	}
}
