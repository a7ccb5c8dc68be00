package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/records-router/internal/guard"
	"github.com/pdiddy/records-router/internal/provider"
	"github.com/pdiddy/records-router/pkg/types"
)

// fakeAdapter returns canned generic records or a scripted error.
type fakeAdapter struct {
	id      string
	records []string // raw JSON documents
	err     error
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) Search(_ context.Context, _ types.Query) (*types.ProviderResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	recs := make([]json.RawMessage, len(f.records))
	for i, r := range f.records {
		recs[i] = json.RawMessage(r)
	}
	return &types.ProviderResult{ProviderID: f.id, Records: recs}, nil
}

func genericRecord(id, name, birth string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"birth_date":%q,"place":"Albany","url":"https://x/%s"}`, id, name, birth, id)
}

func newTestRouter(t *testing.T, adapters ...provider.Adapter) *Router {
	t.Helper()
	reg := provider.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	g := guard.New(types.GuardConfig{
		RequestsPerHour: 1,
		Burst:           100,
		MaxWait:         10 * time.Millisecond,
		CacheTTL:        time.Hour,
		CacheSize:       32,
	}, nil)
	return New(reg, g, nil, types.RouterConfig{}, io.Discard)
}

func TestSearchRecordsZeroProviders(t *testing.T) {
	r := newTestRouter(t)

	report, err := r.SearchRecords(context.Background(), types.Query{Surname: "Smith"})
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Empty(t, report.Outcomes)
}

func TestSearchRecordsGracefulDegradation(t *testing.T) {
	hung := &fakeAdapter{id: "hung", err: provider.Errf("hung", provider.KindTimeout, "deadline exceeded")}
	ok := &fakeAdapter{id: "ok", records: []string{
		genericRecord("r1", "Aaron Alder", "1840"),
		genericRecord("r2", "Betty Birch", "1841"),
		genericRecord("r3", "Carl Cedar", "1842"),
		genericRecord("r4", "Dora Dale", "1843"),
		genericRecord("r5", "Edwin Elm", "1844"),
	}}
	r := newTestRouter(t, hung, ok)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"hung", "ok"},
	})
	require.NoError(t, err, "one healthy provider must keep the query alive")

	assert.Len(t, report.Records, 5)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, types.StatusTimeout, report.Outcomes[0].Status)
	assert.Equal(t, types.StatusOK, report.Outcomes[1].Status)
	assert.Equal(t, 5, report.Outcomes[1].ResultCount)
}

func TestSearchRecordsAllProvidersUnavailable(t *testing.T) {
	a := &fakeAdapter{id: "a", err: provider.Errf("a", provider.KindUpstream, "HTTP 502")}
	b := &fakeAdapter{id: "b", err: provider.Errf("b", provider.KindAuth, "token expired")}
	r := newTestRouter(t, a, b)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"a", "b"},
	})
	assert.ErrorIs(t, err, ErrAllProvidersUnavailable)
	require.NotNil(t, report, "outcome detail must survive the error for observability")
	assert.Len(t, report.Outcomes, 2)
}

func TestSearchRecordsMergesAcrossProviders(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{genericRecord("r1", "John Smith", "1850")}}
	b := &fakeAdapter{id: "b", records: []string{genericRecord("r9", "Jon Smith", "1850")}}
	r := newTestRouter(t, a, b)

	report, err := r.SearchRecords(context.Background(), types.Query{
		GivenName: "John",
		Surname:   "Smith",
		Providers: []string{"a", "b"},
	})
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, 2, report.Records[0].SourceCount)
	assert.Equal(t, 1, report.DupsRemoved)
}

func TestSearchRecordsCountsSurvivorsNotClaims(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{
		genericRecord("r1", "John Smith", "1850"),
		`{"malformed": true}`, // no id or name: dropped at normalization
	}}
	r := newTestRouter(t, a)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"a"},
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, report.Outcomes[0].ResultCount)
	assert.Len(t, report.Records, 1)
}

func TestSearchRecordsTruncatesToMaxResults(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{
		genericRecord("r1", "Aaron Alder", "1840"),
		genericRecord("r2", "Betty Birch", "1841"),
		genericRecord("r3", "Carl Cedar", "1842"),
	}}
	r := newTestRouter(t, a)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:    "Smith",
		Providers:  []string{"a"},
		MaxResults: 2,
	})
	require.NoError(t, err)
	assert.Len(t, report.Records, 2)
}

func TestSearchRecordsUnregisteredProviderSkipped(t *testing.T) {
	ok := &fakeAdapter{id: "ok", records: []string{genericRecord("r1", "John Smith", "1850")}}
	r := newTestRouter(t, ok)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"ghost", "ok"},
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, types.StatusSkipped, report.Outcomes[0].Status)
	assert.Equal(t, "ghost", report.Outcomes[0].ProviderID)
	assert.Len(t, report.Records, 1)
}

func TestPlainRecordsProjection(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{genericRecord("r1", "John Smith", "1850")}}
	r := newTestRouter(t, a)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"a"},
	})
	require.NoError(t, err)

	plain := report.PlainRecords()
	require.Len(t, plain, 1)
	assert.Equal(t, "John Smith", plain[0].Name)
	assert.Equal(t, "1850", plain[0].BirthDate)
	assert.Equal(t, "a:r1", plain[0].ProviderRecordID)
	assert.Equal(t, 1, plain[0].SourceCount)
	assert.Greater(t, plain[0].Confidence, 0.0)
}

func TestFormatJSONShape(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{genericRecord("r1", "John Smith", "1850")}}
	r := newTestRouter(t, a)

	report, err := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"a"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FormatJSON(report, &buf))

	var decoded struct {
		Records          []map[string]any `json:"records"`
		ProviderOutcomes []map[string]any `json:"provider_outcomes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Records, 1)
	assert.Contains(t, decoded.Records[0], "provider_record_id")
	assert.NotContains(t, decoded.Records[0], "raw")
	require.Len(t, decoded.ProviderOutcomes, 1)
	assert.Equal(t, "ok", decoded.ProviderOutcomes[0]["status"])
}

func TestFormatTableListsOutcomes(t *testing.T) {
	hung := &fakeAdapter{id: "hung", err: provider.Errf("hung", provider.KindTimeout, "deadline")}
	r := newTestRouter(t, hung)

	report, _ := r.SearchRecords(context.Background(), types.Query{
		Surname:   "Smith",
		Providers: []string{"hung"},
	})

	var buf bytes.Buffer
	FormatTable(report, &buf)
	out := buf.String()
	assert.Contains(t, out, "No records found.")
	assert.Contains(t, out, "hung")
	assert.Contains(t, out, "timeout")
}

func TestReportFileRoundTrip(t *testing.T) {
	a := &fakeAdapter{id: "a", records: []string{genericRecord("r1", "John Smith", "1850")}}
	r := newTestRouter(t, a)

	q := types.Query{Surname: "Smith", Providers: []string{"a"}}
	report, err := r.SearchRecords(context.Background(), q)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, WriteReportFile(path, q, report))

	rf, err := ReadReportFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Smith", rf.Query.Surname)
	require.Len(t, rf.Report.Records, 1)
	assert.Equal(t, "a:r1", rf.Report.Records[0].RecordID)
	assert.Equal(t, 1, rf.Summary.Total)
	assert.Equal(t, 1, rf.Summary.ProvidersOK)
	assert.False(t, rf.Summary.Timestamp.IsZero())
}
