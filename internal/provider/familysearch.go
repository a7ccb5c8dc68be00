// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/records-router/internal/httputil"
	"github.com/pdiddy/records-router/pkg/types"
)

// fsAPIBase is the FamilySearch platform endpoint. Declared as a var so
// tests can substitute an httptest server.
var fsAPIBase = "https://api.familysearch.org"

const (
	fsSearchPath = "/platform/records/search"
	gedcomxJSON  = "application/x-gedcomx-v1+json"
)

// FamilySearch queries the FamilySearch record search API and returns
// GEDCOM X entries as provider-native records.
type FamilySearch struct {
	Client      *http.Client
	AccessToken string
	UserAgent   string
}

// ID returns the provider identifier.
func (p *FamilySearch) ID() string { return "familysearch" }

// fsSearchResponse is the minimal envelope of a GEDCOM X search
// response. Entries stay opaque; the normalizer maps them.
type fsSearchResponse struct {
	Results int               `json:"results"`
	Entries []json.RawMessage `json:"entries"`
}

// Search issues one record search against the FamilySearch API.
func (p *FamilySearch) Search(ctx context.Context, q types.Query) (*types.ProviderResult, error) {
	params := url.Values{
		"q":     {buildFSQuery(q)},
		"count": {fmt.Sprintf("%d", pageSize(q.MaxResults))},
	}
	reqURL := fsAPIBase + fsSearchPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Errf(p.ID(), KindMalformed, "creating request: %w", err)
	}
	req.Header.Set("Accept", gedcomxJSON)
	req.Header.Set("User-Agent", p.UserAgent)
	if p.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, classifyTransport(p.ID(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, Errf(p.ID(), KindAuth, "HTTP %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, Errf(p.ID(), KindNotFound, "HTTP 404")
	case resp.StatusCode == http.StatusNoContent:
		// FamilySearch answers 204 for a search with zero matches.
		return &types.ProviderResult{ProviderID: p.ID(), Latency: time.Since(start)}, nil
	case resp.StatusCode >= 500:
		return nil, Errf(p.ID(), KindUpstream, "HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, Errf(p.ID(), KindMalformed, "unexpected HTTP %d", resp.StatusCode)
	}

	var sr fsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, Errf(p.ID(), KindMalformed, "parsing GEDCOM X response: %w", err)
	}

	res := &types.ProviderResult{
		ProviderID: p.ID(),
		Records:    sr.Entries,
		Truncated:  sr.Results > len(sr.Entries),
		Latency:    time.Since(start),
	}
	return res, nil
}

// buildFSQuery renders the structured query in FamilySearch's
// field:value search syntax.
func buildFSQuery(q types.Query) string {
	var parts []string
	if q.GivenName != "" {
		parts = append(parts, "givenName:"+quoteFSTerm(q.GivenName))
	}
	if q.Surname != "" {
		parts = append(parts, "surname:"+quoteFSTerm(q.Surname))
	}
	if yr := q.YearRange(); yr != "" {
		field := "birthLikeDate"
		if q.EventType != "" && q.EventType != "birth" {
			field = "anyDate"
		}
		parts = append(parts, field+":"+yr)
	}
	if q.Place != "" {
		parts = append(parts, "anyPlace:"+quoteFSTerm(q.Place))
	}
	if q.EventType == "death" {
		parts = append(parts, "recordType:death")
	}
	return strings.Join(parts, " ")
}

// quoteFSTerm quotes a term containing spaces ("New York" stays one term).
func quoteFSTerm(s string) string {
	if strings.ContainsRune(s, ' ') {
		return `"` + s + `"`
	}
	return s
}

// pageSize clamps the requested page to the provider's 1-100 window.
func pageSize(maxResults int) int {
	switch {
	case maxResults <= 0:
		return 20
	case maxResults > 100:
		return 100
	default:
		return maxResults
	}
}

// classifyTransport maps transport failures to provider error kinds.
// Context expiry is the per-provider timeout firing.
func classifyTransport(providerID string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Provider: providerID, Kind: KindTimeout, Err: err}
	}
	return &Error{Provider: providerID, Kind: KindUpstream, Err: err}
}
