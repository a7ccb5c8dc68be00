// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/records-router/internal/httputil"
	"github.com/pdiddy/records-router/pkg/types"
)

// wsBaseURL is the public record search site. Declared as a var so tests
// can substitute an httptest server.
var wsBaseURL = "https://www.familysearch.org"

const wsSearchPath = "/search/records/results"

// fsIDPattern matches record identifiers embedded in result URLs
// (e.g. "/ark:/61903/1:1:ABCD-123").
var fsIDPattern = regexp.MustCompile(`1:1:([A-Z0-9-]+)`)

// WebSearch scrapes the public record search results page. It needs no
// credentials but returns sparser fields than the API provider, which
// the normalizer reflects in lower confidence scores.
type WebSearch struct {
	Client    *http.Client
	UserAgent string
}

// ID returns the provider identifier.
func (p *WebSearch) ID() string { return "websearch" }

// webRecord is the scraped shape handed to the normalizer. It mirrors
// what the results page exposes per hit.
type webRecord struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	RecordType  string `json:"record_type,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	FSID        string `json:"fs_id,omitempty"`
}

// Search fetches and parses one results page.
func (p *WebSearch) Search(ctx context.Context, q types.Query) (*types.ProviderResult, error) {
	params := url.Values{}
	if q.GivenName != "" {
		params.Set("givenName", q.GivenName)
	}
	if q.Surname != "" {
		params.Set("surname", q.Surname)
	}
	if yr := q.YearRange(); yr != "" {
		params.Set("eventDate", yr)
	}
	if q.Place != "" {
		params.Set("place", q.Place)
	}
	if q.EventType != "" {
		params.Set("recordType", q.EventType)
	}

	reqURL := wsBaseURL + wsSearchPath
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Errf(p.ID(), KindMalformed, "creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, classifyTransport(p.ID(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, Errf(p.ID(), KindAuth, "HTTP 403 (blocked)")
	case resp.StatusCode == http.StatusNotFound:
		return nil, Errf(p.ID(), KindNotFound, "HTTP 404")
	case resp.StatusCode >= 500:
		return nil, Errf(p.ID(), KindUpstream, "HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, Errf(p.ID(), KindMalformed, "unexpected HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, Errf(p.ID(), KindMalformed, "parsing results page: %w", err)
	}

	max := pageSize(q.MaxResults)
	records, truncated := p.parseResults(doc, max)

	return &types.ProviderResult{
		ProviderID: p.ID(),
		Records:    records,
		Truncated:  truncated,
		Latency:    time.Since(start),
	}, nil
}

// parseResults extracts up to max hits from the results page. Containers
// missing a linked title are skipped; the page mixes result markup with
// navigation chrome.
func (p *WebSearch) parseResults(doc *goquery.Document, max int) ([]json.RawMessage, bool) {
	var records []json.RawMessage
	truncated := false

	doc.Find("div.search-result, div.record-item").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(records) >= max {
			truncated = true
			return false
		}

		link := sel.Find("a[href]").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || title == "" {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			href = wsBaseURL + href
		}

		rec := webRecord{
			Title:       title,
			URL:         href,
			RecordType:  firstText(sel, ".record-type"),
			DateRange:   firstText(sel, ".date-range, .record-date"),
			Location:    firstText(sel, ".location, .record-place"),
			Description: firstText(sel, ".description, .record-summary"),
		}
		if m := fsIDPattern.FindStringSubmatch(href); m != nil {
			rec.FSID = m[1]
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return true
		}
		records = append(records, raw)
		return true
	})

	return records, truncated
}

func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
