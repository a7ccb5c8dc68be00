// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"strings"
)

// webRecord mirrors the shape the websearch adapter scrapes from the
// public results page.
type webRecord struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	RecordType  string `json:"record_type"`
	DateRange   string `json:"date_range"`
	Location    string `json:"location"`
	Description string `json:"description"`
	FSID        string `json:"fs_id"`
}

// mapWebRecord extracts canonical fields from one scraped hit. Scraped
// records carry fewer fields than API records, so their completeness
// confidence lands lower, which is the intended ranking signal.
func mapWebRecord(raw json.RawMessage) (fields, bool) {
	var rec webRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fields{}, false
	}
	if rec.Title == "" {
		return fields{}, false
	}

	f := fields{
		NativeID: rec.FSID,
		Name:     titleName(rec.Title),
		Place:    rec.Location,
		URL:      rec.URL,
	}
	if f.NativeID == "" {
		// No ark ID in the link; the URL is the only stable handle.
		f.NativeID = rec.URL
	}

	// Result-page dates are birth-like for person hits; death records
	// are the exception the record type flags.
	if strings.EqualFold(rec.RecordType, "death") {
		f.DeathDate = rec.DateRange
	} else {
		f.BirthDate = rec.DateRange
	}

	return f, true
}

// titleName strips the collection suffix from a result title
// ("John Smith, United States Census, 1850" keeps "John Smith").
func titleName(title string) string {
	if i := strings.IndexByte(title, ','); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return strings.TrimSpace(title)
}
