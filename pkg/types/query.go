// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the records-router pipeline.
// See docs/ARCHITECTURE.md § Data Structures.
package types

import (
	"fmt"
	"strings"
)

// Query holds the parameters of one logical record search. A Query is
// immutable once handed to the dispatcher; all stages receive it by value.
type Query struct {
	// GivenName is the first/given name of the person being searched.
	GivenName string `json:"given_name" yaml:"given_name"`

	// Surname is the family name of the person being searched.
	Surname string `json:"surname" yaml:"surname"`

	// EventType optionally restricts results to a record category
	// (e.g. "census", "birth", "death", "marriage", "immigration").
	EventType string `json:"event_type,omitempty" yaml:"event_type,omitempty"`

	// Year is the event year of interest. Zero means unconstrained.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// YearTo, when non-zero, turns Year into the start of a range.
	YearTo int `json:"year_to,omitempty" yaml:"year_to,omitempty"`

	// Place is a free-text place constraint (e.g. "Albany, New York").
	Place string `json:"place,omitempty" yaml:"place,omitempty"`

	// MaxResults caps the fused result list (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Providers selects which registered providers to query. Empty
	// means the caller selected no providers and the search is a no-op.
	Providers []string `json:"providers" yaml:"providers"`
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.GivenName == "" && q.Surname == "" && q.Place == "" && q.Year == 0
}

// YearRange renders the year constraint as "1850" or "1850-1860",
// or "" when unconstrained.
func (q Query) YearRange() string {
	switch {
	case q.Year == 0:
		return ""
	case q.YearTo == 0 || q.YearTo == q.Year:
		return fmt.Sprintf("%d", q.Year)
	default:
		return fmt.Sprintf("%d-%d", q.Year, q.YearTo)
	}
}

// CacheFields returns the query fields that identify a cached response,
// lowercased and trimmed so spelling-equivalent queries share an entry.
// Providers and MaxResults are excluded: the cache stores one provider's
// raw response, and truncation happens after fusion.
func (q Query) CacheFields() []string {
	return []string{
		strings.ToLower(strings.TrimSpace(q.GivenName)),
		strings.ToLower(strings.TrimSpace(q.Surname)),
		strings.ToLower(strings.TrimSpace(q.EventType)),
		q.YearRange(),
		strings.ToLower(strings.TrimSpace(q.Place)),
	}
}
