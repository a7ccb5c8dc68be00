// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package location resolves historical place names to their modern
// equivalents. Resolution is best-effort: an unknown name passes through
// unchanged so a lookup miss never degrades a record.
package location

import "strings"

// place is one entry of the gazetteer: a modern display name plus the
// historical and variant spellings that should resolve to it.
type place struct {
	modern     string
	historical []string
}

// gazetteer covers the regions the research corpus concentrates on.
// Extending it is a data change, not a code change.
var gazetteer = []place{
	{
		modern:     "Albany, New York, United States",
		historical: []string{"beverwyck", "fort orange", "albany"},
	},
	{
		modern:     "New York, United States",
		historical: []string{"new netherland", "new york colony", "new york"},
	},
	{
		modern:     "New York City, New York, United States",
		historical: []string{"new amsterdam", "new york city"},
	},
	{
		modern:     "United States",
		historical: []string{"thirteen colonies", "united colonies", "usa", "united states"},
	},
}

// Resolver maps raw place strings to modern names via the gazetteer.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	byName map[string]string
}

// NewResolver builds the lookup index from the gazetteer.
func NewResolver() *Resolver {
	byName := make(map[string]string)
	for _, p := range gazetteer {
		for _, h := range p.historical {
			byName[h] = p.modern
		}
		byName[strings.ToLower(p.modern)] = p.modern
	}
	return &Resolver{byName: byName}
}

// NormalizePlaceName returns the modern name for raw, or raw unchanged
// when the gazetteer has no entry. The year parameter is accepted for
// era-sensitive resolution; the current gazetteer does not distinguish
// eras, so it only documents intent at the call sites.
func (r *Resolver) NormalizePlaceName(raw string, year int) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return raw
	}
	if modern, ok := r.byName[key]; ok {
		return modern
	}
	// Try the leading segment of a comma-separated place
	// ("Beverwyck, New Netherland" resolves by its first part).
	if i := strings.IndexByte(key, ','); i > 0 {
		if modern, ok := r.byName[strings.TrimSpace(key[:i])]; ok {
			return modern
		}
	}
	return raw
}
