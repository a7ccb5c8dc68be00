// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize maps provider-native records into the canonical
// record schema. Each provider has a registered mapper; malformed native
// records are dropped and counted, never raised, so one provider's data
// quality cannot abort the pipeline.
// See docs/ARCHITECTURE.md § Normalization.
package normalize

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/pdiddy/records-router/pkg/types"
)

// PlaceResolver is the location collaborator seam. Implementations are
// best-effort and must return the raw input on failure.
type PlaceResolver interface {
	NormalizePlaceName(raw string, year int) string
}

// fields is the provider-independent content a mapper extracts from one
// native record. NativeID and Name are mandatory; the rest degrade
// confidence when absent.
type fields struct {
	NativeID  string
	Name      string
	BirthDate string
	DeathDate string
	Place     string
	URL       string
}

// recordMapper extracts canonical fields from one provider-native
// record. ok=false drops the record as malformed.
type recordMapper func(raw json.RawMessage) (fields, bool)

// mappers dispatches on provider ID. Providers without an entry fall
// back to the generic key-probing mapper.
var mappers = map[string]recordMapper{
	"familysearch": mapGedcomxEntry,
	"websearch":    mapWebRecord,
}

// Output holds the normalized records and the count of native records
// dropped as malformed, which the dispatcher folds into the provider's
// outcome.
type Output struct {
	Records []types.CanonicalRecord
	Dropped int
}

// Normalize converts one provider's result into canonical records.
func Normalize(res *types.ProviderResult, places PlaceResolver, year int) Output {
	mapper, ok := mappers[res.ProviderID]
	if !ok {
		mapper = mapGeneric
	}

	var out Output
	for _, raw := range res.Records {
		f, ok := mapper(raw)
		if !ok || f.NativeID == "" || f.Name == "" {
			out.Dropped++
			continue
		}

		place := f.Place
		if place != "" && places != nil {
			place = places.NormalizePlaceName(place, year)
		}

		rec := types.CanonicalRecord{
			RecordID:       res.ProviderID + ":" + f.NativeID,
			ProviderID:     res.ProviderID,
			Name:           f.Name,
			NormalizedName: NormalizeName(f.Name),
			BirthDate:      f.BirthDate,
			DeathDate:      f.DeathDate,
			EventPlace:     place,
			RecordURL:      f.URL,
			Confidence:     completeness(f),
			Raw:            raw,
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// completeness scores a record by field presence: 1.0 with name, a date,
// and a place; 0.2 off per missing field; floor 0.1.
func completeness(f fields) float64 {
	score := 1.0
	if f.Name == "" {
		score -= 0.2
	}
	if f.BirthDate == "" && f.DeathDate == "" {
		score -= 0.2
	}
	if f.Place == "" {
		score -= 0.2
	}
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// NormalizeName returns a lowercased, punctuation-stripped,
// space-collapsed form of a person name, used for duplicate matching.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// mapGeneric probes the common field names providers without a dedicated
// mapper tend to use.
func mapGeneric(raw json.RawMessage) (fields, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fields{}, false
	}
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := m[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return fields{
		NativeID:  str("id", "record_id"),
		Name:      str("name", "title"),
		BirthDate: str("birth_date", "birthDate"),
		DeathDate: str("death_date", "deathDate"),
		Place:     str("place", "location", "event_place"),
		URL:       str("url", "record_url"),
	}, true
}
