// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import "encoding/json"

// GEDCOM X search entry structures, reduced to the fields the canonical
// schema needs. Everything else stays in the record's raw payload.
type gxEntry struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content gxContent `json:"content"`
}

type gxContent struct {
	Gedcomx gxDocument `json:"gedcomx"`
}

type gxDocument struct {
	Persons []gxPerson `json:"persons"`
}

type gxPerson struct {
	Names []gxName `json:"names"`
	Facts []gxFact `json:"facts"`
}

type gxName struct {
	NameForms []gxNameForm `json:"nameForms"`
}

type gxNameForm struct {
	FullText string `json:"fullText"`
}

type gxFact struct {
	Type  string   `json:"type"`
	Date  *gxValue `json:"date,omitempty"`
	Place *gxValue `json:"place,omitempty"`
}

type gxValue struct {
	Original string `json:"original"`
}

const (
	factBirth     = "http://gedcomx.org/Birth"
	factDeath     = "http://gedcomx.org/Death"
	factResidence = "http://gedcomx.org/Residence"
	factCensus    = "http://gedcomx.org/Census"
)

// mapGedcomxEntry extracts canonical fields from one GEDCOM X search
// entry. The principal person is the first one in the embedded document;
// FamilySearch lists household members after it.
func mapGedcomxEntry(raw json.RawMessage) (fields, bool) {
	var entry gxEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fields{}, false
	}
	if entry.ID == "" {
		return fields{}, false
	}

	f := fields{
		NativeID: entry.ID,
		Name:     entry.Title,
		URL:      "https://www.familysearch.org/ark:/61903/1:1:" + entry.ID,
	}

	if len(entry.Content.Gedcomx.Persons) > 0 {
		person := entry.Content.Gedcomx.Persons[0]

		if n := personName(person); n != "" {
			f.Name = n
		}

		for _, fact := range person.Facts {
			switch fact.Type {
			case factBirth:
				if fact.Date != nil && f.BirthDate == "" {
					f.BirthDate = fact.Date.Original
				}
				if fact.Place != nil && f.Place == "" {
					f.Place = fact.Place.Original
				}
			case factDeath:
				if fact.Date != nil && f.DeathDate == "" {
					f.DeathDate = fact.Date.Original
				}
			case factResidence, factCensus:
				if fact.Place != nil && f.Place == "" {
					f.Place = fact.Place.Original
				}
			}
		}
	}

	return f, true
}

func personName(p gxPerson) string {
	for _, n := range p.Names {
		for _, form := range n.NameForms {
			if form.FullText != "" {
				return form.FullText
			}
		}
	}
	return ""
}
