package view

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gridfeed/gridfeed/internal/extract"
	"github.com/gridfeed/gridfeed/internal/model"
)

// Card is the consumer-facing resolution of one record: every bound role
// reduced to a display string. Unbound or absent roles are empty.
type Card struct {
	ImageURL    string `json:"imageUrl,omitempty"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	SignupURL   string `json:"signupUrl,omitempty"`
}

// Resolve extracts the bound display fields of one record. Values are not
// cached: records are immutable for their lifetime, so re-extraction is
// always consistent.
func Resolve(rec model.RawRecord, b model.Bindings) Card {
	return Card{
		ImageURL:    resolveRole(rec, b.Image),
		Title:       resolveRole(rec, b.Title),
		Category:    resolveRole(rec, b.Category),
		Location:    resolveRole(rec, b.Location),
		Description: resolveRole(rec, b.Description),
		Date:        resolveRole(rec, b.Date),
		StartTime:   resolveRole(rec, b.StartTime),
		SignupURL:   resolveRole(rec, b.SignupURL),
	}
}

// ResolveAll resolves every record in order.
func ResolveAll(records []model.RawRecord, b model.Bindings) []Card {
	cards := make([]Card, len(records))
	for i, rec := range records {
		cards[i] = Resolve(rec, b)
	}
	return cards
}

func resolveRole(rec model.RawRecord, field string) string {
	if field == "" {
		return ""
	}
	payload, ok := rec.FieldPayload(field)
	if !ok {
		return ""
	}
	return extract.Value(payload)
}

// Categories lists the distinct non-empty category values across the record
// set, collated for display, with the AllCategories sentinel first. This
// feeds the consumer's filter control.
func Categories(records []model.RawRecord, categoryField string) []string {
	seen := make(map[string]struct{})
	var distinct []string
	for _, rec := range records {
		payload, ok := rec.FieldPayload(categoryField)
		if !ok {
			continue
		}
		v := extract.Value(payload)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}

	collate.New(language.English, collate.IgnoreCase).SortStrings(distinct)

	return append([]string{AllCategories}, distinct...)
}
