// Package view builds the presentable record view: deterministic sort by a
// date field, optional result limit, and category filtering. Per-record
// anomalies never abort the whole view; a malformed record sorts to the end
// and renders with empty fields.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/gridfeed/gridfeed/internal/extract"
	"github.com/gridfeed/gridfeed/internal/model"
)

// AllCategories is the filter sentinel that passes every record. Matched
// case-insensitively, and an empty selection means the same thing.
const AllCategories = "All"

// invalidDateKey is the sort key for records whose date field is absent or
// unparseable. Far future so they sort last; the stable sort keeps their
// input order among themselves, so repeated sorts of the same input are
// identical.
var invalidDateKey = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate parses a date string against the accepted layouts. The second
// return is false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateKey extracts the sort key for one record. Any failure, including a
// missing field or a payload the extractor can only render degenerately,
// resolves to invalidDateKey rather than an error.
func dateKey(rec model.RawRecord, dateField string) time.Time {
	payload, ok := rec.FieldPayload(dateField)
	if !ok {
		return invalidDateKey
	}
	if t, ok := ParseDate(extract.Value(payload)); ok {
		return t
	}
	return invalidDateKey
}

// SortByDate returns the records sorted ascending by their parsed date
// field. The sort is stable: records with equal or invalid keys keep their
// input order. The input slice is not modified.
func SortByDate(records []model.RawRecord, dateField string) []model.RawRecord {
	out := make([]model.RawRecord, len(records))
	copy(out, records)

	keys := make([]time.Time, len(out))
	for i, rec := range out {
		keys[i] = dateKey(rec, dateField)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Before(keys[idx[b]])
	})

	sorted := make([]model.RawRecord, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// Limit truncates the record set to the first n entries. n <= 0 means
// unbounded.
func Limit(records []model.RawRecord, n int) []model.RawRecord {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[:n]
}

// FilterByCategory keeps records whose extracted category value equals the
// selection, case-insensitively. The AllCategories sentinel (or an empty
// selection) passes everything; records lacking the category field never
// match a concrete selection.
func FilterByCategory(records []model.RawRecord, categoryField, selected string) []model.RawRecord {
	if selected == "" || strings.EqualFold(selected, AllCategories) {
		return records
	}
	out := make([]model.RawRecord, 0, len(records))
	for _, rec := range records {
		payload, ok := rec.FieldPayload(categoryField)
		if !ok {
			continue
		}
		if strings.EqualFold(extract.Value(payload), selected) {
			out = append(out, rec)
		}
	}
	return out
}

// Build runs the fetch-side pipeline steps: sort ascending by date, then
// truncate to the limit. Category filtering stays with the consumer.
func Build(records []model.RawRecord, dateField string, limit int) []model.RawRecord {
	return Limit(SortByDate(records, dateField), limit)
}
