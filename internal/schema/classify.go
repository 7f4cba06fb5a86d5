// Package schema classifies source column descriptors into the fixed set of
// semantic field types. Classification is a pure function of the descriptor:
// same input, same output, no errors.
package schema

import (
	"strings"

	"go.uber.org/zap"

	"github.com/gridfeed/gridfeed/internal/model"
)

// declaredTypeTable maps known declared source types to semantic field
// types. Looked up after the skip / image-by-name / enum-collapse rules.
var declaredTypeTable = map[string]model.FieldType{
	"text":  model.FieldString,
	"email": model.FieldString,
	"phone": model.FieldString,

	"number":   model.FieldNumber,
	"currency": model.FieldNumber,
	"percent":  model.FieldNumber,
	"duration": model.FieldNumber,

	"checkbox": model.FieldBoolean,

	"date": model.FieldDate,
	// datetime keeps full timestamp precision in the value; the semantic
	// type is still date.
	"datetime": model.FieldDate,
	// time-only values are opaque strings, not dates.
	"time": model.FieldString,

	"image": model.FieldImage,
	"file":  model.FieldFile,

	"canvas":   model.FieldFormattedText,
	"richtext": model.FieldFormattedText,

	// Relational values are flattened to display strings.
	"person":    model.FieldString,
	"lookup":    model.FieldString,
	"reference": model.FieldString,

	"url":  model.FieldLink,
	"link": model.FieldLink,
}

// imageNameHints mark a column as image-bearing by name or id alone,
// whatever its declared type.
var imageNameHints = []string{"image", "graphic"}

// Classify maps one column descriptor to a semantic field. The second return
// is false when the column is skipped entirely. Rules are evaluated in order
// and the first match wins:
//
//  1. declared type "button" is always skipped
//  2. declared type "image", or name/id containing an image hint, is an
//     image field
//  3. select/scale columns with choices collapse to plain strings
//  4. the declared-type table
//  5. anything unrecognized defaults to string
func Classify(col model.ColumnDescriptor) (model.Field, bool) {
	declared := strings.ToLower(col.DeclaredType())

	if declared == "button" {
		return model.Field{}, false
	}

	if declared == "image" || hasImageHint(col.Name) || hasImageHint(col.ID) {
		return model.Field{ID: col.ID, Name: col.Name, Type: model.FieldImage, URL: col.URL}, true
	}

	if (declared == "select" || declared == "scale") && col.HasChoices() {
		return model.Field{ID: col.ID, Name: col.Name, Type: model.FieldString}, true
	}

	if ft, ok := declaredTypeTable[declared]; ok {
		f := model.Field{ID: col.ID, Name: col.Name, Type: ft}
		if ft == model.FieldImage {
			f.URL = col.URL
		}
		return f, true
	}

	zap.L().Debug("schema: unrecognized column type, defaulting to string",
		zap.String("column", col.Name),
		zap.String("declared_type", col.DeclaredType()),
	)
	return model.Field{ID: col.ID, Name: col.Name, Type: model.FieldString}, true
}

// ClassifyAll classifies a full column set, preserving source order and
// dropping skipped columns.
func ClassifyAll(cols []model.ColumnDescriptor) []model.Field {
	fields := make([]model.Field, 0, len(cols))
	for _, col := range cols {
		if f, ok := Classify(col); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func hasImageHint(s string) bool {
	lower := strings.ToLower(s)
	for _, hint := range imageNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
