package fetcher

import (
	"github.com/gridfeed/gridfeed/internal/model"
)

// recordContainerKeys are the envelope keys probed, in order, when the
// response top level is an object instead of a bare array.
var recordContainerKeys = []string{"data", "records", "items", "results"}

// columnContainerKeys are the envelope keys probed for schema responses.
var columnContainerKeys = []string{"columns", "schema", "fields"}

// Records normalizes a decoded JSON body into a record slice. A bare array
// is used directly; an object is probed for the first present container
// key; anything else yields an empty set. Array elements that are not
// objects are dropped rather than failing the whole response.
func Records(body any) []model.RawRecord {
	arr := unwrap(body, recordContainerKeys)
	records := make([]model.RawRecord, 0, len(arr))
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			records = append(records, model.RawRecord(obj))
		}
	}
	return records
}

// Columns normalizes a decoded JSON body into column descriptors. Shape
// handling mirrors Records; elements that fail to re-decode as descriptors
// are dropped.
func Columns(body any) []model.ColumnDescriptor {
	arr := unwrap(body, columnContainerKeys)
	cols := make([]model.ColumnDescriptor, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		cols = append(cols, decodeColumn(obj))
	}
	return cols
}

func unwrap(body any, containerKeys []string) []any {
	switch v := body.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range containerKeys {
			if inner, ok := v[key]; ok {
				if arr, ok := inner.([]any); ok {
					return arr
				}
			}
		}
	}
	return nil
}

func decodeColumn(obj map[string]any) model.ColumnDescriptor {
	col := model.ColumnDescriptor{
		ID:      str(obj["id"]),
		Name:    str(obj["name"]),
		Display: str(obj["display"]),
		URL:     str(obj["url"]),
	}
	format, _ := obj["format"].(map[string]any)
	col.Format.Type = str(format["type"])
	col.Format.IsArray, _ = format["isArray"].(bool)
	if options, ok := format["options"].(map[string]any); ok {
		if choices, ok := options["choices"].([]any); ok && len(choices) > 0 {
			opts := &model.ColumnOptions{}
			for _, c := range choices {
				if choice, ok := c.(map[string]any); ok {
					opts.Choices = append(opts.Choices, model.Choice{
						Name: str(choice["name"]),
						ID:   str(choice["id"]),
						URL:  str(choice["url"]),
					})
				}
			}
			col.Format.Options = opts
		}
	}
	return col
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
