// Package extract pulls display strings out of per-record field payloads
// whose shape is only known at runtime. All inference is best-effort and
// must never fail: every input resolves to a string, never a panic.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// probeKeys are the value-bearing keys probed on object payloads, in
// priority order. First key whose extracted value is non-empty wins.
var probeKeys = []string{"rawValue", "value", "displayValue", "name", "content"}

// Value returns a best-effort scalar string for an arbitrarily shaped field
// payload: nil yields "", scalars their string form, objects the first
// non-empty probe-key value, arrays the value of their first element.
//
// An object carrying none of the probed keys falls back to its generic %v
// formatting. That fallback is intentionally degenerate: it can yield a
// non-human-readable placeholder like map[foo:bar], and callers should not
// expect anything prettier for unrecognized shapes.
func Value(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]any:
		for _, key := range probeKeys {
			if inner, ok := v[key]; ok {
				if s := Value(inner); s != "" {
					return s
				}
			}
		}
		return fmt.Sprintf("%v", v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return Value(v[0])
	default:
		return fmt.Sprintf("%v", v)
	}
}
