package model

// RawRecord is one row of the external source: an opaque mapping from field
// name (or id) to a payload of unknown shape. Records are read-only inputs;
// nothing in this codebase mutates one after decode.
type RawRecord map[string]any

// valueBags are the container keys some sources nest per-field payloads
// under, probed before the top-level key.
var valueBags = []string{"values", "fields"}

// FieldPayload returns the payload for the given field key, checking the
// nested value bags first and falling back to a top-level key of the same
// name. The second return reports whether the key was present at all.
func (r RawRecord) FieldPayload(key string) (any, bool) {
	if key == "" || r == nil {
		return nil, false
	}
	for _, bag := range valueBags {
		if nested, ok := r[bag].(map[string]any); ok {
			if v, ok := nested[key]; ok {
				return v, true
			}
		}
	}
	v, ok := r[key]
	return v, ok
}

// Bindings names the source fields that fill each logical role of a record
// card. Empty strings mean the role is unbound.
type Bindings struct {
	Image       string `yaml:"image" mapstructure:"image"`
	Title       string `yaml:"title" mapstructure:"title"`
	Category    string `yaml:"category" mapstructure:"category"`
	Location    string `yaml:"location" mapstructure:"location"`
	Description string `yaml:"description" mapstructure:"description"`
	Date        string `yaml:"date" mapstructure:"date"`
	StartTime   string `yaml:"start_time" mapstructure:"start_time"`
	SignupURL   string `yaml:"signup_url" mapstructure:"signup_url"`
}
