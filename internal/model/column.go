package model

// ColumnDescriptor is the schema metadata for one column of the external
// table source. The declared type tag is an open set: sources may introduce
// tags we have never seen, so nothing here assumes a closed enum.
type ColumnDescriptor struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Display string       `json:"display,omitempty"`
	URL     string       `json:"url,omitempty"`
	Format  ColumnFormat `json:"format"`
}

// ColumnFormat carries the source's declared type information for a column.
type ColumnFormat struct {
	Type    string         `json:"type"`
	IsArray bool           `json:"isArray,omitempty"`
	Options *ColumnOptions `json:"options,omitempty"`
}

// ColumnOptions holds optional per-type settings, currently the enumerated
// choice list for select/scale columns.
type ColumnOptions struct {
	Choices []Choice `json:"choices,omitempty"`
}

// Choice is one enumerated option of a select-like column.
type Choice struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
	URL  string `json:"url,omitempty"`
}

// DeclaredType returns the source's type tag for the column.
func (c ColumnDescriptor) DeclaredType() string {
	return c.Format.Type
}

// HasChoices reports whether the column carries a non-empty choice list.
func (c ColumnDescriptor) HasChoices() bool {
	return c.Format.Options != nil && len(c.Format.Options.Choices) > 0
}
