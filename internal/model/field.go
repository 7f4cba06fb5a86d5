package model

// FieldType is a semantic classification a source column is normalized to.
type FieldType string

// The fixed set of semantic field types. Every source column maps to exactly
// one of these (or is skipped); unknown declared types default to FieldString.
const (
	FieldString        FieldType = "string"
	FieldNumber        FieldType = "number"
	FieldBoolean       FieldType = "boolean"
	FieldDate          FieldType = "date"
	FieldImage         FieldType = "image"
	FieldFile          FieldType = "file"
	FieldFormattedText FieldType = "formattedText"
	FieldLink          FieldType = "link"
)

// Field is the mapper's output for one column: identity plus semantic type.
// URL is carried through for image fields so the consumer can resolve
// graphics without a second schema lookup.
type Field struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	URL  string    `json:"url,omitempty"`
}

// FieldIndex is an indexed collection of classified fields.
type FieldIndex struct {
	Fields []Field
	byName map[string]*Field
	byID   map[string]*Field
}

// NewFieldIndex builds lookup maps over the given fields.
func NewFieldIndex(fields []Field) *FieldIndex {
	idx := &FieldIndex{
		Fields: fields,
		byName: make(map[string]*Field, len(fields)),
		byID:   make(map[string]*Field, len(fields)),
	}
	for i := range idx.Fields {
		f := &idx.Fields[i]
		idx.byName[f.Name] = f
		if f.ID != "" {
			idx.byID[f.ID] = f
		}
	}
	return idx
}

// ByName returns the field with the given source name, or nil.
func (idx *FieldIndex) ByName(name string) *Field {
	return idx.byName[name]
}

// ByID returns the field with the given source id, or nil.
func (idx *FieldIndex) ByID(id string) *Field {
	return idx.byID[id]
}
