package source

import (
	"context"
	"sort"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridfeed/gridfeed/internal/model"
	"github.com/gridfeed/gridfeed/pkg/notion"
)

// NotionSource exposes a Notion database as a table: property schema becomes
// column descriptors, pages become records keyed by property name.
type NotionSource struct {
	client notion.Client
	dbID   string
}

// NewNotionSource creates a source over one Notion database.
func NewNotionSource(client notion.Client, dbID string) *NotionSource {
	return &NotionSource{client: client, dbID: dbID}
}

// notionTypeTags maps Notion property config types to the declared type
// tags the classifier understands. Unlisted Notion types pass through
// verbatim; the classifier defaults those to string.
var notionTypeTags = map[notionapi.PropertyConfigType]string{
	notionapi.PropertyConfigTypeTitle:       "text",
	notionapi.PropertyConfigTypeRichText:    "richtext",
	notionapi.PropertyConfigTypeNumber:      "number",
	notionapi.PropertyConfigTypeSelect:      "select",
	notionapi.PropertyConfigTypeMultiSelect: "select",
	notionapi.PropertyConfigTypeDate:        "date",
	notionapi.PropertyConfigTypeCheckbox:    "checkbox",
	notionapi.PropertyConfigTypeURL:         "url",
	notionapi.PropertyConfigTypeEmail:       "email",
	notionapi.PropertyConfigTypePhoneNumber: "phone",
	notionapi.PropertyConfigTypeFiles:       "file",
	notionapi.PropertyConfigTypePeople:      "person",
	notionapi.PropertyConfigTypeRelation:    "reference",
	notionapi.PropertyConfigCreatedTime:     "datetime",
	notionapi.PropertyConfigLastEditedTime:  "datetime",
}

// Columns maps the database's property schema to column descriptors.
func (s *NotionSource) Columns(ctx context.Context) ([]model.ColumnDescriptor, error) {
	db, err := s.client.GetDatabase(ctx, s.dbID)
	if err != nil {
		return nil, eris.Wrap(err, "source: notion database schema")
	}

	cols := make([]model.ColumnDescriptor, 0, len(db.Properties))
	for name, cfg := range db.Properties {
		declared := string(cfg.GetType())
		if tag, ok := notionTypeTags[cfg.GetType()]; ok {
			declared = tag
		}
		col := model.ColumnDescriptor{
			ID:     name,
			Name:   name,
			Format: model.ColumnFormat{Type: declared},
		}
		if choices := configChoices(cfg); len(choices) > 0 {
			col.Format.Options = &model.ColumnOptions{Choices: choices}
		}
		cols = append(cols, col)
	}
	// Property maps iterate in random order; keep schema output stable.
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols, nil
}

// Records queries all pages of the database and flattens their properties
// into record payloads. Property shapes are preserved loosely (objects with
// name/value keys, arrays of such objects) so the extractor's probe order
// applies unchanged.
func (s *NotionSource) Records(ctx context.Context) ([]model.RawRecord, error) {
	pages, err := notion.QueryAll(ctx, s.client, s.dbID)
	if err != nil {
		return nil, eris.Wrap(err, "source: notion records")
	}

	records := make([]model.RawRecord, 0, len(pages))
	for _, page := range pages {
		rec := make(model.RawRecord, len(page.Properties))
		for name, prop := range page.Properties {
			payload, ok := propertyPayload(prop)
			if !ok {
				zap.L().Debug("source: unhandled notion property type",
					zap.String("property", name),
					zap.String("type", string(prop.GetType())),
				)
				continue
			}
			rec[name] = payload
		}
		records = append(records, rec)
	}
	return records, nil
}

func configChoices(cfg notionapi.PropertyConfig) []model.Choice {
	var options []notionapi.Option
	switch c := cfg.(type) {
	case *notionapi.SelectPropertyConfig:
		options = c.Select.Options
	case *notionapi.MultiSelectPropertyConfig:
		options = c.MultiSelect.Options
	default:
		return nil
	}
	choices := make([]model.Choice, 0, len(options))
	for _, o := range options {
		choices = append(choices, model.Choice{Name: o.Name, ID: string(o.ID)})
	}
	return choices
}

// propertyPayload converts one Notion page property into a record payload.
// The second return is false for property types we do not carry over.
func propertyPayload(prop notionapi.Property) (any, bool) {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title), true
	case *notionapi.RichTextProperty:
		return plainText(p.RichText), true
	case *notionapi.SelectProperty:
		return map[string]any{"name": p.Select.Name}, true
	case *notionapi.MultiSelectProperty:
		out := make([]any, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			out = append(out, map[string]any{"name": o.Name})
		}
		return out, true
	case *notionapi.NumberProperty:
		return p.Number, true
	case *notionapi.CheckboxProperty:
		return p.Checkbox, true
	case *notionapi.DateProperty:
		if p.Date == nil || p.Date.Start == nil {
			return nil, true
		}
		return time.Time(*p.Date.Start).Format(time.RFC3339), true
	case *notionapi.URLProperty:
		return p.URL, true
	case *notionapi.EmailProperty:
		return p.Email, true
	case *notionapi.PhoneNumberProperty:
		return p.PhoneNumber, true
	case *notionapi.FilesProperty:
		out := make([]any, 0, len(p.Files))
		for _, f := range p.Files {
			entry := map[string]any{"name": f.Name}
			if f.File != nil {
				entry["value"] = f.File.URL
			} else if f.External != nil {
				entry["value"] = f.External.URL
			}
			out = append(out, entry)
		}
		return out, true
	case *notionapi.PeopleProperty:
		out := make([]any, 0, len(p.People))
		for _, u := range p.People {
			out = append(out, map[string]any{"name": u.Name})
		}
		return out, true
	default:
		return nil, false
	}
}

func plainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
