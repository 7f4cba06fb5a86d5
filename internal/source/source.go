// Package source adapts external table backends to a common shape: a column
// schema plus raw records. Two adapters exist, the generic JSON table source
// (optionally behind a proxy worker) and a Notion database source.
package source

import (
	"context"

	"github.com/gridfeed/gridfeed/internal/model"
)

// Source provides the schema and rows of one external table.
type Source interface {
	// Columns fetches the table's column descriptors.
	Columns(ctx context.Context) ([]model.ColumnDescriptor, error)

	// Records fetches the table's rows. Shapes inside each record are
	// opaque; normalization happens downstream.
	Records(ctx context.Context) ([]model.RawRecord, error)
}
