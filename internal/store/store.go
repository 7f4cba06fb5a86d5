// Package store persists the last successfully published record view per
// request key, so the serve surface can fall back to a cached view when the
// source is unreachable.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gridfeed/gridfeed/internal/model"
)

// ViewSnapshot is one cached record view.
type ViewSnapshot struct {
	RequestKey string            `json:"request_key"`
	Records    []model.RawRecord `json:"records"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Store defines the snapshot persistence interface.
type Store interface {
	// GetSnapshot returns the cached view for the request key, or nil when
	// none exists.
	GetSnapshot(ctx context.Context, requestKey string) (*ViewSnapshot, error)

	// SaveSnapshot upserts the cached view for the request key.
	SaveSnapshot(ctx context.Context, requestKey string, records []model.RawRecord) error

	// PruneOlderThan deletes snapshots fetched before the cutoff and
	// returns how many were removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
