package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gridfeed/gridfeed/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS view_snapshots (
	request_key TEXT PRIMARY KEY,
	records     TEXT NOT NULL,
	fetched_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_view_snapshots_fetched_at ON view_snapshots(fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, requestKey string) (*ViewSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT request_key, records, fetched_at FROM view_snapshots WHERE request_key = ?`,
		requestKey,
	)

	var snap ViewSnapshot
	var rawRecords string
	if err := row.Scan(&snap.RequestKey, &rawRecords, &snap.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get snapshot")
	}
	if err := json.Unmarshal([]byte(rawRecords), &snap.Records); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode snapshot records")
	}
	return &snap, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, requestKey string, records []model.RawRecord) error {
	encoded, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode snapshot records")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO view_snapshots (request_key, records, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(request_key) DO UPDATE SET records = excluded.records, fetched_at = excluded.fetched_at`,
		requestKey, string(encoded), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save snapshot")
}

func (s *SQLiteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM view_snapshots WHERE fetched_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune snapshots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune rows affected")
	}
	return int(n), nil
}
