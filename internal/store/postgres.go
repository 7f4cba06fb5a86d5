package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gridfeed/gridfeed/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS view_snapshots (
	request_key TEXT PRIMARY KEY,
	records     JSONB NOT NULL,
	fetched_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_view_snapshots_fetched_at ON view_snapshots(fetched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, requestKey string) (*ViewSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT request_key, records, fetched_at FROM view_snapshots WHERE request_key = $1`,
		requestKey,
	)

	var snap ViewSnapshot
	var rawRecords []byte
	if err := row.Scan(&snap.RequestKey, &rawRecords, &snap.FetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get snapshot")
	}
	if err := json.Unmarshal(rawRecords, &snap.Records); err != nil {
		return nil, eris.Wrap(err, "postgres: decode snapshot records")
	}
	return &snap, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, requestKey string, records []model.RawRecord) error {
	encoded, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "postgres: encode snapshot records")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO view_snapshots (request_key, records, fetched_at) VALUES ($1, $2, $3)
		 ON CONFLICT (request_key) DO UPDATE SET records = excluded.records, fetched_at = excluded.fetched_at`,
		requestKey, encoded, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save snapshot")
}

func (s *PostgresStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM view_snapshots WHERE fetched_at < $1`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune snapshots")
	}
	return int(tag.RowsAffected()), nil
}
