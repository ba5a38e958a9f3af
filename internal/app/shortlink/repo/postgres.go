package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortlink.local/internal/app/shortlink"
)

// PostgresStore keeps bindings in the links table. The UNIQUE(code) constraint is what makes
// InsertIfAbsent atomic across connections and processes.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, code, url string) (bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := s.db.Exec(dbctx,
		`INSERT INTO links (code, url) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
		code, url)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var url string
	err := s.db.QueryRow(dbctx, `SELECT url FROM links WHERE code=$1`, code).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

// Snapshot reads the whole table in one statement, so it sees a single MVCC snapshot.
// id order is allocation order; concurrent inserts may commit in a different order.
func (s *PostgresStore) Snapshot(ctx context.Context) (shortlink.Snapshot, error) {
	dbctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.db.Query(dbctx, `SELECT code, url FROM links ORDER BY id`)
	if err != nil {
		return nil, err
	}
	links, err := pgx.CollectRows(rows, pgx.RowToStructByPos[shortlink.Link])
	if err != nil {
		return nil, err
	}
	return shortlink.Snapshot(links), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
