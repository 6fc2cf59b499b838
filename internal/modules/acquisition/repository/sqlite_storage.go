package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/samber/oops"
)

const schema = `CREATE TABLE IF NOT EXISTS searches (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	query   TEXT NOT NULL,
	page    INTEGER NOT NULL,
	results INTEGER NOT NULL,
	new     INTEGER NOT NULL,
	at      TEXT NOT NULL
)`

// SQLiteStorage keeps the searches log in the searches table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage migrates the schema on db. The caller owns db.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if err := sqlitedb.Migrate(ctx, db, schema); err != nil {
		return nil, oops.With("context", "failed to migrate searches").Wrap(err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Append(ctx context.Context, r domain.SearchRecord) error {
	_, err := sq.Insert("searches").
		Columns("run_id", "query", "page", "results", "new", "at").
		Values(r.RunID, r.Query, r.Page, r.Results, r.New, r.At.UTC().Format(time.RFC3339)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return oops.With("query", r.Query, "page", r.Page, "context", "failed to log search").Wrap(err)
	}
	return nil
}

func (s *SQLiteStorage) Recent(ctx context.Context, limit int) ([]domain.SearchRecord, error) {
	query := sq.Select("run_id", "query", "page", "results", "new", "at").
		From("searches").
		OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to query searches").Wrap(err)
	}
	defer rows.Close()

	records := []domain.SearchRecord{}
	for rows.Next() {
		var (
			r  domain.SearchRecord
			at string
		)
		if err := rows.Scan(&r.RunID, &r.Query, &r.Page, &r.Results, &r.New, &at); err != nil {
			return nil, oops.With("context", "failed to scan search").Wrap(err)
		}
		r.At, _ = time.Parse(time.RFC3339, at)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to iterate searches").Wrap(err)
	}
	return records, nil
}

// Close is a no-op; the shared database handle is closed by its owner.
func (s *SQLiteStorage) Close() error {
	return nil
}
