package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/reshetovitsme/streamer-census/internal/modules/seen/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/samber/oops"
)

const schema = `CREATE TABLE IF NOT EXISTS seen_channels (
	channel_id TEXT PRIMARY KEY,
	outcome    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	seen_at    TEXT NOT NULL
)`

// SQLiteStorage keeps seen records in the seen_channels table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage migrates the schema on db. The caller owns db.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if err := sqlitedb.Migrate(ctx, db, schema); err != nil {
		return nil, oops.With("context", "failed to migrate seen_channels").Wrap(err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := sq.Select("channel_id", "outcome", "reason", "seen_at").
		From("seen_channels").
		OrderBy("seen_at").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to query seen_channels").Wrap(err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			r      domain.Record
			seenAt string
		)
		if err := rows.Scan(&r.ChannelID, &r.Outcome, &r.Reason, &seenAt); err != nil {
			return nil, oops.With("context", "failed to scan seen record").Wrap(err)
		}
		r.SeenAt, _ = time.Parse(time.RFC3339, seenAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to iterate seen_channels").Wrap(err)
	}
	return records, nil
}

func (s *SQLiteStorage) Append(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return oops.With("context", "failed to begin seen transaction").Wrap(err)
	}
	defer tx.Rollback()

	for _, r := range records {
		_, err := sq.Insert("seen_channels").
			Columns("channel_id", "outcome", "reason", "seen_at").
			Values(r.ChannelID, r.Outcome.String(), r.Reason, r.SeenAt.UTC().Format(time.RFC3339)).
			Suffix("ON CONFLICT(channel_id) DO NOTHING").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return oops.With("channel_id", r.ChannelID, "context", "failed to insert seen record").Wrap(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return oops.With("context", "failed to commit seen records").Wrap(err)
	}
	return nil
}

// Close is a no-op; the shared database handle is closed by its owner.
func (s *SQLiteStorage) Close() error {
	return nil
}
