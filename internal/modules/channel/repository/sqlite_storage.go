package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/samber/oops"
)

const channelsSchema = `CREATE TABLE IF NOT EXISTS channels (
	channel_id  TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	region      TEXT NOT NULL,
	province    TEXT NOT NULL DEFAULT '',
	subscribers INTEGER NOT NULL DEFAULT 0,
	confidence  INTEGER NOT NULL,
	method      TEXT NOT NULL,
	indicators  TEXT NOT NULL DEFAULT '',
	detected_at TEXT NOT NULL,
	url         TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	live_score  INTEGER NOT NULL DEFAULT 0
)`

const channelsIndex = `CREATE INDEX IF NOT EXISTS idx_channels_detected_at ON channels(detected_at)`

// SQLiteStorage keeps accepted channels in the channels table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage migrates the schema on db. The caller owns db.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if err := sqlitedb.Migrate(ctx, db, channelsSchema, channelsIndex); err != nil {
		return nil, oops.With("context", "failed to migrate channels").Wrap(err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, r domain.Record) error {
	res, err := sq.Insert("channels").
		Columns(domain.Columns...).
		Values(
			r.ChannelID, r.Title, r.Category, r.Region, r.Province, r.Subscribers,
			r.Confidence, r.Method, r.JoinedIndicators(), r.DetectedAt.UTC().Format(time.RFC3339),
			r.URL, r.Description, r.LiveScore,
		).
		Suffix("ON CONFLICT(channel_id) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return oops.With("channel_id", r.ChannelID, "context", "failed to insert channel").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.With("channel_id", r.ChannelID).Wrap(err)
	}
	if n == 0 {
		return oops.With("channel_id", r.ChannelID).Wrap(errors.ErrAlreadyRecorded)
	}
	return nil
}

func (s *SQLiteStorage) List(ctx context.Context, filter domain.Filter) ([]domain.Record, error) {
	query := sq.Select(domain.Columns...).
		From("channels").
		OrderBy("detected_at DESC", "rowid DESC")
	query = applyFilter(query, filter)

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to query channels").Wrap(err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			r          domain.Record
			indicators string
			detectedAt string
		)
		if err := rows.Scan(
			&r.ChannelID, &r.Title, &r.Category, &r.Region, &r.Province, &r.Subscribers,
			&r.Confidence, &r.Method, &indicators, &detectedAt, &r.URL, &r.Description, &r.LiveScore,
		); err != nil {
			return nil, oops.With("context", "failed to scan channel").Wrap(err)
		}
		r.Indicators = domain.SplitIndicators(indicators)
		r.DetectedAt, _ = time.Parse(time.RFC3339, detectedAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to iterate channels").Wrap(err)
	}
	return records, nil
}

// Close is a no-op; the shared database handle is closed by its owner.
func (s *SQLiteStorage) Close() error {
	return nil
}

func applyFilter(query sq.SelectBuilder, filter domain.Filter) sq.SelectBuilder {
	if filter.Region != "" {
		query = query.Where("LOWER(region) = LOWER(?)", filter.Region)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	return query
}
