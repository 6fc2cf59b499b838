package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/samber/oops"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS channels (
	channel_id  TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	region      TEXT NOT NULL,
	province    TEXT NOT NULL DEFAULT '',
	subscribers BIGINT NOT NULL DEFAULT 0,
	confidence  INTEGER NOT NULL,
	method      TEXT NOT NULL,
	indicators  TEXT NOT NULL DEFAULT '',
	detected_at TIMESTAMPTZ NOT NULL,
	url         TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	live_score  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_channels_detected_at ON channels(detected_at)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStorage writes accepted channels to a shared Postgres table.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to dsn and migrates the schema.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.With("context", "failed to parse postgres dsn").Wrap(errors.ErrInvalidConfig)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.With("context", "failed to create postgres pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.With("host", cfg.ConnConfig.Host, "context", "failed to ping postgres").Wrap(err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, oops.With("context", "failed to migrate channels").Wrap(err)
	}
	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) Save(ctx context.Context, r domain.Record) error {
	query, args, err := psql.Insert("channels").
		Columns(domain.Columns...).
		Values(
			r.ChannelID, r.Title, r.Category, r.Region, r.Province, r.Subscribers,
			r.Confidence, r.Method, r.JoinedIndicators(), r.DetectedAt.UTC(),
			r.URL, r.Description, r.LiveScore,
		).
		Suffix("ON CONFLICT (channel_id) DO NOTHING").
		ToSql()
	if err != nil {
		return oops.With("channel_id", r.ChannelID).Wrap(err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return oops.With("channel_id", r.ChannelID, "context", "failed to insert channel").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("channel_id", r.ChannelID).Wrap(errors.ErrAlreadyRecorded)
	}
	return nil
}

func (s *PostgresStorage) List(ctx context.Context, filter domain.Filter) ([]domain.Record, error) {
	query := psql.Select(domain.Columns...).
		From("channels").
		OrderBy("detected_at DESC")
	query = applyFilter(query, filter)

	sqlText, args, err := query.ToSql()
	if err != nil {
		return nil, oops.Wrap(err)
	}
	rows, err := s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, oops.With("context", "failed to query channels").Wrap(err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			r          domain.Record
			indicators string
		)
		if err := rows.Scan(
			&r.ChannelID, &r.Title, &r.Category, &r.Region, &r.Province, &r.Subscribers,
			&r.Confidence, &r.Method, &indicators, &r.DetectedAt, &r.URL, &r.Description, &r.LiveScore,
		); err != nil {
			return nil, oops.With("context", "failed to scan channel").Wrap(err)
		}
		r.Indicators = domain.SplitIndicators(indicators)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to iterate channels").Wrap(err)
	}
	return records, nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
