package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/reshetovitsme/streamer-census/internal/modules/user/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/samber/oops"
)

const schema = `CREATE TABLE IF NOT EXISTS subscribers (
	id       INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	chat_id  INTEGER NOT NULL,
	added_at TEXT NOT NULL
)`

var columns = []string{"id", "username", "chat_id", "added_at"}

// SQLiteStorage keeps subscribers in the subscribers table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage migrates the schema on db. The caller owns db.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if err := sqlitedb.Migrate(ctx, db, schema); err != nil {
		return nil, oops.With("context", "failed to migrate subscribers").Wrap(err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, u domain.User) error {
	_, err := sq.Insert("subscribers").
		Columns(columns...).
		Values(u.ID, u.Username, u.ChatID, u.AddedAt.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(id) DO UPDATE SET username = excluded.username, chat_id = excluded.chat_id").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return oops.With("user_id", u.ID, "context", "failed to save subscriber").Wrap(err)
	}
	return nil
}

func (s *SQLiteStorage) Get(ctx context.Context, userID int64) (domain.User, error) {
	row := sq.Select(columns...).
		From("subscribers").
		Where(sq.Eq{"id": userID}).
		RunWith(s.db).
		QueryRowContext(ctx)

	u, err := scan(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.User{}, oops.With("user_id", userID).Wrap(errors.ErrSubscriberNotFound)
	}
	if err != nil {
		return domain.User{}, oops.With("user_id", userID, "context", "failed to read subscriber").Wrap(err)
	}
	return u, nil
}

func (s *SQLiteStorage) List(ctx context.Context) ([]domain.User, error) {
	rows, err := sq.Select(columns...).
		From("subscribers").
		OrderBy("id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to query subscribers").Wrap(err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, oops.With("context", "failed to scan subscriber").Wrap(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "failed to iterate subscribers").Wrap(err)
	}
	return users, nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, userID int64) error {
	_, err := sq.Delete("subscribers").
		Where(sq.Eq{"id": userID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return oops.With("user_id", userID, "context", "failed to delete subscriber").Wrap(err)
	}
	return nil
}

func scan(row sq.RowScanner) (domain.User, error) {
	var (
		u       domain.User
		addedAt string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.ChatID, &addedAt); err != nil {
		return domain.User{}, err
	}
	u.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
	return u, nil
}
