// Package sqlitedb opens the crawler's SQLite database.
package sqlitedb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

// FileName is the database file created under the storage path.
const FileName = "census.db"

// Open opens (or creates) basePath/census.db with a single writer connection.
func Open(ctx context.Context, basePath string) (*sql.DB, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	dbPath := filepath.Join(basePath, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, oops.With("path", dbPath).Wrap(err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, oops.With("path", dbPath, "pragma", pragma).Wrap(err)
		}
	}
	return db, nil
}

// Migrate runs idempotent schema statements.
func Migrate(ctx context.Context, db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return oops.With("statement", stmt).Wrap(err)
		}
	}
	return nil
}
