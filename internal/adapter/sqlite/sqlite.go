package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const createPostsTable = `
	CREATE TABLE IF NOT EXISTS posts (
		id    INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		body  TEXT NOT NULL
	)`

// Open opens the database file at path and creates the posts table if missing.
// The pool is limited to one connection so every statement runs in sequence.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createPostsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create posts table: %w", err)
	}

	slog.Info("SQLite database ready", "path", path)
	return db, nil
}
