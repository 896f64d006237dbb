package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/postwire/internal/adapter/metrics"
	"github.com/pscheid92/postwire/internal/domain"
)

const (
	selectPostByContent = `SELECT id, title, body FROM posts WHERE title = ? AND body = ? ORDER BY id LIMIT 1`
	insertPost          = `INSERT INTO posts (title, body) VALUES (?, ?) RETURNING id, title, body`
	selectPostByID      = `SELECT id, title, body FROM posts WHERE id = ?`
	updatePost          = `UPDATE posts SET title = ?, body = ? WHERE id = ? RETURNING id, title, body`
	deletePost          = `DELETE FROM posts WHERE id = ?`
	upsertPost          = `
		INSERT INTO posts (id, title, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, body = excluded.body
		RETURNING id, title, body`
)

// PostRepo implements domain.PostRepository on SQLite.
type PostRepo struct {
	db      *sql.DB
	metrics *metrics.DatabaseMetrics
}

// NewPostRepo returns a repository over db. m may be nil.
func NewPostRepo(db *sql.DB, m *metrics.DatabaseMetrics) *PostRepo {
	return &PostRepo{db: db, metrics: m}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Body); err != nil {
		return nil, err
	}
	return &p, nil
}

// queryRow runs a single-row query and records its timing.
func (r *PostRepo) queryRow(ctx context.Context, q querier, query string, args ...any) (*domain.Post, error) {
	start := time.Now()
	post, err := scanPost(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		r.metrics.Observe(query, start, nil)
		return nil, err
	}
	r.metrics.Observe(query, start, err)
	return post, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostRepo) Create(ctx context.Context, title, body string) (*domain.Post, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := r.queryRow(ctx, tx, selectPostByContent, title, body)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up post by content: %w", err)
	}

	post, err := r.queryRow(ctx, tx, insertPost, title, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return post, true, nil
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := r.queryRow(ctx, r.db, selectPostByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostRepo) Update(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	post, err := r.queryRow(ctx, r.db, updatePost, title, body, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, deletePost, id)
	r.metrics.Observe(deletePost, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) Upsert(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	post, err := r.queryRow(ctx, r.db, upsertPost, id, title, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert post: %w", err)
	}
	return post, nil
}

func (r *PostRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostRepo) Close() error {
	return r.db.Close()
}
