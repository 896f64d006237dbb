package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/postwire/internal/adapter/postgres/sqlcgen"
	"github.com/pscheid92/postwire/internal/domain"
)

const (
	// idSequenceLockID serializes sequence advances between upserts.
	// Value: 0x706f73747369 ("postsi" in ASCII hex)
	idSequenceLockID = 0x706f73747369

	uniqueViolation = "23505"
)

type PostRepo struct {
	pool *pgxpool.Pool
	q    *sqlcgen.Queries
}

var _ domain.PostRepository = (*PostRepo)(nil)

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{
		pool: pool,
		q:    sqlcgen.New(pool),
	}
}

func toDomainPost(row sqlcgen.Post) *domain.Post {
	return &domain.Post{
		ID:    row.ID,
		Title: row.Title,
		Body:  row.Body,
	}
}

// Create returns the post with identical title and body, inserting it if none exists.
// An upsert may claim the id the sequence just handed out; the insert is then
// retried once with a fresh id.
func (r *PostRepo) Create(ctx context.Context, title, body string) (*domain.Post, bool, error) {
	post, created, err := r.create(ctx, title, body)
	if isUniqueViolation(err) {
		return r.create(ctx, title, body)
	}
	return post, created, err
}

func isUniqueViolation(err error) bool {
	pgErr, ok := errors.AsType[*pgconn.PgError](err)
	return ok && pgErr.Code == uniqueViolation
}

func (r *PostRepo) create(ctx context.Context, title, body string) (*domain.Post, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := r.q.WithTx(tx)
	if err := qtx.LockPostContent(ctx, sqlcgen.LockPostContentParams{Title: title, Body: body}); err != nil {
		return nil, false, fmt.Errorf("failed to lock post content: %w", err)
	}

	existing, err := qtx.GetPostByContent(ctx, sqlcgen.GetPostByContentParams{Title: title, Body: body})
	if err == nil {
		return toDomainPost(existing), false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up post by content: %w", err)
	}

	row, err := qtx.CreatePost(ctx, sqlcgen.CreatePostParams{Title: title, Body: body})
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert post: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return toDomainPost(row), true, nil
}

func (r *PostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	row, err := r.q.GetPostByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by ID: %w", err)
	}
	return toDomainPost(row), nil
}

func (r *PostRepo) Update(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	row, err := r.q.UpdatePost(ctx, sqlcgen.UpdatePostParams{ID: id, Title: title, Body: body})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return toDomainPost(row), nil
}

func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	affected, err := r.q.DeletePost(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if affected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) Upsert(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The sequence moves before the insert so a concurrent create cannot draw this id.
	qtx := r.q.WithTx(tx)
	if err := qtx.LockIDSequence(ctx, idSequenceLockID); err != nil {
		return nil, fmt.Errorf("failed to lock post id sequence: %w", err)
	}
	if err := qtx.AdvanceIDSequence(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to advance post id sequence: %w", err)
	}

	row, err := qtx.UpsertPost(ctx, sqlcgen.UpsertPostParams{ID: id, Title: title, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert post: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return toDomainPost(row), nil
}

func (r *PostRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostRepo) Close() error {
	r.pool.Close()
	return nil
}
