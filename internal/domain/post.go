package domain

import "context"

type Post struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PostRepository abstracts post persistence. Every method returns a fresh copy;
// lookups on an absent id return ErrPostNotFound.
type PostRepository interface {
	// Create returns an existing post with identical title and body instead of
	// inserting a duplicate. created reports whether a new row was written.
	Create(ctx context.Context, title, body string) (post *Post, created bool, err error)
	GetByID(ctx context.Context, id int64) (*Post, error)
	Update(ctx context.Context, id int64, title, body string) (*Post, error)
	Delete(ctx context.Context, id int64) error
	// Upsert overwrites the post with the given id or inserts it with exactly that id.
	Upsert(ctx context.Context, id int64, title, body string) (*Post, error)

	Ping(ctx context.Context) error
	Close() error
}
