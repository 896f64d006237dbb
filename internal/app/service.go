package app

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/pscheid92/postwire/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Service is the application layer between the transports and the post store.
type Service struct {
	posts       domain.PostRepository
	createGroup singleflight.Group
}

// NewService creates the application layer service.
func NewService(posts domain.PostRepository) *Service {
	return &Service{posts: posts}
}

// createTimeout bounds a shared create, which no longer follows any single caller's context.
const createTimeout = 10 * time.Second

type createResult struct {
	post    *domain.Post
	created bool
}

// CreatePost returns the post with the given title and body, inserting it only
// when no identical post exists. Concurrent identical requests share one store call.
func (s *Service) CreatePost(ctx context.Context, title, body string) (*domain.Post, error) {
	v, err, shared := s.createGroup.Do(contentKey(title, body), func() (any, error) {
		// Other callers may join this call, so the first caller going away must not cancel it.
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()

		post, created, err := s.posts.Create(createCtx, title, body)
		if err != nil {
			return nil, err
		}
		return createResult{post: post, created: created}, nil
	})
	if err != nil {
		return nil, err
	}

	res := v.(createResult)
	if res.created {
		slog.DebugContext(ctx, "Post created", "post_id", res.post.ID, "shared", shared)
	} else {
		slog.DebugContext(ctx, "Existing post reused", "post_id", res.post.ID, "shared", shared)
	}

	post := *res.post
	return &post, nil
}

// contentKey is unambiguous for any title and body pair.
func contentKey(title, body string) string {
	return strconv.Itoa(len(title)) + ":" + title + body
}

func (s *Service) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *Service) UpdatePost(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	post, err := s.posts.Update(ctx, id, title, body)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Post updated", "post_id", id)
	return post, nil
}

func (s *Service) DeletePost(ctx context.Context, id int64) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Post deleted", "post_id", id)
	return nil
}

// UpsertPost overwrites the post with the given id, or inserts it under that id.
func (s *Service) UpsertPost(ctx context.Context, id int64, title, body string) (*domain.Post, error) {
	post, err := s.posts.Upsert(ctx, id, title, body)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Post upserted", "post_id", id)
	return post, nil
}

// Ready reports whether the post store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.posts.Ping(ctx)
}
