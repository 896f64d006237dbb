package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/postwire/internal/domain"
	apperrors "github.com/pscheid92/postwire/internal/platform/errors"
)

func (s *Server) registerPostRoutes(m ...echo.MiddlewareFunc) {
	s.echo.POST("/posts", s.handleCreatePost, m...)
	s.echo.POST("/posts/", s.handleCreatePost, m...)
	s.echo.GET("/posts/:id", s.handleGetPost, m...)
	s.echo.PUT("/posts/:id", s.handleUpdatePost, m...)
	s.echo.DELETE("/posts/:id", s.handleDeletePost, m...)
}

type postInput struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func bindPostInput(c echo.Context) (title, body string, err error) {
	var in postInput
	if err := c.Bind(&in); err != nil {
		return "", "", apperrors.ValidationError("invalid request body")
	}
	if in.Title == nil {
		return "", "", apperrors.ValidationError("title is required")
	}
	if in.Body == nil {
		return "", "", apperrors.ValidationError("body is required")
	}
	return *in.Title, *in.Body, nil
}

func parsePostID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.ValidationError("invalid post ID").WithField("id", raw)
	}
	return id, nil
}

func postLookupError(err error, id int64, action string) error {
	if errors.Is(err, domain.ErrPostNotFound) {
		return apperrors.NotFoundError("post not found").WithField("post_id", id)
	}
	return apperrors.InternalError("failed to "+action+" post", err).WithField("post_id", id)
}

func (s *Server) handleCreatePost(c echo.Context) error {
	title, body, err := bindPostInput(c)
	if err != nil {
		return err
	}

	post, err := s.posts.CreatePost(c.Request().Context(), title, body)
	if err != nil {
		return apperrors.InternalError("failed to create post", err)
	}

	if err := c.JSON(http.StatusOK, post); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetPost(c echo.Context) error {
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	post, err := s.posts.GetPost(c.Request().Context(), id)
	if err != nil {
		return postLookupError(err, id, "load")
	}

	if err := c.JSON(http.StatusOK, post); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdatePost(c echo.Context) error {
	id, err := parsePostID(c)
	if err != nil {
		return err
	}
	title, body, err := bindPostInput(c)
	if err != nil {
		return err
	}

	post, err := s.posts.UpdatePost(c.Request().Context(), id, title, body)
	if err != nil {
		return postLookupError(err, id, "update")
	}

	if err := c.JSON(http.StatusOK, post); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeletePost(c echo.Context) error {
	id, err := parsePostID(c)
	if err != nil {
		return err
	}

	if err := s.posts.DeletePost(c.Request().Context(), id); err != nil {
		return postLookupError(err, id, "delete")
	}

	if err := c.JSON(http.StatusOK, map[string]string{"message": "Post deleted"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
