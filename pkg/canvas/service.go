// Package canvas exposes typed Canvas LMS operations on top of the
// low-level client: courses, assignments, submissions, files, modules,
// discussions, quizzes, users, accounts and reports.
package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service wraps a Canvas client with typed operations.
type Service struct {
	client   *client.Client
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewService creates a Service on top of c.
func NewService(c *client.Client, logger zerolog.Logger) *Service {
	return &Service{
		client:   c,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Client returns the underlying API client.
func (s *Service) Client() *client.Client {
	return s.client
}

// get fetches path and decodes the (fully paginated) body into a T.
func get[T any](ctx context.Context, s *Service, path string, query url.Values) (T, error) {
	var out T
	resp, err := s.client.Get(ctx, path, query)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// list is get for collections; it never returns a nil slice.
func list[T any](ctx context.Context, s *Service, path string, query url.Values) ([]T, error) {
	out, err := get[[]T](ctx, s, path, query)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// send performs a write request and decodes the response into a T.
func send[T any](ctx context.Context, s *Service, method, path string, body any) (T, error) {
	var out T
	resp, err := s.client.Do(ctx, &client.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// exec performs a write request whose response body is not needed.
func (s *Service) exec(ctx context.Context, method, path string, body any) error {
	_, err := s.client.Do(ctx, &client.Request{Method: method, Path: path, Body: body})
	return err
}

func (s *Service) del(ctx context.Context, path string, query url.Values) error {
	_, err := s.client.Do(ctx, &client.Request{Method: http.MethodDelete, Path: path, Query: query})
	return err
}

// include builds the include[] query Canvas uses for side-loading.
func include(values ...string) url.Values {
	q := url.Values{}
	for _, v := range values {
		q.Add("include[]", v)
	}
	return q
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func requireID(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidArgument, name)
	}
	return nil
}
