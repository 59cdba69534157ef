package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/pagination"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// sleepRecorder records backoff delays instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

// newTestClient creates a client pointed at mock that never really sleeps.
func newTestClient(t *testing.T, mock *testutil.MockCanvas, opts ...Option) *Client {
	t.Helper()

	recorder := &sleepRecorder{}
	base := []Option{
		WithBaseURL(mock.BaseURL()),
		WithLogger(zerolog.Nop()),
		withSleeper(recorder.sleep),
	}

	c, err := New("test-token", "canvas.example.edu", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		domain      string
		opts        []Option
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			token:  "abc",
			domain: "canvas.example.edu",
		},
		{
			name:        "empty token",
			domain:      "canvas.example.edu",
			expectError: true,
			errorMsg:    "token is required",
		},
		{
			name:        "empty domain",
			token:       "abc",
			expectError: true,
			errorMsg:    "domain is required",
		},
		{
			name:        "negative max retries",
			token:       "abc",
			domain:      "canvas.example.edu",
			opts:        []Option{WithMaxRetries(-1)},
			expectError: true,
			errorMsg:    "max retries must be >= 0",
		},
		{
			name:        "negative retry delay",
			token:       "abc",
			domain:      "canvas.example.edu",
			opts:        []Option{WithRetryDelay(-time.Second)},
			expectError: true,
			errorMsg:    "retry delay must be >= 0",
		},
		{
			name:        "zero timeout",
			token:       "abc",
			domain:      "canvas.example.edu",
			opts:        []Option{WithTimeout(0)},
			expectError: true,
			errorMsg:    "timeout must be > 0",
		},
		{
			name:        "base url without scheme",
			token:       "abc",
			domain:      "canvas.example.edu",
			opts:        []Option{WithBaseURL("localhost/api/v1")},
			expectError: true,
			errorMsg:    "scheme and host required",
		},
		{
			name:   "zero retries allowed",
			token:  "abc",
			domain: "canvas.example.edu",
			opts:   []Option{WithMaxRetries(0), WithRetryDelay(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.token, tt.domain, tt.opts...)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("Expected client, got nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New("abc", "canvas.example.edu")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.BaseURL(); got != "https://canvas.example.edu/api/v1" {
		t.Errorf("BaseURL() = %q, want https://canvas.example.edu/api/v1", got)
	}
	if c.MaxRetries() != DefaultMaxRetries {
		t.Errorf("MaxRetries() = %d, want %d", c.MaxRetries(), DefaultMaxRetries)
	}
	if c.retryDelay != DefaultRetryDelay {
		t.Errorf("retryDelay = %v, want %v", c.retryDelay, DefaultRetryDelay)
	}
	if c.HTTPClient().Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.HTTPClient().Timeout, DefaultTimeout)
	}
}

func TestNew_DoesNotMutateHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	c, err := New("abc", "canvas.example.edu", WithHTTPClient(hc), WithTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if hc.Transport != nil {
		t.Error("caller's http.Client transport was replaced")
	}
	if hc.Timeout != 5*time.Second {
		t.Errorf("caller's Timeout = %v, want 5s", hc.Timeout)
	}
	if c.HTTPClient().Timeout != 10*time.Second {
		t.Errorf("client Timeout = %v, want 10s", c.HTTPClient().Timeout)
	}
}

func TestDo_AuthHeaders(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/users/self", map[string]any{"id": 1})

	c := newTestClient(t, mock)
	if _, err := c.Get(context.Background(), "/users/self", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestDo_QueryAndPath(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/courses/42/assignments", []any{})

	c := newTestClient(t, mock)
	query := url.Values{}
	query.Add("include[]", "submission")
	query.Set("per_page", "100")

	if _, err := c.Get(context.Background(), "courses/42/assignments", query); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	req := mock.LastRequest()
	if req.Path != "/courses/42/assignments" {
		t.Errorf("Path = %q, want /courses/42/assignments", req.Path)
	}
	parsed, err := url.ParseQuery(req.Query)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if got := parsed.Get("include[]"); got != "submission" {
		t.Errorf("include[] = %q, want submission", got)
	}
	if got := parsed.Get("per_page"); got != "100" {
		t.Errorf("per_page = %q, want 100", got)
	}
}

func TestDo_PostBody(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponse("POST /courses/1/discussion_topics",
		testutil.NewJSONResponse(http.StatusOK, `{"id":7,"title":"Hello"}`))

	c := newTestClient(t, mock)
	resp, err := c.Post(context.Background(), "/courses/1/discussion_topics", map[string]string{"title": "Hello"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	var topic struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := resp.Decode(&topic); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if topic.ID != 7 {
		t.Errorf("ID = %d, want 7", topic.ID)
	}

	req := mock.LastRequest()
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if string(req.Body) != `{"title":"Hello"}` {
		t.Errorf("Body = %s, want {\"title\":\"Hello\"}", req.Body)
	}
}

func TestDo_PaginationConcatenates(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPaginated("/courses",
		[]any{map[string]int{"id": 1}, map[string]int{"id": 2}},
		[]any{map[string]int{"id": 3}},
		[]any{map[string]int{"id": 4}, map[string]int{"id": 5}, map[string]int{"id": 6}},
	)

	c := newTestClient(t, mock)
	resp, err := c.Get(context.Background(), "/courses", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var courses []struct {
		ID int `json:"id"`
	}
	if err := resp.Decode(&courses); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(courses) != 6 {
		t.Fatalf("len(courses) = %d, want 6", len(courses))
	}
	for i, course := range courses {
		if course.ID != i+1 {
			t.Errorf("courses[%d].ID = %d, want %d", i, course.ID, i+1)
		}
	}
	if resp.Pages != 3 {
		t.Errorf("Pages = %d, want 3", resp.Pages)
	}
	if resp.Truncated {
		t.Error("Truncated = true, want false")
	}
	if got := mock.GetPathCount("/courses"); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestDo_PaginationCeiling(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	// Every page links back to itself.
	var served int
	var mu sync.Mutex
	mock.SetHandler("/loop", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		n := served
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Link", fmt.Sprintf(`<%s/loop>; rel="next"`, mock.BaseURL()))
		fmt.Fprintf(w, "[%d]", n)
	})

	var logs bytes.Buffer
	c := newTestClient(t, mock, WithLogger(zerolog.New(&logs).Level(zerolog.WarnLevel)))

	resp, err := c.Get(context.Background(), "/loop", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	var items []int
	if err := resp.Decode(&items); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(items) != pagination.MaxPages {
		t.Errorf("len(items) = %d, want %d", len(items), pagination.MaxPages)
	}
	if resp.Pages != pagination.MaxPages {
		t.Errorf("Pages = %d, want %d", resp.Pages, pagination.MaxPages)
	}
	if !resp.Truncated {
		t.Error("Truncated = false, want true")
	}
	if got := mock.GetPathCount("/loop"); got != pagination.MaxPages {
		t.Errorf("requests = %d, want %d", got, pagination.MaxPages)
	}
	if !strings.Contains(logs.String(), "Reached maximum page limit") {
		t.Errorf("expected ceiling warning in logs, got: %s", logs.String())
	}
}

func TestDo_PaginationSkipped(t *testing.T) {
	link := map[string]string{"Link": `<http://127.0.0.1:1/api/v1/next>; rel="next"`}

	tests := []struct {
		name       string
		resp       testutil.MockCanvasResponse
		singlePage bool
	}{
		{
			name: "non-JSON content type",
			resp: testutil.MockCanvasResponse{
				StatusCode: http.StatusOK,
				Body:       `[1,2]`,
				Headers:    map[string]string{"Content-Type": "text/plain", "Link": link["Link"]},
			},
		},
		{
			name: "object body",
			resp: testutil.MockCanvasResponse{
				StatusCode: http.StatusOK,
				Body:       `{"id":1}`,
				Headers:    map[string]string{"Content-Type": "application/json", "Link": link["Link"]},
			},
		},
		{
			name: "single page requested",
			resp: testutil.MockCanvasResponse{
				StatusCode: http.StatusOK,
				Body:       `[1,2]`,
				Headers:    map[string]string{"Content-Type": "application/json", "Link": link["Link"]},
			},
			singlePage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCanvas()
			defer mock.Close()
			mock.SetResponse("/items", tt.resp)

			c := newTestClient(t, mock)
			resp, err := c.Do(context.Background(), &Request{
				Method:     http.MethodGet,
				Path:       "/items",
				SinglePage: tt.singlePage,
			})
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}

			if string(resp.Body) != tt.resp.Body {
				t.Errorf("Body = %s, want %s", resp.Body, tt.resp.Body)
			}
			if resp.Pages != 1 {
				t.Errorf("Pages = %d, want 1", resp.Pages)
			}
			if resp.Header.Get("Link") == "" {
				t.Error("Link header should be passed through")
			}
			if got := mock.GetRequestCount(); got != 1 {
				t.Errorf("requests = %d, want 1", got)
			}
		})
	}
}

func TestDo_PaginationInvalidPage(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	mock.SetHandler("/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"not":"a list"}`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/items?page=2>; rel="next"`, mock.BaseURL()))
		w.Write([]byte(`[1]`))
	})

	c := newTestClient(t, mock)
	_, err := c.Get(context.Background(), "/items", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var ce *CanvasError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *CanvasError, got %T", err)
	}
	if ce.Kind != ErrorKindDecode {
		t.Errorf("Kind = %s, want %s", ce.Kind, ErrorKindDecode)
	}
	if !errors.Is(err, pagination.ErrInvalidPage) {
		t.Errorf("Expected ErrInvalidPage in chain, got %v", err)
	}
}

func TestDo_RateLimitTracker(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	resp := testutil.NewJSONResponse(http.StatusOK, `{"id":1}`)
	resp.Headers["X-Rate-Limit-Remaining"] = "321.5"
	resp.Headers["X-Request-Cost"] = "2"
	mock.SetResponse("/users/self", resp)

	tracker := ratelimit.NewTracker(nil, zerolog.Nop())
	c := newTestClient(t, mock, WithRateLimitTracker(tracker))

	if _, err := c.Get(context.Background(), "/users/self", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 321.5 {
		t.Errorf("Remaining = %v, want 321.5", state.Remaining)
	}
	if state.LastCost != 2 {
		t.Errorf("LastCost = %v, want 2", state.LastCost)
	}
}

func TestResolveURL(t *testing.T) {
	c, err := New("abc", "canvas.example.edu")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name     string
		path     string
		query    url.Values
		expected string
	}{
		{
			name:     "leading slash",
			path:     "/courses/1",
			expected: "https://canvas.example.edu/api/v1/courses/1",
		},
		{
			name:     "no leading slash",
			path:     "courses/1",
			expected: "https://canvas.example.edu/api/v1/courses/1",
		},
		{
			name:     "query merged",
			path:     "/courses?per_page=100",
			query:    url.Values{"enrollment_state": {"active"}},
			expected: "https://canvas.example.edu/api/v1/courses?enrollment_state=active&per_page=100",
		},
		{
			name:     "absolute url kept",
			path:     "https://canvas.example.edu/api/v1/courses?page=2&per_page=10",
			expected: "https://canvas.example.edu/api/v1/courses?page=2&per_page=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.resolveURL(tt.path, tt.query)
			if err != nil {
				t.Fatalf("resolveURL() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("resolveURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResponse_Decode(t *testing.T) {
	resp := &Response{Body: []byte(`{"id":3}`)}
	var v map[string]int
	if err := resp.Decode(&v); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v["id"] != 3 {
		t.Errorf("id = %d, want 3", v["id"])
	}

	empty := &Response{}
	if err := empty.Decode(&v); err != nil {
		t.Errorf("Decode() on empty body error = %v", err)
	}

	bad := &Response{Body: []byte(`not json`)}
	var out json.RawMessage
	if err := bad.Decode(&out); err == nil {
		t.Error("Decode() on invalid body error = nil, want error")
	}
}
