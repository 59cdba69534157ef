// Package testutil provides testing utilities for the Canvas client and MCP server.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves the Canvas API under.
const APIPrefix = "/api/v1"

// MockCanvasResponse defines the behavior for a mock Canvas endpoint response.
type MockCanvasResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockCanvas is a configurable mock Canvas server for testing. Handlers are
// registered by API path without the /api/v1 prefix.
type MockCanvas struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requests   []RecordedRequest
	pathCounts map[string]int
}

// NewMockCanvas creates a new mock Canvas server.
func NewMockCanvas() *MockCanvas {
	mock := &MockCanvas{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		mock.pathCounts[path]++
		handler, exists := mock.handlers[r.Method+" "+path]
		if !exists {
			handler, exists = mock.handlers[path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server root URL.
func (m *MockCanvas) URL() string {
	return m.server.URL
}

// BaseURL returns the API base URL to hand to the client.
func (m *MockCanvas) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockCanvas) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockCanvas) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.pathCounts = make(map[string]int)
}

// SetHandler sets a custom handler for an API path. The path may be
// prefixed with a method ("POST /courses") to match that method only.
func (m *MockCanvas) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCanvas) SetResponse(path string, resp MockCanvasResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence serves the given responses in order; the last one repeats.
func (m *MockCanvas) SetSequence(path string, responses ...MockCanvasResponse) {
	var (
		mu    sync.Mutex
		index int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[index]
		if index < len(responses)-1 {
			index++
		}
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// SetPaginated serves pages as JSON arrays selected by the page query
// parameter, linking each page to the next with an absolute rel="next" URL.
func (m *MockCanvas) SetPaginated(path string, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}
		if page > len(pages) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte("[]"))
			return
		}

		if page < len(pages) {
			next := fmt.Sprintf("%s%s%s?page=%d&per_page=100", m.server.URL, APIPrefix, path, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(pages[page-1])
	})
}

// SetJSON configures a 200 response with v encoded as JSON.
func (m *MockCanvas) SetJSON(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode %s: %v", path, err))
	}
	m.SetResponse(path, NewJSONResponse(http.StatusOK, string(data)))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCanvas) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetPathCount returns the number of requests made to an API path.
func (m *MockCanvas) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// Requests returns a copy of every recorded request.
func (m *MockCanvas) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil if none arrived.
func (m *MockCanvas) LastRequest() *RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	last := m.requests[len(m.requests)-1]
	return &last
}

// defaultHandler answers like Canvas does for an unknown resource.
func (m *MockCanvas) defaultHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, NewNotFoundResponse())
}

func writeResponse(w http.ResponseWriter, resp MockCanvasResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a JSON response with Canvas quota headers.
func NewJSONResponse(status int, body string) MockCanvasResponse {
	return MockCanvasResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":           "application/json; charset=utf-8",
			"X-Rate-Limit-Remaining": "700.0",
			"X-Request-Cost":         "0.5",
		},
	}
}

// NewTextResponse creates a plain-text response.
func NewTextResponse(status int, body string) MockCanvasResponse {
	return MockCanvasResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a Canvas 404 response.
func NewNotFoundResponse() MockCanvasResponse {
	return NewJSONResponse(http.StatusNotFound,
		`{"errors":[{"message":"The specified resource does not exist."}]}`)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockCanvasResponse {
	return NewJSONResponse(http.StatusInternalServerError, `{"message":"Internal server error"}`)
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockCanvasResponse {
	resp := NewTextResponse(http.StatusTooManyRequests, "429 Too Many Requests")
	resp.Headers["X-Rate-Limit-Remaining"] = "0.0"
	return resp
}
