package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/config"
	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/session"
	"github.com/rs/zerolog"
)

func newTestService(t *testing.T, mock *testutil.MockCanvas) *canvas.Service {
	t.Helper()
	c, err := client.New("test-token", "canvas.example.edu",
		client.WithBaseURL(mock.BaseURL()),
		client.WithLogger(zerolog.Nop()),
		client.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return canvas.NewService(c, zerolog.Nop())
}

func TestUseStdio(t *testing.T) {
	tests := []struct {
		mode   string
		piped  bool
		expect bool
	}{
		{config.TransportStdio, false, true},
		{config.TransportHTTP, true, false},
		{config.TransportAuto, true, true},
		{config.TransportAuto, false, false},
		{"", true, true},
	}
	for _, tt := range tests {
		if got := useStdio(tt.mode, tt.piped); got != tt.expect {
			t.Errorf("useStdio(%q, %v) = %v, want %v", tt.mode, tt.piped, got, tt.expect)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	handler := healthHandler(newTestService(t, mock))

	t.Run("ok", func(t *testing.T) {
		mock.SetJSON("/users/self/profile", map[string]any{"id": 7, "name": "Ada"})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/health", nil))

		resp := w.Result()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
		var health canvas.Health
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("decode health: %v", err)
		}
		if health.Status != "ok" || health.User == nil || health.User.Name != "Ada" {
			t.Errorf("health = %+v", health)
		}
	})

	t.Run("canvas_unreachable", func(t *testing.T) {
		mock.SetResponse("/users/self/profile", testutil.NewJSONResponse(http.StatusUnauthorized,
			`{"errors":[{"message":"Invalid access token."}]}`))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/health", nil))

		resp := w.Result()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "Invalid access token.") {
			t.Errorf("body = %s", body)
		}
	})
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	w := httptest.NewRecorder()
	readyHandler(nil)(w, httptest.NewRequest("GET", "/ready", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mux := newMux(http.NotFoundHandler(), newTestService(t, mock), nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	// Plain gauges are exported before any observation.
	if !strings.Contains(bodyStr, "canvas_sessions_active") {
		t.Error("Expected metrics output to contain canvas_sessions_active")
	}
}

func TestConnectRedis_Disabled(t *testing.T) {
	c, err := connectRedis(context.Background(), "")
	if err != nil || c != nil {
		t.Errorf("connectRedis(\"\") = %v, %v; want nil, nil", c, err)
	}
}

func TestConnectRedis_BadURL(t *testing.T) {
	if _, err := connectRedis(context.Background(), "not a url"); err == nil {
		t.Error("Expected error for malformed REDIS_URL")
	}
}

func TestNewSessionStore_Memory(t *testing.T) {
	store := newSessionStore(nil, time.Minute)
	defer store.Close()
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Errorf("store = %T, want *session.MemoryStore", store)
	}
}
