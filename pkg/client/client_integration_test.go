//go:build integration

package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCanvas()
	defer mock.Close()

	mock.SetPaginated("/courses",
		[]any{map[string]any{"id": 1, "name": "Biology"}},
		[]any{map[string]any{"id": 2, "name": "Chemistry"}},
	)
	mock.SetSequence("/courses/1",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(http.StatusOK, `{"id":1,"name":"Biology"}`),
	)

	tracker := ratelimit.NewTracker(redisClient, zerolog.Nop())
	c := newTestClient(t, mock, WithRateLimitTracker(tracker))
	ctx := context.Background()

	resp, err := c.Get(ctx, "/courses", nil)
	if err != nil {
		t.Fatalf("Get(/courses) error = %v", err)
	}
	if resp.Pages != 2 {
		t.Errorf("Pages = %d, want 2", resp.Pages)
	}

	if _, err := c.Get(ctx, "/courses/1", nil); err != nil {
		t.Fatalf("Get(/courses/1) error = %v", err)
	}

	remaining, err := redisClient.Get(ctx, ratelimit.RedisKeyRemaining).Float64()
	if err != nil {
		t.Fatalf("redis Get(%s) error = %v", ratelimit.RedisKeyRemaining, err)
	}
	if remaining != 700 {
		t.Errorf("shared remaining quota = %v, want 700", remaining)
	}
}

func TestIntegration_QuotaSharedBetweenClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockCanvas()
	defer mock.Close()

	resp := testutil.NewJSONResponse(http.StatusOK, `{"id":1}`)
	resp.Headers["X-Rate-Limit-Remaining"] = "42"
	mock.SetResponse("/users/self", resp)

	first := newTestClient(t, mock, WithRateLimitTracker(ratelimit.NewTracker(redisClient, zerolog.Nop())))
	observer := ratelimit.NewTracker(redisClient, zerolog.Nop())
	ctx := context.Background()

	if _, err := first.Get(ctx, "/users/self", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	state, err := observer.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != 42 {
		t.Errorf("Remaining = %v, want 42", state.Remaining)
	}
	if !state.IsCritical() {
		t.Error("expected critical quota state")
	}
}
