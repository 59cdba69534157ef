package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		err      error
		expected ErrorClass
	}{
		{name: "network failure", err: errors.New("connection refused"), expected: ErrorClassNetwork},
		{name: "200", resp: &Response{StatusCode: 200}, expected: ""},
		{name: "204", resp: &Response{StatusCode: 204}, expected: ""},
		{name: "400", resp: &Response{StatusCode: 400}, expected: ErrorClassClient},
		{name: "401", resp: &Response{StatusCode: 401}, expected: ErrorClassClient},
		{name: "404", resp: &Response{StatusCode: 404}, expected: ErrorClassClient},
		{name: "429", resp: &Response{StatusCode: 429}, expected: ErrorClassRateLimit},
		{name: "500", resp: &Response{StatusCode: 500}, expected: ErrorClassServer},
		{name: "503", resp: &Response{StatusCode: 503}, expected: ErrorClassServer},
		{name: "599", resp: &Response{StatusCode: 599}, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.resp, tt.err); got != tt.expected {
				t.Errorf("classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEvaluateRetry(t *testing.T) {
	tests := []struct {
		name          string
		class         ErrorClass
		retries       int
		maxRetries    int
		wantRetry     bool
		wantExhausted bool
	}{
		{name: "first server failure", class: ErrorClassServer, retries: 0, maxRetries: 3, wantRetry: true},
		{name: "last allowed retry", class: ErrorClassNetwork, retries: 2, maxRetries: 3, wantRetry: true},
		{name: "ceiling reached", class: ErrorClassServer, retries: 3, maxRetries: 3, wantExhausted: true},
		{name: "retries disabled", class: ErrorClassRateLimit, retries: 0, maxRetries: 0, wantExhausted: true},
		{name: "client error is fatal", class: ErrorClassClient, retries: 0, maxRetries: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateRetry(tt.class, tt.retries, tt.maxRetries)
			if got.retry != tt.wantRetry {
				t.Errorf("retry = %v, want %v", got.retry, tt.wantRetry)
			}
			if got.exhausted != tt.wantExhausted {
				t.Errorf("exhausted = %v, want %v", got.exhausted, tt.wantExhausted)
			}
		})
	}
}

func TestRequestState_NextDelay(t *testing.T) {
	state := newRequestState(time.Second)

	expected := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, want := range expected {
		got := state.nextDelay()
		if got != want {
			t.Errorf("delay %d = %v, want %v", i+1, got, want)
		}
		if state.retries != i+1 {
			t.Errorf("retries = %d, want %d", state.retries, i+1)
		}
	}
}

func TestRequestState_ZeroDelay(t *testing.T) {
	state := newRequestState(0)
	for i := 0; i < 3; i++ {
		if got := state.nextDelay(); got != 0 {
			t.Errorf("delay %d = %v, want 0", i+1, got)
		}
	}
}

func TestRetryCount_OutsideRequest(t *testing.T) {
	if got := RetryCount(context.Background()); got != 0 {
		t.Errorf("RetryCount() = %d, want 0", got)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Hour)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("sleepContext() error = %v, want ErrContextCancelled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext() did not return promptly on cancelled context")
	}

	if err := sleepContext(ctx, 0); !errors.Is(err, ErrContextCancelled) {
		t.Errorf("sleepContext(0) error = %v, want ErrContextCancelled", err)
	}
}

func TestDo_RetryOnServerError(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	mock.SetSequence("/courses/1",
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(http.StatusOK, `{"id":1}`),
	)

	recorder := &sleepRecorder{}
	c := newTestClient(t, mock,
		WithMaxRetries(3),
		WithRetryDelay(100*time.Millisecond),
		withSleeper(recorder.sleep),
	)

	resp, err := c.Get(context.Background(), "/courses/1", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	if got := mock.GetPathCount("/courses/1"); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	got := recorder.recorded()
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponse("/courses/1", testutil.NewJSONResponse(http.StatusServiceUnavailable, `{"message":"down for maintenance"}`))

	recorder := &sleepRecorder{}
	c := newTestClient(t, mock, WithMaxRetries(2), withSleeper(recorder.sleep))

	_, err := c.Get(context.Background(), "/courses/1", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var ce *CanvasError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *CanvasError, got %T", err)
	}
	if ce.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", ce.StatusCode)
	}
	if ce.Message != "down for maintenance" {
		t.Errorf("Message = %q, want %q", ce.Message, "down for maintenance")
	}
	if got := mock.GetPathCount("/courses/1"); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if got := len(recorder.recorded()); got != 2 {
		t.Errorf("sleeps = %d, want 2", got)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 422} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			mock := testutil.NewMockCanvas()
			defer mock.Close()
			mock.SetResponse("/courses/1", testutil.NewJSONResponse(status, `{"errors":[{"message":"nope"}]}`))

			recorder := &sleepRecorder{}
			c := newTestClient(t, mock, withSleeper(recorder.sleep))

			_, err := c.Get(context.Background(), "/courses/1", nil)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if got := StatusCode(err); got != status {
				t.Errorf("StatusCode() = %d, want %d", got, status)
			}
			if got := mock.GetPathCount("/courses/1"); got != 1 {
				t.Errorf("attempts = %d, want 1", got)
			}
			if got := len(recorder.recorded()); got != 0 {
				t.Errorf("sleeps = %d, want 0", got)
			}
		})
	}
}

func TestDo_RetryOnRateLimit(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetSequence("/users/self",
		testutil.NewRateLimitResponse(),
		testutil.NewJSONResponse(http.StatusOK, `{"id":5}`),
	)

	recorder := &sleepRecorder{}
	c := newTestClient(t, mock, withSleeper(recorder.sleep))

	if _, err := c.Get(context.Background(), "/users/self", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := mock.GetPathCount("/users/self"); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != DefaultRetryDelay {
		t.Errorf("delays = %v, want [%v]", got, DefaultRetryDelay)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api/v1"
	server.Close()

	recorder := &sleepRecorder{}
	c, err := New("test-token", "canvas.example.edu",
		WithBaseURL(baseURL),
		WithMaxRetries(1),
		withSleeper(recorder.sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/courses", nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsNetwork(err) {
		t.Errorf("IsNetwork() = false for %v", err)
	}
	if got := StatusCode(err); got != 0 {
		t.Errorf("StatusCode() = %d, want 0", got)
	}
	if got := len(recorder.recorded()); got != 1 {
		t.Errorf("sleeps = %d, want 1", got)
	}
}

func TestDo_RetryReplaysBody(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetSequence("POST /courses/1/assignments",
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(http.StatusOK, `{"id":9}`),
	)

	c := newTestClient(t, mock)
	body := map[string]any{"assignment": map[string]any{"name": "Essay"}}
	if _, err := c.Post(context.Background(), "/courses/1/assignments", body); err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	requests := mock.Requests()
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	if string(requests[0].Body) != string(requests[1].Body) {
		t.Errorf("retried body %s differs from original %s", requests[1].Body, requests[0].Body)
	}
}

func TestDo_ConcurrentRetriesIndependent(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	const workers = 10
	for i := 0; i < workers; i++ {
		mock.SetSequence(fmt.Sprintf("/courses/%d", i),
			testutil.NewServerErrorResponse(),
			testutil.NewServerErrorResponse(),
			testutil.NewJSONResponse(http.StatusOK, fmt.Sprintf(`{"id":%d}`, i)),
		)
	}

	base := 10 * time.Millisecond
	var (
		mu         sync.Mutex
		mismatches []string
		delays     []time.Duration
	)
	sleeper := func(ctx context.Context, d time.Duration) error {
		retries := RetryCount(ctx)
		want := base << (retries - 1)
		mu.Lock()
		delays = append(delays, d)
		if d != want {
			mismatches = append(mismatches, fmt.Sprintf("retry %d slept %v, want %v", retries, d, want))
		}
		mu.Unlock()
		return nil
	}

	c := newTestClient(t, mock, WithRetryDelay(base), withSleeper(sleeper))

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := c.Get(context.Background(), fmt.Sprintf("/courses/%d", id), nil); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Get() error = %v", err)
	}
	for _, m := range mismatches {
		t.Error(m)
	}

	counts := map[time.Duration]int{}
	for _, d := range delays {
		counts[d]++
	}
	if counts[base] != workers || counts[2*base] != workers || len(counts) != 2 {
		t.Errorf("delay distribution = %v, want %d × %v and %d × %v", counts, workers, base, workers, 2*base)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetResponse("/courses", testutil.NewServerErrorResponse())

	ctx, cancel := context.WithCancel(context.Background())
	sleeper := func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	c := newTestClient(t, mock, withSleeper(sleeper))
	_, err := c.Get(ctx, "/courses", nil)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if got := mock.GetPathCount("/courses"); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestDo_PageRetriedIndependently(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	var (
		mu        sync.Mutex
		page2Hits int
	)
	mock.SetHandler("/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "2" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/users?page=2>; rel="next"`, mock.BaseURL()))
			w.Write([]byte(`[{"id":1}]`))
			return
		}

		mu.Lock()
		page2Hits++
		hit := page2Hits
		mu.Unlock()
		if hit == 1 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"bad gateway"}`))
			return
		}
		w.Write([]byte(`[{"id":2}]`))
	})

	recorder := &sleepRecorder{}
	c := newTestClient(t, mock, withSleeper(recorder.sleep))

	resp, err := c.Get(context.Background(), "/users", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != `[{"id":1},{"id":2}]` {
		t.Errorf("Body = %s, want [{\"id\":1},{\"id\":2}]", resp.Body)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != DefaultRetryDelay {
		t.Errorf("delays = %v, want [%v]", got, DefaultRetryDelay)
	}
}
