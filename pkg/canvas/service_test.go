package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/rs/zerolog"
)

// newTestService creates a service pointed at mock without retries.
func newTestService(t *testing.T, mock *testutil.MockCanvas) *Service {
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

	return NewService(c, zerolog.Nop())
}

func lastQuery(t *testing.T, mock *testutil.MockCanvas) url.Values {
	t.Helper()
	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	q, err := url.ParseQuery(req.Query)
	if err != nil {
		t.Fatalf("ParseQuery(%q) error = %v", req.Query, err)
	}
	return q
}

func lastBody(t *testing.T, mock *testutil.MockCanvas) map[string]any {
	t.Helper()
	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body %q is not a JSON object: %v", req.Body, err)
	}
	return body
}

func TestInvalidArguments_NoRequestSent(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)
	ctx := context.Background()

	calls := map[string]func() error{
		"GetCourse":        func() error { _, err := s.GetCourse(ctx, 0); return err },
		"CreateCourse":     func() error { _, err := s.CreateCourse(ctx, 1, CourseParams{}); return err },
		"DeleteCourse":     func() error { return s.DeleteCourse(ctx, 1, "archive") },
		"GetAssignment":    func() error { _, err := s.GetAssignment(ctx, 1, -1, false); return err },
		"SubmitGrade":      func() error { _, err := s.SubmitGrade(ctx, 1, 2, 3, " ", ""); return err },
		"GetPage":          func() error { _, err := s.GetPage(ctx, 1, ""); return err },
		"PostToDiscussion": func() error { _, err := s.PostToDiscussion(ctx, 1, 2, ""); return err },
		"CreateConversation": func() error {
			_, err := s.CreateConversation(ctx, nil, "hi", "")
			return err
		},
		"EnrollUser": func() error { _, err := s.EnrollUser(ctx, 1, EnrollParams{}); return err },
		"SubmitAssignment": func() error {
			_, err := s.SubmitAssignment(ctx, 1, 2, SubmissionParams{SubmissionType: "on_paper"})
			return err
		},
		"CreateUser": func() error {
			_, err := s.CreateUser(ctx, 1, CreateUserParams{User: UserParams{Name: "A"}})
			return err
		},
		"UploadFile": func() error { _, err := s.UploadFile(ctx, UploadParams{Name: "a.txt"}); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("requests sent = %d, want 0", got)
	}
}

func TestCanvasErrorsPropagate(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("/courses/9", testutil.NewJSONResponse(http.StatusNotFound,
		`{"errors":[{"message":"The specified resource does not exist."}]}`))

	_, err := s.GetCourse(context.Background(), 9)
	if !client.IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}

	var ce *client.CanvasError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not a *client.CanvasError", err)
	}
	if ce.Message != "The specified resource does not exist." {
		t.Errorf("Message = %q", ce.Message)
	}
}

func TestList_EmptyBodyIsEmptySlice(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("/conversations", testutil.NewJSONResponse(http.StatusOK, `[]`))

	convs, err := s.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if convs == nil || len(convs) != 0 {
		t.Errorf("ListConversations() = %#v, want empty non-nil slice", convs)
	}
}

func TestID_JSON(t *testing.T) {
	var ev struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"assignment_7","c":null}`), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ev.A != "42" || ev.B != "assignment_7" || ev.C != "" {
		t.Errorf("decoded = %+v", ev)
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"a":42,"b":"assignment_7","c":""}` {
		t.Errorf("Marshal() = %s", out)
	}
}
