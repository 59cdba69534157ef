package mcpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionIDPattern = regexp.MustCompile(`Session ID: (sess_\S+)`)

// serveUsers answers the account user search with three linked pages.
func serveUsers(mock *testutil.MockCanvas) {
	mock.SetHandler("/accounts/1/users", func(w http.ResponseWriter, r *http.Request) {
		base := mock.BaseURL() + "/accounts/1/users"
		page := r.URL.Query().Get("page")
		links := fmt.Sprintf(`<%s?page=3&per_page=20>; rel="last"`, base)
		switch page {
		case "1":
			links += fmt.Sprintf(`, <%s?page=2&per_page=20>; rel="next"`, base)
		case "2":
			links += fmt.Sprintf(`, <%s?page=1&per_page=20>; rel="prev", <%s?page=3&per_page=20>; rel="next"`, base, base)
		case "3":
			links += fmt.Sprintf(`, <%s?page=2&per_page=20>; rel="prev"`, base)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Link", links)
		fmt.Fprintf(w, `[{"id":%s,"name":"User on page %s"}]`, page, page)
	})
}

func lastQuery(t *testing.T, mock *testutil.MockCanvas) url.Values {
	t.Helper()
	last := mock.LastRequest()
	require.NotNil(t, last)
	q, err := url.ParseQuery(last.Query)
	require.NoError(t, err)
	return q
}

func TestListAccountUsers_NewSessionAndFollowUp(t *testing.T) {
	mock, h := newTestHandler(t)
	serveUsers(mock)

	res := callTool(t, h, "canvas_list_account_users", map[string]any{
		"account_id":  1,
		"search_term": "ada",
		"sort":        "email",
		"per_page":    100,
	})
	require.False(t, res.IsError, resultText(t, res))
	text := resultText(t, res)

	assert.Contains(t, text, "Users (Page 1):")
	assert.Contains(t, text, "User on page 1")
	assert.Contains(t, text, "Total pages: 3")
	assert.NotContains(t, text, "Previous page:")
	assert.Contains(t, text, "- Sessions expire after 30 minutes of inactivity")

	m := sessionIDPattern.FindStringSubmatch(text)
	require.Len(t, m, 2, text)
	id := m[1]
	assert.Contains(t, text, fmt.Sprintf(`Next page: Use {"session_id": %q, "page": 2}`, id))

	q := lastQuery(t, mock)
	assert.Equal(t, "20", q.Get("per_page"))
	assert.Equal(t, "1", q.Get("page"))

	res = callTool(t, h, "canvas_list_account_users", map[string]any{"session_id": id, "page": 2})
	require.False(t, res.IsError, resultText(t, res))
	text = resultText(t, res)
	assert.Contains(t, text, "Users (Page 2):")
	assert.Contains(t, text, fmt.Sprintf(`Previous page: Use {"session_id": %q, "page": 1}`, id))
	assert.Contains(t, text, fmt.Sprintf(`Next page: Use {"session_id": %q, "page": 3}`, id))

	q = lastQuery(t, mock)
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "ada", q.Get("search_term"))
	assert.Equal(t, "email", q.Get("sort"))

	// Without page the session stays on its current page.
	res = callTool(t, h, "canvas_list_account_users", map[string]any{"session_id": id})
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), "Users (Page 2):")
}

func TestListAccountUsers_UnknownSession(t *testing.T) {
	mock, h := newTestHandler(t)

	res := callTool(t, h, "canvas_list_account_users", map[string]any{"session_id": "sess_missing", "page": 2})
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Session sess_missing not found or expired. Please start a new search.", resultText(t, res))
	assert.Zero(t, mock.GetRequestCount())
}

func TestListAccountUsers_NeedsAccountForNewSession(t *testing.T) {
	mock, h := newTestHandler(t)

	res := callTool(t, h, "canvas_list_account_users", map[string]any{"search_term": "ada"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Missing required field: account_id (required for new sessions)", resultText(t, res))
	assert.Zero(t, mock.GetRequestCount())
}

func TestListAccountUsers_InvalidSort(t *testing.T) {
	_, h := newTestHandler(t)

	res := callTool(t, h, "canvas_list_account_users", map[string]any{"account_id": 1, "sort": "age"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Invalid value for sort")
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Minute, "30 minutes"},
		{time.Minute, "1 minute"},
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Minute, "90 minutes"},
		{45 * time.Second, "45s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanDuration(tt.d))
		})
	}
}
