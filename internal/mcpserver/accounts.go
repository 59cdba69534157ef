package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type accountIDArgs struct {
	AccountID int64 `json:"account_id" validate:"required"`
}

type tokenScopesArgs struct {
	AccountID int64  `json:"account_id" validate:"required"`
	GroupBy   string `json:"group_by" validate:"omitempty,oneof=resource_name"`
}

type accountCoursesArgs struct {
	AccountID       int64  `json:"account_id" validate:"required"`
	WithEnrollments *bool  `json:"with_enrollments"`
	Published       *bool  `json:"published"`
	Completed       *bool  `json:"completed"`
	SearchTerm      string `json:"search_term"`
	Sort            string `json:"sort" validate:"omitempty,oneof=course_name sis_course_id teacher account_name"`
	Order           string `json:"order" validate:"omitempty,oneof=asc desc"`
}

type accountUsersArgs struct {
	SessionID  string `json:"session_id"`
	AccountID  int64  `json:"account_id"`
	SearchTerm string `json:"search_term"`
	Sort       string `json:"sort" validate:"omitempty,oneof=username email sis_id last_login"`
	Order      string `json:"order" validate:"omitempty,oneof=asc desc"`
	Page       int    `json:"page" validate:"gte=0"`
	PerPage    int    `json:"per_page" validate:"gte=0"`
}

type createUserArgs struct {
	AccountID int64                  `json:"account_id" validate:"required"`
	User      canvas.UserParams      `json:"user" validate:"required"`
	Pseudonym canvas.PseudonymParams `json:"pseudonym" validate:"required"`
}

type createReportArgs struct {
	AccountID  int64          `json:"account_id" validate:"required"`
	Report     string         `json:"report" validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

type getReportArgs struct {
	AccountID int64  `json:"account_id" validate:"required"`
	Report    string `json:"report" validate:"required"`
	ReportID  int64  `json:"report_id" validate:"required"`
}

func (h *Handler) registerAccountTools(s *server.MCPServer) {
	register(h, s, mcp.NewTool("canvas_get_account",
		mcp.WithDescription("Get an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
	), func(ctx context.Context, a accountIDArgs) (any, error) {
		return h.svc.GetAccount(ctx, a.AccountID)
	})

	register(h, s, mcp.NewTool("canvas_list_sub_accounts",
		mcp.WithDescription("List the sub-accounts of an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
	), func(ctx context.Context, a accountIDArgs) (any, error) {
		return h.svc.ListSubAccounts(ctx, a.AccountID)
	})

	register(h, s, mcp.NewTool("canvas_list_token_scopes",
		mcp.WithDescription("List the API token scopes available on an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithString("group_by", mcp.Description("Group scopes"), mcp.Enum("resource_name")),
	), func(ctx context.Context, a tokenScopesArgs) (any, error) {
		return h.svc.ListTokenScopes(ctx, a.AccountID, a.GroupBy)
	})

	register(h, s, mcp.NewTool("canvas_list_account_courses",
		mcp.WithDescription("List the courses of an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithBoolean("with_enrollments", mcp.Description("Only courses with (or without) enrollments")),
		mcp.WithBoolean("published", mcp.Description("Only published (or unpublished) courses")),
		mcp.WithBoolean("completed", mcp.Description("Only completed (or active) courses")),
		mcp.WithString("search_term", mcp.Description("Course name or code filter")),
		mcp.WithString("sort", mcp.Description("Sort column"),
			mcp.Enum("course_name", "sis_course_id", "teacher", "account_name")),
		mcp.WithString("order", mcp.Description("Sort order"), mcp.Enum("asc", "desc")),
	), func(ctx context.Context, a accountCoursesArgs) (any, error) {
		return h.svc.ListAccountCourses(ctx, a.AccountID, canvas.AccountCoursesOptions{
			WithEnrollments: a.WithEnrollments,
			Published:       a.Published,
			Completed:       a.Completed,
			SearchTerm:      a.SearchTerm,
			Sort:            a.Sort,
			Order:           a.Order,
		})
	})

	register(h, s, mcp.NewTool("canvas_list_account_users",
		mcp.WithDescription("Search the users of an account page by page. A new search needs account_id "+
			"and returns a session_id; pass session_id and page to move through the results"),
		mcp.WithString("session_id", mcp.Description("Session from a previous search")),
		mcp.WithNumber("account_id", mcp.Description("Account ID (required for new searches)")),
		mcp.WithString("search_term", mcp.Description("Name, login or email filter")),
		mcp.WithString("sort", mcp.Description("Sort column"), mcp.Enum("username", "email", "sis_id", "last_login")),
		mcp.WithString("order", mcp.Description("Sort order"), mcp.Enum("asc", "desc")),
		mcp.WithNumber("page", mcp.Description("Page number (default 1, or the session's current page)")),
		mcp.WithNumber("per_page", mcp.Description("Users per page (max 20)")),
	), h.listAccountUsers)

	register(h, s, mcp.NewTool("canvas_create_user",
		mcp.WithDescription("Create a user with a login in an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithObject("user", mcp.Required(), mcp.Description("User attributes: name, short_name, sortable_name, time_zone, locale")),
		mcp.WithObject("pseudonym", mcp.Required(), mcp.Description("Login: unique_id, password, sis_user_id, send_confirmation")),
	), func(ctx context.Context, a createUserArgs) (any, error) {
		return h.svc.CreateUser(ctx, a.AccountID, canvas.CreateUserParams{User: a.User, Pseudonym: a.Pseudonym})
	})

	register(h, s, mcp.NewTool("canvas_get_account_reports",
		mcp.WithDescription("List the reports available on an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
	), func(ctx context.Context, a accountIDArgs) (any, error) {
		return h.svc.ListAccountReports(ctx, a.AccountID)
	})

	register(h, s, mcp.NewTool("canvas_create_account_report",
		mcp.WithDescription("Start an account report"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithString("report", mcp.Required(), mcp.Description("Report type, e.g. grade_export_csv")),
		mcp.WithObject("parameters", mcp.Description("Report parameters")),
	), func(ctx context.Context, a createReportArgs) (any, error) {
		return h.svc.CreateAccountReport(ctx, a.AccountID, a.Report, a.Parameters)
	})

	register(h, s, mcp.NewTool("canvas_get_account_report",
		mcp.WithDescription("Get the status of an account report run"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithString("report", mcp.Required(), mcp.Description("Report type")),
		mcp.WithNumber("report_id", mcp.Required(), mcp.Description("Report run ID")),
	), func(ctx context.Context, a getReportArgs) (any, error) {
		return h.svc.GetAccountReport(ctx, a.AccountID, a.Report, a.ReportID)
	})
}

// listAccountUsers serves one page of a paged user search. A call without
// session_id starts a new search; a call with one continues it.
func (h *Handler) listAccountUsers(ctx context.Context, a accountUsersArgs) (any, error) {
	var sess *session.Session
	if a.SessionID != "" {
		var err error
		sess, err = h.sessions.Get(ctx, a.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return nil, fmt.Errorf("Session %s not found or expired. Please start a new search.", a.SessionID)
			}
			return nil, err
		}
		if a.Page > 0 {
			sess.CurrentPage = a.Page
		}
	} else {
		if a.AccountID <= 0 {
			return nil, errors.New("Missing required field: account_id (required for new sessions)")
		}
		perPage := a.PerPage
		if perPage <= 0 || perPage > canvas.MaxAccountUsersPerPage {
			perPage = canvas.MaxAccountUsersPerPage
		}
		sess = &session.Session{
			AccountID:   a.AccountID,
			SearchTerm:  a.SearchTerm,
			Sort:        a.Sort,
			Order:       a.Order,
			PerPage:     perPage,
			CurrentPage: max(a.Page, 1),
		}
		if err := h.sessions.Create(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	logger := h.logger.With().Str("session_id", sess.ID).Int("page", sess.CurrentPage).Logger()
	logger.Debug().Int64("account_id", sess.AccountID).Msg("Listing account users")

	result, err := h.svc.ListAccountUsers(ctx, sess.AccountID, canvas.AccountUsersOptions{
		SearchTerm: sess.SearchTerm,
		Sort:       sess.Sort,
		Order:      sess.Order,
		Page:       sess.CurrentPage,
		PerPage:    sess.PerPage,
	})
	if err != nil {
		return nil, err
	}

	if result.Pagination.TotalPages > 0 {
		sess.TotalPages = result.Pagination.TotalPages
	}
	if err := h.sessions.Update(ctx, sess); err != nil {
		// The page is already fetched; a lost session only affects follow-ups.
		logger.Warn().Err(err).Msg("Failed to update session")
	}

	return formatUserPage(sess.ID, result, h.sessionTTL)
}

func formatUserPage(sessionID string, page *canvas.AccountUsersPage, ttl time.Duration) (string, error) {
	users, err := json.MarshalIndent(page.Users, "", "  ")
	if err != nil {
		return "", err
	}
	p := page.Pagination

	var b strings.Builder
	fmt.Fprintf(&b, "Users (Page %d):\n\n", p.CurrentPage)
	b.Write(users)
	b.WriteString("\n\n=== Session & Pagination Info ===\n")
	fmt.Fprintf(&b, "Session ID: %s\n", sessionID)
	fmt.Fprintf(&b, "Current page: %d\n", p.CurrentPage)
	if p.TotalPages > 0 {
		fmt.Fprintf(&b, "Total pages: %d\n", p.TotalPages)
	}
	if p.PrevPage > 0 {
		fmt.Fprintf(&b, "Previous page: Use {\"session_id\": %q, \"page\": %d}\n", sessionID, p.PrevPage)
	}
	if p.NextPage > 0 {
		fmt.Fprintf(&b, "Next page: Use {\"session_id\": %q, \"page\": %d}\n", sessionID, p.NextPage)
	}
	b.WriteString("\nSession Usage:\n")
	fmt.Fprintf(&b, "- Continue browsing: Use session_id %q with different page numbers\n", sessionID)
	b.WriteString("- New search: Omit session_id and provide account_id with new parameters\n")
	fmt.Fprintf(&b, "- Sessions expire after %s of inactivity", humanDuration(ttl))
	return b.String(), nil
}

// humanDuration renders whole minutes and hours the way users write them.
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
