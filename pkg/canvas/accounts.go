package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/pagination"
)

// MaxAccountUsersPerPage caps the page size of ListAccountUsers.
const MaxAccountUsersPerPage = 20

// AccountCoursesOptions filter ListAccountCourses.
type AccountCoursesOptions struct {
	WithEnrollments *bool
	Published       *bool
	Completed       *bool
	SearchTerm      string
	Sort            string `validate:"omitempty,oneof=course_name sis_course_id teacher account_name"`
	Order           string `validate:"omitempty,oneof=asc desc"`
}

// AccountUsersOptions select one page of account users.
type AccountUsersOptions struct {
	SearchTerm string
	Sort       string `validate:"omitempty,oneof=username email sis_id last_login"`
	Order      string `validate:"omitempty,oneof=asc desc"`
	Page       int
	PerPage    int
}

// UserParams are the user attributes of CreateUser.
type UserParams struct {
	Name         string `json:"name" validate:"required"`
	ShortName    string `json:"short_name,omitempty"`
	SortableName string `json:"sortable_name,omitempty"`
	TimeZone     string `json:"time_zone,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// PseudonymParams are the login attributes of CreateUser.
type PseudonymParams struct {
	UniqueID         string `json:"unique_id" validate:"required"`
	Password         string `json:"password,omitempty"`
	SISUserID        string `json:"sis_user_id,omitempty"`
	SendConfirmation bool   `json:"send_confirmation,omitempty"`
}

// CreateUserParams combine the user and login of a new account user.
type CreateUserParams struct {
	User      UserParams      `json:"user"`
	Pseudonym PseudonymParams `json:"pseudonym"`
}

// GetAccount fetches an account.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*Account, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return get[*Account](ctx, s, "/accounts/"+itoa(accountID), nil)
}

// ListSubAccounts lists the direct sub-accounts of an account.
func (s *Service) ListSubAccounts(ctx context.Context, accountID int64) ([]Account, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return list[Account](ctx, s, fmt.Sprintf("/accounts/%d/sub_accounts", accountID), nil)
}

// ListTokenScopes lists the API scopes available to an account, optionally
// grouped by "resource_name".
func (s *Service) ListTokenScopes(ctx context.Context, accountID int64, groupBy string) ([]Scope, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	var q url.Values
	if groupBy != "" {
		q = url.Values{"group_by": {groupBy}}
	}
	return list[Scope](ctx, s, fmt.Sprintf("/accounts/%d/scopes", accountID), q)
}

// ListAccountCourses lists the courses of an account.
func (s *Service) ListAccountCourses(ctx context.Context, accountID int64, opts AccountCoursesOptions) ([]Course, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	q := url.Values{}
	setBool(q, "with_enrollments", opts.WithEnrollments)
	setBool(q, "published", opts.Published)
	setBool(q, "completed", opts.Completed)
	setString(q, "search_term", opts.SearchTerm)
	setString(q, "sort", opts.Sort)
	setString(q, "order", opts.Order)
	return list[Course](ctx, s, fmt.Sprintf("/accounts/%d/courses", accountID), q)
}

// ListAccountUsers returns a single page of account users together with
// the page numbers advertised by the Link header. It never walks the
// remaining pages.
func (s *Service) ListAccountUsers(ctx context.Context, accountID int64, opts AccountUsersOptions) (*AccountUsersPage, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxAccountUsersPerPage {
		perPage = MaxAccountUsersPerPage
	}

	q := url.Values{}
	setString(q, "search_term", opts.SearchTerm)
	setString(q, "sort", opts.Sort)
	setString(q, "order", opts.Order)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	resp, err := s.client.Do(ctx, &client.Request{
		Method:     http.MethodGet,
		Path:       fmt.Sprintf("/accounts/%d/users", accountID),
		Query:      q,
		SinglePage: true,
	})
	if err != nil {
		return nil, err
	}

	var users []User
	if err := resp.Decode(&users); err != nil {
		return nil, fmt.Errorf("decode account users: %w", err)
	}
	if users == nil {
		users = []User{}
	}

	info := PageInfo{CurrentPage: page}
	links := pagination.ParseLinks(resp.Header.Get("Link"))
	info.NextPage = pageNumber(links["next"])
	info.PrevPage = pageNumber(links["prev"])
	info.TotalPages = pageNumber(links["last"])

	return &AccountUsersPage{Users: users, Pagination: info}, nil
}

// pageNumber extracts the page query parameter of a Link target.
func pageNumber(link string) int {
	if link == "" {
		return 0
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// CreateUser creates a user with a login in an account.
func (s *Service) CreateUser(ctx context.Context, accountID int64, params CreateUserParams) (*User, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return send[*User](ctx, s, http.MethodPost, fmt.Sprintf("/accounts/%d/users", accountID), params)
}

// ListAccountReports lists the report types available on an account.
func (s *Service) ListAccountReports(ctx context.Context, accountID int64) ([]ReportDescription, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	return list[ReportDescription](ctx, s, fmt.Sprintf("/accounts/%d/reports", accountID), nil)
}

// CreateAccountReport starts a report run.
func (s *Service) CreateAccountReport(ctx context.Context, accountID int64, report string, parameters map[string]any) (*Report, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if report == "" {
		return nil, fmt.Errorf("%w: report is required", ErrInvalidArgument)
	}
	if parameters == nil {
		parameters = map[string]any{}
	}
	path := fmt.Sprintf("/accounts/%d/reports/%s", accountID, url.PathEscape(report))
	return send[*Report](ctx, s, http.MethodPost, path, map[string]any{"parameters": parameters})
}

// GetAccountReport fetches the status of a report run.
func (s *Service) GetAccountReport(ctx context.Context, accountID int64, reportType string, reportID int64) (*Report, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if reportType == "" {
		return nil, fmt.Errorf("%w: report_type is required", ErrInvalidArgument)
	}
	if err := requireID("report_id", reportID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/accounts/%d/reports/%s/%d", accountID, url.PathEscape(reportType), reportID)
	return get[*Report](ctx, s, path, nil)
}
