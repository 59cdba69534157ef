package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Enrollment defaults used by EnrollUser.
const (
	DefaultEnrollmentType  = "StudentEnrollment"
	DefaultEnrollmentState = "active"
)

// EnrollParams describe a new enrollment.
type EnrollParams struct {
	UserID          int64  `json:"user_id" validate:"required,gt=0"`
	Type            string `json:"type,omitempty" validate:"omitempty,oneof=StudentEnrollment TeacherEnrollment TaEnrollment ObserverEnrollment DesignerEnrollment"`
	EnrollmentState string `json:"enrollment_state,omitempty" validate:"omitempty,oneof=active invited inactive"`
}

// ProfileParams are the writable profile attributes of the caller.
type ProfileParams struct {
	Name         string `json:"name,omitempty"`
	ShortName    string `json:"short_name,omitempty"`
	SortableName string `json:"sortable_name,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Title        string `json:"title,omitempty"`
	TimeZone     string `json:"time_zone,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// ListCourseUsers lists the users of a course with email, enrollments and
// avatar.
func (s *Service) ListCourseUsers(ctx context.Context, courseID int64) ([]User, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	q := include("email", "enrollments", "avatar_url")
	return list[User](ctx, s, fmt.Sprintf("/courses/%d/users", courseID), q)
}

// ListEnrollments lists the enrollments of a course.
func (s *Service) ListEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Enrollment](ctx, s, fmt.Sprintf("/courses/%d/enrollments", courseID), nil)
}

// EnrollUser enrolls a user, as an active student unless params say
// otherwise.
func (s *Service) EnrollUser(ctx context.Context, courseID int64, params EnrollParams) (*Enrollment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if params.Type == "" {
		params.Type = DefaultEnrollmentType
	}
	if params.EnrollmentState == "" {
		params.EnrollmentState = DefaultEnrollmentState
	}
	path := fmt.Sprintf("/courses/%d/enrollments", courseID)
	return send[*Enrollment](ctx, s, http.MethodPost, path, map[string]any{"enrollment": params})
}

// UnenrollUser removes an enrollment from a course.
func (s *Service) UnenrollUser(ctx context.Context, courseID, enrollmentID int64) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	if err := requireID("enrollment_id", enrollmentID); err != nil {
		return err
	}
	return s.del(ctx, fmt.Sprintf("/courses/%d/enrollments/%d", courseID, enrollmentID), nil)
}

// GetCourseGrades lists the enrollments of a course with their grades.
func (s *Service) GetCourseGrades(ctx context.Context, courseID int64) ([]Enrollment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	q := include("grades", "observed_users")
	return list[Enrollment](ctx, s, fmt.Sprintf("/courses/%d/enrollments", courseID), q)
}

// GetUserGrades lists the caller's student enrollments with grades across
// all courses.
func (s *Service) GetUserGrades(ctx context.Context) ([]Enrollment, error) {
	q := url.Values{}
	q.Add("type[]", DefaultEnrollmentType)
	q.Add("include[]", "current_points")
	return list[Enrollment](ctx, s, "/users/self/enrollments", q)
}

// GetUserProfile fetches the caller's profile.
func (s *Service) GetUserProfile(ctx context.Context) (*Profile, error) {
	return get[*Profile](ctx, s, "/users/self/profile", nil)
}

// UpdateUserProfile updates the caller's profile.
func (s *Service) UpdateUserProfile(ctx context.Context, params ProfileParams) (*User, error) {
	return send[*User](ctx, s, http.MethodPut, "/users/self", map[string]any{"user": params})
}

// HealthCheck verifies the token by fetching the caller's profile. A
// failure is reported in the result, not as an error.
func (s *Service) HealthCheck(ctx context.Context) *Health {
	h := &Health{Timestamp: time.Now().UTC()}

	profile, err := s.GetUserProfile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Canvas health check failed")
		h.Status = "error"
		h.Error = err.Error()
		return h
	}

	h.Status = "ok"
	if profile != nil {
		h.User = &HealthUser{ID: profile.ID, Name: profile.Name}
	}
	return h
}
