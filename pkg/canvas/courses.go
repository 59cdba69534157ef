package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CourseParams are the writable course attributes.
type CourseParams struct {
	Name                             string `json:"name,omitempty"`
	CourseCode                       string `json:"course_code,omitempty"`
	StartAt                          string `json:"start_at,omitempty"`
	EndAt                            string `json:"end_at,omitempty"`
	License                          string `json:"license,omitempty"`
	IsPublic                         *bool  `json:"is_public,omitempty"`
	IsPublicToAuthUsers              *bool  `json:"is_public_to_auth_users,omitempty"`
	PublicSyllabus                   *bool  `json:"public_syllabus,omitempty"`
	PublicSyllabusToAuth             *bool  `json:"public_syllabus_to_auth,omitempty"`
	PublicDescription                string `json:"public_description,omitempty"`
	AllowStudentWikiEdits            *bool  `json:"allow_student_wiki_edits,omitempty"`
	AllowWikiComments                *bool  `json:"allow_wiki_comments,omitempty"`
	AllowStudentForumAttachments     *bool  `json:"allow_student_forum_attachments,omitempty"`
	OpenEnrollment                   *bool  `json:"open_enrollment,omitempty"`
	SelfEnrollment                   *bool  `json:"self_enrollment,omitempty"`
	RestrictEnrollmentsToCourseDates *bool  `json:"restrict_enrollments_to_course_dates,omitempty"`
	TermID                           int64  `json:"term_id,omitempty"`
	SISCourseID                      string `json:"sis_course_id,omitempty"`
	IntegrationID                    string `json:"integration_id,omitempty"`
	HideFinalGrades                  *bool  `json:"hide_final_grades,omitempty"`
	ApplyAssignmentGroupWeights      *bool  `json:"apply_assignment_group_weights,omitempty"`
	TimeZone                         string `json:"time_zone,omitempty"`
	SyllabusBody                     string `json:"syllabus_body,omitempty"`
	DefaultView                      string `json:"default_view,omitempty"`
}

// Course deletion events accepted by DeleteCourse.
const (
	CourseEventDelete   = "delete"
	CourseEventConclude = "conclude"
)

var courseIncludes = []string{"total_students", "teachers", "term", "course_progress"}

// ListCourses lists the caller's courses. Unless includeEnded is set only
// available and completed courses are returned.
func (s *Service) ListCourses(ctx context.Context, includeEnded bool) ([]Course, error) {
	q := include(courseIncludes...)
	if !includeEnded {
		q.Add("state[]", "available")
		q.Add("state[]", "completed")
	}
	return list[Course](ctx, s, "/courses", q)
}

// ListStudentCourses lists courses with an active enrollment.
func (s *Service) ListStudentCourses(ctx context.Context) ([]Course, error) {
	q := include("enrollments", "total_students", "term", "course_progress")
	q.Set("enrollment_state", "active")
	return list[Course](ctx, s, "/courses", q)
}

// GetCourse fetches a course with teachers, term, sections and syllabus.
func (s *Service) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	q := include(append(courseIncludes, "sections", "syllabus_body")...)
	return get[*Course](ctx, s, "/courses/"+itoa(courseID), q)
}

// CreateCourse creates a course in the given account.
func (s *Service) CreateCourse(ctx context.Context, accountID int64, params CourseParams) (*Course, error) {
	if err := requireID("account_id", accountID); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	path := fmt.Sprintf("/accounts/%d/courses", accountID)
	return send[*Course](ctx, s, http.MethodPost, path, map[string]any{"course": params})
}

// UpdateCourse updates course attributes. A non-empty event (offer, claim,
// conclude, delete, undelete) is applied as a state transition.
func (s *Service) UpdateCourse(ctx context.Context, courseID int64, params CourseParams, event string) (*Course, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	body := map[string]any{"course": params}
	if event != "" {
		body["event"] = event
	}
	return send[*Course](ctx, s, http.MethodPut, "/courses/"+itoa(courseID), body)
}

// DeleteCourse deletes or concludes a course. An empty event means delete.
func (s *Service) DeleteCourse(ctx context.Context, courseID int64, event string) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	if event == "" {
		event = CourseEventDelete
	}
	if event != CourseEventDelete && event != CourseEventConclude {
		return fmt.Errorf("%w: event must be %q or %q", ErrInvalidArgument, CourseEventDelete, CourseEventConclude)
	}
	return s.del(ctx, "/courses/"+itoa(courseID), url.Values{"event": {event}})
}

// GetSyllabus returns the syllabus body of a course.
func (s *Service) GetSyllabus(ctx context.Context, courseID int64) (*Syllabus, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	course, err := get[Course](ctx, s, "/courses/"+itoa(courseID), include("syllabus_body"))
	if err != nil {
		return nil, err
	}
	return &Syllabus{CourseID: courseID, SyllabusBody: course.SyllabusBody}, nil
}
