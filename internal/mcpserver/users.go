package mcpserver

import (
	"context"
	"fmt"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type enrollArgs struct {
	CourseID        int64  `json:"course_id" validate:"required"`
	UserID          int64  `json:"user_id" validate:"required"`
	Role            string `json:"role" validate:"omitempty,oneof=StudentEnrollment TeacherEnrollment TaEnrollment ObserverEnrollment DesignerEnrollment"`
	EnrollmentState string `json:"enrollment_state" validate:"omitempty,oneof=active invited inactive"`
}

type unenrollArgs struct {
	CourseID     int64 `json:"course_id" validate:"required"`
	EnrollmentID int64 `json:"enrollment_id" validate:"required"`
}

func (h *Handler) registerUserTools(s *server.MCPServer) {
	register(h, s, mcp.NewTool("canvas_health_check",
		mcp.WithDescription("Check connectivity and authentication against Canvas"),
		mcp.WithReadOnlyHintAnnotation(true),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.HealthCheck(ctx), nil
	})

	register(h, s, mcp.NewTool("canvas_get_user_profile",
		mcp.WithDescription("Get the current user's profile"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.GetUserProfile(ctx)
	})

	register(h, s, mcp.NewTool("canvas_update_user_profile",
		mcp.WithDescription("Update the current user's profile"),
		mcp.WithString("name", mcp.Description("Full name")),
		mcp.WithString("short_name", mcp.Description("Display name")),
		mcp.WithString("sortable_name", mcp.Description("Sortable name")),
		mcp.WithString("bio", mcp.Description("Biography")),
		mcp.WithString("title", mcp.Description("Title")),
		mcp.WithString("time_zone", mcp.Description("IANA time zone")),
		mcp.WithString("locale", mcp.Description("Locale")),
	), func(ctx context.Context, a canvas.ProfileParams) (any, error) {
		return h.svc.UpdateUserProfile(ctx, a)
	})

	register(h, s, mcp.NewTool("canvas_list_course_users",
		mcp.WithDescription("List the users of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListCourseUsers(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_list_enrollments",
		mcp.WithDescription("List the enrollments of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListEnrollments(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_enroll_user",
		mcp.WithDescription("Enroll a user in a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User ID")),
		mcp.WithString("role", mcp.Description("Enrollment type (default StudentEnrollment)"),
			mcp.Enum("StudentEnrollment", "TeacherEnrollment", "TaEnrollment", "ObserverEnrollment", "DesignerEnrollment")),
		mcp.WithString("enrollment_state", mcp.Description("Initial state (default active)"),
			mcp.Enum("active", "invited", "inactive")),
	), func(ctx context.Context, a enrollArgs) (any, error) {
		return h.svc.EnrollUser(ctx, a.CourseID, canvas.EnrollParams{
			UserID:          a.UserID,
			Type:            a.Role,
			EnrollmentState: a.EnrollmentState,
		})
	})

	register(h, s, mcp.NewTool("canvas_unenroll_user",
		mcp.WithDescription("Remove an enrollment from a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("enrollment_id", mcp.Required(), mcp.Description("Enrollment ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a unenrollArgs) (any, error) {
		if err := h.svc.UnenrollUser(ctx, a.CourseID, a.EnrollmentID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully unenrolled user (enrollment %d) from course %d", a.EnrollmentID, a.CourseID), nil
	})

	register(h, s, mcp.NewTool("canvas_get_course_grades",
		mcp.WithDescription("Get the grades of all students in a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.GetCourseGrades(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_user_grades",
		mcp.WithDescription("Get the current user's grades across courses"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.GetUserGrades(ctx)
	})
}
