package mcpserver

import (
	"context"
	"fmt"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type courseIDArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
}

type listCoursesArgs struct {
	IncludeEnded bool `json:"include_ended"`
}

type createCourseArgs struct {
	AccountID int64 `json:"account_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	canvas.CourseParams
}

type updateCourseArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Event    string `json:"event" validate:"omitempty,oneof=claim offer conclude delete undelete"`
	canvas.CourseParams
}

type deleteCourseArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Event    string `json:"event" validate:"omitempty,oneof=delete conclude"`
}

func courseProperties() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("course_code", mcp.Description("Short course code")),
		mcp.WithString("start_at", mcp.Description("Course start date (ISO 8601)")),
		mcp.WithString("end_at", mcp.Description("Course end date (ISO 8601)")),
		mcp.WithString("license", mcp.Description("Content license")),
		mcp.WithBoolean("is_public", mcp.Description("Whether the course is public")),
		mcp.WithBoolean("is_public_to_auth_users", mcp.Description("Visible to authenticated users")),
		mcp.WithBoolean("public_syllabus", mcp.Description("Whether the syllabus is public")),
		mcp.WithBoolean("public_syllabus_to_auth", mcp.Description("Syllabus visible to authenticated users")),
		mcp.WithString("public_description", mcp.Description("Public course description")),
		mcp.WithBoolean("allow_student_wiki_edits", mcp.Description("Students may edit wiki pages")),
		mcp.WithBoolean("allow_wiki_comments", mcp.Description("Allow comments on wiki pages")),
		mcp.WithBoolean("allow_student_forum_attachments", mcp.Description("Students may attach files to discussions")),
		mcp.WithBoolean("open_enrollment", mcp.Description("Open enrollment")),
		mcp.WithBoolean("self_enrollment", mcp.Description("Self enrollment")),
		mcp.WithBoolean("restrict_enrollments_to_course_dates", mcp.Description("Restrict enrollments to course dates")),
		mcp.WithNumber("term_id", mcp.Description("Enrollment term ID")),
		mcp.WithString("sis_course_id", mcp.Description("SIS course ID")),
		mcp.WithString("integration_id", mcp.Description("Integration ID")),
		mcp.WithBoolean("hide_final_grades", mcp.Description("Hide final grades from students")),
		mcp.WithBoolean("apply_assignment_group_weights", mcp.Description("Weight final grade by assignment groups")),
		mcp.WithString("time_zone", mcp.Description("IANA time zone of the course")),
		mcp.WithString("syllabus_body", mcp.Description("Syllabus HTML")),
		mcp.WithString("default_view", mcp.Description("Course home page view"),
			mcp.Enum("feed", "wiki", "modules", "syllabus", "assignments")),
	}
}

func (h *Handler) registerCourseTools(s *server.MCPServer) {
	register(h, s, mcp.NewTool("canvas_list_courses",
		mcp.WithDescription("List the courses of the current user"),
		mcp.WithBoolean("include_ended", mcp.Description("Include completed courses")),
	), func(ctx context.Context, a listCoursesArgs) (any, error) {
		return h.svc.ListCourses(ctx, a.IncludeEnded)
	})

	register(h, s, mcp.NewTool("canvas_list_student_courses",
		mcp.WithDescription("List active courses in which the current user is a student"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.ListStudentCourses(ctx)
	})

	register(h, s, mcp.NewTool("canvas_get_course",
		mcp.WithDescription("Get a course with its sections and syllabus"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.GetCourse(ctx, a.CourseID)
	})

	create := append([]mcp.ToolOption{
		mcp.WithDescription("Create a course in an account"),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Course name")),
	}, courseProperties()...)
	register(h, s, mcp.NewTool("canvas_create_course", create...),
		func(ctx context.Context, a createCourseArgs) (any, error) {
			params := a.CourseParams
			params.Name = a.Name
			return h.svc.CreateCourse(ctx, a.AccountID, params)
		})

	update := append([]mcp.ToolOption{
		mcp.WithDescription("Update a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("name", mcp.Description("Course name")),
		mcp.WithString("event", mcp.Description("State change to apply"),
			mcp.Enum("claim", "offer", "conclude", "delete", "undelete")),
	}, courseProperties()...)
	register(h, s, mcp.NewTool("canvas_update_course", update...),
		func(ctx context.Context, a updateCourseArgs) (any, error) {
			return h.svc.UpdateCourse(ctx, a.CourseID, a.CourseParams, a.Event)
		})

	register(h, s, mcp.NewTool("canvas_delete_course",
		mcp.WithDescription("Delete or conclude a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("event", mcp.Description("delete (default) or conclude"), mcp.Enum("delete", "conclude")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a deleteCourseArgs) (any, error) {
		event := a.Event
		if event == "" {
			event = canvas.CourseEventDelete
		}
		if err := h.svc.DeleteCourse(ctx, a.CourseID, event); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully %sd course %d", event, a.CourseID), nil
	})

	register(h, s, mcp.NewTool("canvas_get_syllabus",
		mcp.WithDescription("Get the syllabus of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.GetSyllabus(ctx, a.CourseID)
	})
}
