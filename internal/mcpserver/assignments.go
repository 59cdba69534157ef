package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type listAssignmentsArgs struct {
	CourseID           int64 `json:"course_id" validate:"required"`
	IncludeSubmissions bool  `json:"include_submissions"`
}

type assignmentArgs struct {
	CourseID          int64 `json:"course_id" validate:"required"`
	AssignmentID      int64 `json:"assignment_id" validate:"required"`
	IncludeSubmission bool  `json:"include_submission"`
}

type createAssignmentArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	canvas.AssignmentParams
}

type updateAssignmentArgs struct {
	CourseID     int64 `json:"course_id" validate:"required"`
	AssignmentID int64 `json:"assignment_id" validate:"required"`
	canvas.AssignmentParams
}

type assignmentGroupArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	GroupID  int64 `json:"assignment_group_id" validate:"required"`
}

type getSubmissionArgs struct {
	CourseID     int64 `json:"course_id" validate:"required"`
	AssignmentID int64 `json:"assignment_id" validate:"required"`
	UserID       int64 `json:"user_id"`
}

type submitAssignmentArgs struct {
	CourseID       int64   `json:"course_id" validate:"required"`
	AssignmentID   int64   `json:"assignment_id" validate:"required"`
	SubmissionType string  `json:"submission_type" validate:"required,oneof=online_text_entry online_url online_upload"`
	Body           string  `json:"body"`
	URL            string  `json:"url"`
	FileIDs        []int64 `json:"file_ids"`
	Comment        string  `json:"comment"`
}

type submitWithFileArgs struct {
	CourseID     int64  `json:"course_id" validate:"required"`
	AssignmentID int64  `json:"assignment_id" validate:"required"`
	FilePath     string `json:"file_path" validate:"required"`
	Comment      string `json:"comment"`
}

type submitGradeArgs struct {
	CourseID     int64  `json:"course_id" validate:"required"`
	AssignmentID int64  `json:"assignment_id" validate:"required"`
	UserID       int64  `json:"user_id" validate:"required"`
	Grade        grade  `json:"grade" validate:"required"`
	Comment      string `json:"comment"`
}

// grade accepts both numeric and string grades ("A-", "pass", "95%").
type grade string

func (g *grade) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = grade(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*g = grade(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func assignmentProperties() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("description", mcp.Description("Assignment description (HTML)")),
		mcp.WithString("due_at", mcp.Description("Due date (ISO 8601)")),
		mcp.WithString("unlock_at", mcp.Description("Unlock date (ISO 8601)")),
		mcp.WithString("lock_at", mcp.Description("Lock date (ISO 8601)")),
		mcp.WithNumber("points_possible", mcp.Description("Maximum points")),
		mcp.WithString("grading_type", mcp.Description("Grading type"),
			mcp.Enum("pass_fail", "percent", "letter_grade", "gpa_scale", "points", "not_graded")),
		mcp.WithArray("submission_types", mcp.Description("Allowed submission types"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("allowed_extensions", mcp.Description("Allowed file extensions"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("assignment_group_id", mcp.Description("Assignment group ID")),
		mcp.WithBoolean("published", mcp.Description("Whether the assignment is published")),
	}
}

func (h *Handler) registerAssignmentTools(s *server.MCPServer) {
	register(h, s, mcp.NewTool("canvas_list_assignments",
		mcp.WithDescription("List the assignments of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithBoolean("include_submissions", mcp.Description("Include the caller's submissions")),
	), func(ctx context.Context, a listAssignmentsArgs) (any, error) {
		return h.svc.ListAssignments(ctx, a.CourseID, a.IncludeSubmissions)
	})

	register(h, s, mcp.NewTool("canvas_get_assignment",
		mcp.WithDescription("Get an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithBoolean("include_submission", mcp.Description("Include the caller's submission")),
	), func(ctx context.Context, a assignmentArgs) (any, error) {
		return h.svc.GetAssignment(ctx, a.CourseID, a.AssignmentID, a.IncludeSubmission)
	})

	create := append([]mcp.ToolOption{
		mcp.WithDescription("Create an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Assignment name")),
	}, assignmentProperties()...)
	register(h, s, mcp.NewTool("canvas_create_assignment", create...),
		func(ctx context.Context, a createAssignmentArgs) (any, error) {
			params := a.AssignmentParams
			params.Name = a.Name
			return h.svc.CreateAssignment(ctx, a.CourseID, params)
		})

	update := append([]mcp.ToolOption{
		mcp.WithDescription("Update an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithString("name", mcp.Description("Assignment name")),
	}, assignmentProperties()...)
	register(h, s, mcp.NewTool("canvas_update_assignment", update...),
		func(ctx context.Context, a updateAssignmentArgs) (any, error) {
			return h.svc.UpdateAssignment(ctx, a.CourseID, a.AssignmentID, a.AssignmentParams)
		})

	register(h, s, mcp.NewTool("canvas_delete_assignment",
		mcp.WithDescription("Delete an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a assignmentArgs) (any, error) {
		if err := h.svc.DeleteAssignment(ctx, a.CourseID, a.AssignmentID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully deleted assignment %d from course %d", a.AssignmentID, a.CourseID), nil
	})

	register(h, s, mcp.NewTool("canvas_list_assignment_groups",
		mcp.WithDescription("List assignment groups with their assignments"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListAssignmentGroups(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_assignment_group",
		mcp.WithDescription("Get an assignment group"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_group_id", mcp.Required(), mcp.Description("Assignment group ID")),
	), func(ctx context.Context, a assignmentGroupArgs) (any, error) {
		return h.svc.GetAssignmentGroup(ctx, a.CourseID, a.GroupID)
	})

	register(h, s, mcp.NewTool("canvas_list_submissions",
		mcp.WithDescription("List all submissions for an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
	), func(ctx context.Context, a assignmentArgs) (any, error) {
		return h.svc.ListSubmissions(ctx, a.CourseID, a.AssignmentID)
	})

	register(h, s, mcp.NewTool("canvas_get_submission",
		mcp.WithDescription("Get a submission; without user_id the caller's own"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithNumber("user_id", mcp.Description("User ID (defaults to self)")),
	), func(ctx context.Context, a getSubmissionArgs) (any, error) {
		user := ""
		if a.UserID > 0 {
			user = strconv.FormatInt(a.UserID, 10)
		}
		return h.svc.GetSubmission(ctx, a.CourseID, a.AssignmentID, user)
	})

	register(h, s, mcp.NewTool("canvas_submit_assignment",
		mcp.WithDescription("Submit work for an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithString("submission_type", mcp.Required(), mcp.Description("Submission type"),
			mcp.Enum("online_text_entry", "online_url", "online_upload")),
		mcp.WithString("body", mcp.Description("Text body for online_text_entry")),
		mcp.WithString("url", mcp.Description("URL for online_url")),
		mcp.WithArray("file_ids", mcp.Description("Uploaded file IDs for online_upload"),
			mcp.Items(map[string]any{"type": "number"})),
		mcp.WithString("comment", mcp.Description("Optional submission comment")),
	), func(ctx context.Context, a submitAssignmentArgs) (any, error) {
		return h.svc.SubmitAssignment(ctx, a.CourseID, a.AssignmentID, canvas.SubmissionParams{
			SubmissionType: a.SubmissionType,
			Body:           a.Body,
			URL:            a.URL,
			FileIDs:        a.FileIDs,
			Comment:        a.Comment,
		})
	})

	register(h, s, mcp.NewTool("canvas_submit_assignment_with_file",
		mcp.WithDescription("Upload a local file and submit it to an assignment"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the local file")),
		mcp.WithString("comment", mcp.Description("Optional submission comment")),
	), func(ctx context.Context, a submitWithFileArgs) (any, error) {
		return h.svc.SubmitAssignmentWithFile(ctx, a.CourseID, a.AssignmentID, a.FilePath, a.Comment)
	})

	register(h, s, mcp.NewTool("canvas_submit_grade",
		mcp.WithDescription("Grade a student's submission"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("Assignment ID")),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("Student user ID")),
		mcp.WithString("grade", mcp.Required(), mcp.Description("Grade (points, percentage, letter, pass/fail)")),
		mcp.WithString("comment", mcp.Description("Optional grading comment")),
	), func(ctx context.Context, a submitGradeArgs) (any, error) {
		return h.svc.SubmitGrade(ctx, a.CourseID, a.AssignmentID, a.UserID, string(a.Grade), a.Comment)
	})
}
