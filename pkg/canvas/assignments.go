package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AssignmentParams are the writable assignment attributes.
type AssignmentParams struct {
	Name              string   `json:"name,omitempty"`
	Description       string   `json:"description,omitempty"`
	DueAt             string   `json:"due_at,omitempty"`
	UnlockAt          string   `json:"unlock_at,omitempty"`
	LockAt            string   `json:"lock_at,omitempty"`
	PointsPossible    *float64 `json:"points_possible,omitempty"`
	GradingType       string   `json:"grading_type,omitempty"`
	SubmissionTypes   []string `json:"submission_types,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	AssignmentGroupID int64    `json:"assignment_group_id,omitempty"`
	Published         *bool    `json:"published,omitempty"`
}

// SubmissionParams describe a student submission.
type SubmissionParams struct {
	SubmissionType string  `json:"submission_type" validate:"oneof=online_text_entry online_url online_upload"`
	Body           string  `json:"body,omitempty"`
	URL            string  `json:"url,omitempty" validate:"omitempty,url"`
	FileIDs        []int64 `json:"file_ids,omitempty"`

	// Comment is attached to the submission as a text comment.
	Comment string `json:"-"`
}

func assignmentPath(courseID, assignmentID int64) string {
	return fmt.Sprintf("/courses/%d/assignments/%d", courseID, assignmentID)
}

// ListAssignments lists the assignments of a course, optionally with the
// caller's submission for each.
func (s *Service) ListAssignments(ctx context.Context, courseID int64, includeSubmissions bool) ([]Assignment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	includes := []string{"assignment_group", "rubric", "due_at"}
	if includeSubmissions {
		includes = append(includes, "submission")
	}
	return list[Assignment](ctx, s, fmt.Sprintf("/courses/%d/assignments", courseID), include(includes...))
}

// GetAssignment fetches one assignment with its group and rubric.
func (s *Service) GetAssignment(ctx context.Context, courseID, assignmentID int64, includeSubmission bool) (*Assignment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	includes := []string{"assignment_group", "rubric"}
	if includeSubmission {
		includes = append(includes, "submission")
	}
	return get[*Assignment](ctx, s, assignmentPath(courseID, assignmentID), include(includes...))
}

// CreateAssignment creates an assignment.
func (s *Service) CreateAssignment(ctx context.Context, courseID int64, params AssignmentParams) (*Assignment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	path := fmt.Sprintf("/courses/%d/assignments", courseID)
	return send[*Assignment](ctx, s, http.MethodPost, path, map[string]any{"assignment": params})
}

// UpdateAssignment updates an assignment.
func (s *Service) UpdateAssignment(ctx context.Context, courseID, assignmentID int64, params AssignmentParams) (*Assignment, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	return send[*Assignment](ctx, s, http.MethodPut, assignmentPath(courseID, assignmentID), map[string]any{"assignment": params})
}

// DeleteAssignment deletes an assignment.
func (s *Service) DeleteAssignment(ctx context.Context, courseID, assignmentID int64) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return err
	}
	return s.del(ctx, assignmentPath(courseID, assignmentID), nil)
}

// ListAssignmentGroups lists assignment groups with their assignments.
func (s *Service) ListAssignmentGroups(ctx context.Context, courseID int64) ([]AssignmentGroup, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[AssignmentGroup](ctx, s, fmt.Sprintf("/courses/%d/assignment_groups", courseID), include("assignments"))
}

// GetAssignmentGroup fetches one assignment group with its assignments.
func (s *Service) GetAssignmentGroup(ctx context.Context, courseID, groupID int64) (*AssignmentGroup, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("group_id", groupID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/courses/%d/assignment_groups/%d", courseID, groupID)
	return get[*AssignmentGroup](ctx, s, path, include("assignments"))
}

// ListSubmissions lists all submissions for an assignment.
func (s *Service) ListSubmissions(ctx context.Context, courseID, assignmentID int64) ([]Submission, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	q := include("submission_comments", "rubric_assessment", "assignment")
	return list[Submission](ctx, s, assignmentPath(courseID, assignmentID)+"/submissions", q)
}

// GetSubmission fetches one user's submission. An empty userID means the
// caller ("self").
func (s *Service) GetSubmission(ctx context.Context, courseID, assignmentID int64, userID string) (*Submission, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = "self"
	}
	path := assignmentPath(courseID, assignmentID) + "/submissions/" + url.PathEscape(userID)
	return get[*Submission](ctx, s, path, include("submission_comments", "rubric_assessment", "assignment"))
}

// SubmitGrade posts a grade, and optionally a comment, for a student.
func (s *Service) SubmitGrade(ctx context.Context, courseID, assignmentID, userID int64, grade, comment string) (*Submission, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(grade) == "" {
		return nil, fmt.Errorf("%w: grade is required", ErrInvalidArgument)
	}

	body := map[string]any{"submission": map[string]any{"posted_grade": grade}}
	if comment != "" {
		body["comment"] = map[string]any{"text_comment": comment}
	}
	path := fmt.Sprintf("%s/submissions/%d", assignmentPath(courseID, assignmentID), userID)
	return send[*Submission](ctx, s, http.MethodPut, path, body)
}

// SubmitAssignment submits work for the caller.
func (s *Service) SubmitAssignment(ctx context.Context, courseID, assignmentID int64, params SubmissionParams) (*Submission, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	switch params.SubmissionType {
	case "online_text_entry":
		if params.Body == "" {
			return nil, fmt.Errorf("%w: body is required for online_text_entry", ErrInvalidArgument)
		}
	case "online_url":
		if params.URL == "" {
			return nil, fmt.Errorf("%w: url is required for online_url", ErrInvalidArgument)
		}
	case "online_upload":
		if len(params.FileIDs) == 0 {
			return nil, fmt.Errorf("%w: file_ids are required for online_upload", ErrInvalidArgument)
		}
	}

	body := map[string]any{"submission": params}
	if params.Comment != "" {
		body["comment"] = map[string]any{"text_comment": params.Comment}
	}
	return send[*Submission](ctx, s, http.MethodPost, assignmentPath(courseID, assignmentID)+"/submissions", body)
}

// SubmitAssignmentWithFile uploads the file at path to the caller's files
// and submits it as an online upload.
func (s *Service) SubmitAssignmentWithFile(ctx context.Context, courseID, assignmentID int64, path, comment string) (*Submission, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("assignment_id", assignmentID); err != nil {
		return nil, err
	}

	file, err := s.UploadFileFromPath(ctx, path, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}

	return s.SubmitAssignment(ctx, courseID, assignmentID, SubmissionParams{
		SubmissionType: "online_upload",
		FileIDs:        []int64{file.ID},
		Comment:        comment,
	})
}
