package mcpserver

import (
	"context"
	"fmt"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type quizArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	QuizID   int64 `json:"quiz_id" validate:"required"`
}

type createQuizArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	canvas.QuizParams
}

type updateQuizArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	QuizID   int64 `json:"quiz_id" validate:"required"`
	canvas.QuizParams
}

type submitQuizArgs struct {
	CourseID        int64                         `json:"course_id" validate:"required"`
	QuizID          int64                         `json:"quiz_id" validate:"required"`
	SubmissionID    int64                         `json:"submission_id" validate:"required"`
	Attempt         int                           `json:"attempt" validate:"gte=0"`
	ValidationToken string                        `json:"validation_token"`
	Answers         []canvas.QuizAnswerSubmission `json:"answers" validate:"required,dive"`
}

type listQuizQuestionsArgs struct {
	CourseID              int64 `json:"course_id" validate:"required"`
	QuizID                int64 `json:"quiz_id" validate:"required"`
	QuizSubmissionID      int64 `json:"quiz_submission_id"`
	QuizSubmissionAttempt int   `json:"quiz_submission_attempt"`
	UseSubmissionEndpoint bool  `json:"use_submission_endpoint"`
}

type submissionQuestionsArgs struct {
	QuizSubmissionID int64 `json:"quiz_submission_id" validate:"required"`
}

type quizQuestionArgs struct {
	CourseID   int64 `json:"course_id" validate:"required"`
	QuizID     int64 `json:"quiz_id" validate:"required"`
	QuestionID int64 `json:"question_id" validate:"required"`
}

type createQuizQuestionArgs struct {
	CourseID       int64    `json:"course_id" validate:"required"`
	QuizID         int64    `json:"quiz_id" validate:"required"`
	QuestionName   string   `json:"question_name" validate:"required"`
	QuestionText   string   `json:"question_text" validate:"required"`
	QuestionType   string   `json:"question_type" validate:"required"`
	PointsPossible *float64 `json:"points_possible" validate:"required"`
	canvas.QuizQuestionParams
}

type updateQuizQuestionArgs struct {
	CourseID   int64 `json:"course_id" validate:"required"`
	QuizID     int64 `json:"quiz_id" validate:"required"`
	QuestionID int64 `json:"question_id" validate:"required"`
	canvas.QuizQuestionParams
}

var questionTypes = []string{
	"multiple_choice_question", "true_false_question", "short_answer_question",
	"fill_in_multiple_blanks_question", "multiple_answers_question",
	"multiple_dropdowns_question", "matching_question", "numerical_question",
	"calculated_question", "essay_question", "file_upload_question", "text_only_question",
}

func quizProperties() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("description", mcp.Description("Quiz description (HTML)")),
		mcp.WithString("quiz_type", mcp.Description("Quiz type"),
			mcp.Enum("practice_quiz", "assignment", "graded_survey", "survey")),
		mcp.WithNumber("time_limit", mcp.Description("Time limit in minutes")),
		mcp.WithBoolean("shuffle_answers", mcp.Description("Shuffle answers")),
		mcp.WithNumber("allowed_attempts", mcp.Description("Allowed attempts (-1 for unlimited)")),
		mcp.WithNumber("points_possible", mcp.Description("Maximum points")),
		mcp.WithString("due_at", mcp.Description("Due date (ISO 8601)")),
		mcp.WithString("unlock_at", mcp.Description("Unlock date (ISO 8601)")),
		mcp.WithString("lock_at", mcp.Description("Lock date (ISO 8601)")),
		mcp.WithBoolean("published", mcp.Description("Whether the quiz is published")),
		mcp.WithNumber("assignment_group_id", mcp.Description("Assignment group ID")),
		mcp.WithBoolean("show_correct_answers", mcp.Description("Show correct answers after submission")),
	}
}

func questionProperties() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("position", mcp.Description("Position in the quiz")),
		mcp.WithString("correct_comments", mcp.Description("Comment for correct answers")),
		mcp.WithString("incorrect_comments", mcp.Description("Comment for incorrect answers")),
		mcp.WithString("neutral_comments", mcp.Description("Comment shown regardless of the answer")),
		mcp.WithArray("answers", mcp.Description("Answers with answer_text, answer_weight and answer_comments"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"answer_text":     map[string]any{"type": "string"},
					"answer_weight":   map[string]any{"type": "number"},
					"answer_comments": map[string]any{"type": "string"},
				},
			})),
	}
}

func (h *Handler) registerQuizTools(s *server.MCPServer) {
	register(h, s, mcp.NewTool("canvas_list_quizzes",
		mcp.WithDescription("List the quizzes of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListQuizzes(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_quiz",
		mcp.WithDescription("Get a quiz"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
	), func(ctx context.Context, a quizArgs) (any, error) {
		return h.svc.GetQuiz(ctx, a.CourseID, a.QuizID)
	})

	create := append([]mcp.ToolOption{
		mcp.WithDescription("Create a quiz"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Quiz title")),
	}, quizProperties()...)
	register(h, s, mcp.NewTool("canvas_create_quiz", create...),
		func(ctx context.Context, a createQuizArgs) (any, error) {
			params := a.QuizParams
			params.Title = a.Title
			return h.svc.CreateQuiz(ctx, a.CourseID, params)
		})

	update := append([]mcp.ToolOption{
		mcp.WithDescription("Update a quiz"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithString("title", mcp.Description("Quiz title")),
	}, quizProperties()...)
	register(h, s, mcp.NewTool("canvas_update_quiz", update...),
		func(ctx context.Context, a updateQuizArgs) (any, error) {
			return h.svc.UpdateQuiz(ctx, a.CourseID, a.QuizID, a.QuizParams)
		})

	register(h, s, mcp.NewTool("canvas_delete_quiz",
		mcp.WithDescription("Delete a quiz"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a quizArgs) (any, error) {
		if err := h.svc.DeleteQuiz(ctx, a.CourseID, a.QuizID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully deleted quiz %d from course %d", a.QuizID, a.CourseID), nil
	})

	register(h, s, mcp.NewTool("canvas_start_quiz_attempt",
		mcp.WithDescription("Start a quiz attempt; returns the submission with its validation token"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
	), func(ctx context.Context, a quizArgs) (any, error) {
		return h.svc.StartQuizAttempt(ctx, a.CourseID, a.QuizID)
	})

	register(h, s, mcp.NewTool("canvas_submit_quiz_answers",
		mcp.WithDescription("Record answers for a quiz attempt and complete it"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithNumber("submission_id", mcp.Required(), mcp.Description("Quiz submission ID")),
		mcp.WithNumber("attempt", mcp.Description("Attempt number (default 1)")),
		mcp.WithString("validation_token", mcp.Description("Token returned when the attempt started")),
		mcp.WithArray("answers", mcp.Required(), mcp.Description("Answers by question_id with answer_id, answer or match"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question_id": map[string]any{"type": "number"},
					"answer_id":   map[string]any{"type": "number"},
					"answer":      map[string]any{},
					"match": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object"},
					},
				},
				"required": []string{"question_id"},
			})),
	), func(ctx context.Context, a submitQuizArgs) (any, error) {
		return h.svc.SubmitQuizAttempt(ctx, a.CourseID, a.QuizID, a.SubmissionID, a.Attempt, a.ValidationToken, a.Answers)
	})

	register(h, s, mcp.NewTool("canvas_list_quiz_questions",
		mcp.WithDescription("List the questions of a quiz, optionally for a submission"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithNumber("quiz_submission_id", mcp.Description("Quiz submission ID")),
		mcp.WithNumber("quiz_submission_attempt", mcp.Description("Attempt number")),
		mcp.WithBoolean("use_submission_endpoint", mcp.Description("Read through the quiz submission endpoint")),
	), func(ctx context.Context, a listQuizQuestionsArgs) (any, error) {
		return h.svc.ListQuizQuestions(ctx, a.CourseID, a.QuizID, canvas.QuizQuestionsOptions{
			QuizSubmissionID:      a.QuizSubmissionID,
			Attempt:               a.QuizSubmissionAttempt,
			UseSubmissionEndpoint: a.UseSubmissionEndpoint,
		})
	})

	register(h, s, mcp.NewTool("canvas_get_quiz_submission_questions",
		mcp.WithDescription("List the questions of a quiz submission"),
		mcp.WithNumber("quiz_submission_id", mcp.Required(), mcp.Description("Quiz submission ID")),
	), func(ctx context.Context, a submissionQuestionsArgs) (any, error) {
		return h.svc.GetQuizSubmissionQuestions(ctx, a.QuizSubmissionID)
	})

	register(h, s, mcp.NewTool("canvas_get_quiz_question",
		mcp.WithDescription("Get a quiz question"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithNumber("question_id", mcp.Required(), mcp.Description("Question ID")),
	), func(ctx context.Context, a quizQuestionArgs) (any, error) {
		return h.svc.GetQuizQuestion(ctx, a.CourseID, a.QuizID, a.QuestionID)
	})

	create = append([]mcp.ToolOption{
		mcp.WithDescription("Add a question to a quiz"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithString("question_name", mcp.Required(), mcp.Description("Question name")),
		mcp.WithString("question_text", mcp.Required(), mcp.Description("Question text (HTML)")),
		mcp.WithString("question_type", mcp.Required(), mcp.Description("Question type"), mcp.Enum(questionTypes...)),
		mcp.WithNumber("points_possible", mcp.Required(), mcp.Description("Points for the question")),
	}, questionProperties()...)
	register(h, s, mcp.NewTool("canvas_create_quiz_question", create...),
		func(ctx context.Context, a createQuizQuestionArgs) (any, error) {
			params := a.QuizQuestionParams
			params.QuestionName = a.QuestionName
			params.QuestionText = a.QuestionText
			params.QuestionType = a.QuestionType
			params.PointsPossible = a.PointsPossible
			return h.svc.CreateQuizQuestion(ctx, a.CourseID, a.QuizID, params)
		})

	update = append([]mcp.ToolOption{
		mcp.WithDescription("Update a quiz question"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithNumber("question_id", mcp.Required(), mcp.Description("Question ID")),
		mcp.WithString("question_name", mcp.Description("Question name")),
		mcp.WithString("question_text", mcp.Description("Question text (HTML)")),
		mcp.WithString("question_type", mcp.Description("Question type"), mcp.Enum(questionTypes...)),
		mcp.WithNumber("points_possible", mcp.Description("Points for the question")),
	}, questionProperties()...)
	register(h, s, mcp.NewTool("canvas_update_quiz_question", update...),
		func(ctx context.Context, a updateQuizQuestionArgs) (any, error) {
			return h.svc.UpdateQuizQuestion(ctx, a.CourseID, a.QuizID, a.QuestionID, a.QuizQuestionParams)
		})

	register(h, s, mcp.NewTool("canvas_delete_quiz_question",
		mcp.WithDescription("Delete a quiz question"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("quiz_id", mcp.Required(), mcp.Description("Quiz ID")),
		mcp.WithNumber("question_id", mcp.Required(), mcp.Description("Question ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a quizQuestionArgs) (any, error) {
		if err := h.svc.DeleteQuizQuestion(ctx, a.CourseID, a.QuizID, a.QuestionID); err != nil {
			return nil, err
		}
		return "Quiz question deleted successfully", nil
	})
}
