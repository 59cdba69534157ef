package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// QuizParams are the writable quiz attributes.
type QuizParams struct {
	Title              string   `json:"title,omitempty"`
	Description        string   `json:"description,omitempty"`
	QuizType           string   `json:"quiz_type,omitempty" validate:"omitempty,oneof=practice_quiz assignment graded_survey survey"`
	TimeLimit          *int     `json:"time_limit,omitempty"`
	ShuffleAnswers     *bool    `json:"shuffle_answers,omitempty"`
	AllowedAttempts    *int     `json:"allowed_attempts,omitempty"`
	PointsPossible     *float64 `json:"points_possible,omitempty"`
	DueAt              string   `json:"due_at,omitempty"`
	UnlockAt           string   `json:"unlock_at,omitempty"`
	LockAt             string   `json:"lock_at,omitempty"`
	Published          *bool    `json:"published,omitempty"`
	AssignmentGroupID  int64    `json:"assignment_group_id,omitempty"`
	ShowCorrectAnswers *bool    `json:"show_correct_answers,omitempty"`
}

// QuizAnswerParams are the writable attributes of an answer choice.
type QuizAnswerParams struct {
	Text     string  `json:"answer_text,omitempty"`
	Weight   float64 `json:"answer_weight"`
	Comments string  `json:"answer_comments,omitempty"`
}

// QuizQuestionParams are the writable attributes of a quiz question.
type QuizQuestionParams struct {
	QuestionName      string             `json:"question_name,omitempty"`
	QuestionText      string             `json:"question_text,omitempty"`
	QuestionType      string             `json:"question_type,omitempty"`
	PointsPossible    *float64           `json:"points_possible,omitempty"`
	Position          *int               `json:"position,omitempty"`
	CorrectComments   string             `json:"correct_comments,omitempty"`
	IncorrectComments string             `json:"incorrect_comments,omitempty"`
	NeutralComments   string             `json:"neutral_comments,omitempty"`
	Answers           []QuizAnswerParams `json:"answers,omitempty"`
}

// QuizQuestionsOptions select how ListQuizQuestions reads questions.
type QuizQuestionsOptions struct {
	// QuizSubmissionID and Attempt narrow the questions to those shown in
	// a specific attempt.
	QuizSubmissionID int64
	Attempt          int

	// UseSubmissionEndpoint reads the questions through the quiz
	// submission, which works for students during an attempt.
	UseSubmissionEndpoint bool
}

type quizSubmissionsEnvelope struct {
	QuizSubmissions []QuizSubmission `json:"quiz_submissions"`
}

type quizSubmissionQuestionsEnvelope struct {
	Questions []QuizQuestion `json:"quiz_submission_questions"`
}

func quizPath(courseID, quizID int64) string {
	return fmt.Sprintf("/courses/%d/quizzes/%d", courseID, quizID)
}

func requireQuiz(courseID, quizID int64) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	return requireID("quiz_id", quizID)
}

// ListQuizzes lists the quizzes of a course.
func (s *Service) ListQuizzes(ctx context.Context, courseID int64) ([]Quiz, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Quiz](ctx, s, fmt.Sprintf("/courses/%d/quizzes", courseID), nil)
}

// GetQuiz fetches one quiz.
func (s *Service) GetQuiz(ctx context.Context, courseID, quizID int64) (*Quiz, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	return get[*Quiz](ctx, s, quizPath(courseID, quizID), nil)
}

// CreateQuiz creates a quiz.
func (s *Service) CreateQuiz(ctx context.Context, courseID int64, params QuizParams) (*Quiz, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	path := fmt.Sprintf("/courses/%d/quizzes", courseID)
	return send[*Quiz](ctx, s, http.MethodPost, path, map[string]any{"quiz": params})
}

// UpdateQuiz updates a quiz.
func (s *Service) UpdateQuiz(ctx context.Context, courseID, quizID int64, params QuizParams) (*Quiz, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return send[*Quiz](ctx, s, http.MethodPut, quizPath(courseID, quizID), map[string]any{"quiz": params})
}

// DeleteQuiz deletes a quiz.
func (s *Service) DeleteQuiz(ctx context.Context, courseID, quizID int64) error {
	if err := requireQuiz(courseID, quizID); err != nil {
		return err
	}
	return s.del(ctx, quizPath(courseID, quizID), nil)
}

// StartQuizAttempt starts a new attempt for the caller.
func (s *Service) StartQuizAttempt(ctx context.Context, courseID, quizID int64) ([]QuizSubmission, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	env, err := send[quizSubmissionsEnvelope](ctx, s, http.MethodPost, quizPath(courseID, quizID)+"/submissions", nil)
	if err != nil {
		return nil, err
	}
	return env.QuizSubmissions, nil
}

// SubmitQuizAttempt records answers for an attempt and completes it.
// Recording answers is best effort: a failure is logged and the attempt is
// still completed so the caller is not left with an open attempt.
func (s *Service) SubmitQuizAttempt(ctx context.Context, courseID, quizID, submissionID int64, attempt int, validationToken string, answers []QuizAnswerSubmission) ([]QuizSubmission, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	if err := requireID("submission_id", submissionID); err != nil {
		return nil, err
	}
	if attempt <= 0 {
		attempt = 1
	}

	var token any
	if validationToken != "" {
		token = validationToken
	}

	if len(answers) > 0 {
		questions := make([]map[string]any, 0, len(answers))
		for _, a := range answers {
			questions = append(questions, map[string]any{
				"id":     strconv.FormatInt(a.QuestionID, 10),
				"answer": answerValue(a),
			})
		}
		body := map[string]any{
			"attempt":          attempt,
			"validation_token": token,
			"quiz_questions":   questions,
		}
		path := fmt.Sprintf("/quiz_submissions/%d/questions", submissionID)
		if err := s.exec(ctx, http.MethodPost, path, body); err != nil {
			s.logger.Warn().
				Err(err).
				Int64("quiz_submission_id", submissionID).
				Msg("Failed to record quiz answers, completing attempt anyway")
		}
	}

	body := map[string]any{"attempt": attempt, "validation_token": token}
	path := fmt.Sprintf("%s/submissions/%d/complete", quizPath(courseID, quizID), submissionID)
	env, err := send[quizSubmissionsEnvelope](ctx, s, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return env.QuizSubmissions, nil
}

func answerValue(a QuizAnswerSubmission) any {
	switch {
	case a.AnswerID != nil:
		return *a.AnswerID
	case a.Answer != nil:
		return a.Answer
	case len(a.Match) > 0:
		return a.Match
	default:
		return nil
	}
}

// ListQuizQuestions lists the questions of a quiz.
func (s *Service) ListQuizQuestions(ctx context.Context, courseID, quizID int64, opts QuizQuestionsOptions) ([]QuizQuestion, error) {
	if opts.UseSubmissionEndpoint && opts.QuizSubmissionID > 0 {
		return s.GetQuizSubmissionQuestions(ctx, opts.QuizSubmissionID)
	}
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}

	q := url.Values{}
	if opts.QuizSubmissionID > 0 {
		q.Set("quiz_submission_id", strconv.FormatInt(opts.QuizSubmissionID, 10))
		attempt := opts.Attempt
		if attempt <= 0 {
			attempt = 1
		}
		q.Set("quiz_submission_attempt", strconv.Itoa(attempt))
	}
	return list[QuizQuestion](ctx, s, quizPath(courseID, quizID)+"/questions", q)
}

// GetQuizSubmissionQuestions lists the questions of a quiz submission.
func (s *Service) GetQuizSubmissionQuestions(ctx context.Context, submissionID int64) ([]QuizQuestion, error) {
	if err := requireID("quiz_submission_id", submissionID); err != nil {
		return nil, err
	}
	env, err := get[quizSubmissionQuestionsEnvelope](ctx, s, fmt.Sprintf("/quiz_submissions/%d/questions", submissionID), nil)
	if err != nil {
		return nil, err
	}
	if env.Questions == nil {
		return []QuizQuestion{}, nil
	}
	return env.Questions, nil
}

// GetQuizQuestion fetches one quiz question.
func (s *Service) GetQuizQuestion(ctx context.Context, courseID, quizID, questionID int64) (*QuizQuestion, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	if err := requireID("question_id", questionID); err != nil {
		return nil, err
	}
	return get[*QuizQuestion](ctx, s, fmt.Sprintf("%s/questions/%d", quizPath(courseID, quizID), questionID), nil)
}

// CreateQuizQuestion adds a question to a quiz.
func (s *Service) CreateQuizQuestion(ctx context.Context, courseID, quizID int64, params QuizQuestionParams) (*QuizQuestion, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	if params.QuestionText == "" || params.QuestionType == "" {
		return nil, fmt.Errorf("%w: question_text and question_type are required", ErrInvalidArgument)
	}
	path := quizPath(courseID, quizID) + "/questions"
	return send[*QuizQuestion](ctx, s, http.MethodPost, path, map[string]any{"question": params})
}

// UpdateQuizQuestion updates a quiz question.
func (s *Service) UpdateQuizQuestion(ctx context.Context, courseID, quizID, questionID int64, params QuizQuestionParams) (*QuizQuestion, error) {
	if err := requireQuiz(courseID, quizID); err != nil {
		return nil, err
	}
	if err := requireID("question_id", questionID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%s/questions/%d", quizPath(courseID, quizID), questionID)
	return send[*QuizQuestion](ctx, s, http.MethodPut, path, map[string]any{"question": params})
}

// DeleteQuizQuestion removes a question from a quiz.
func (s *Service) DeleteQuizQuestion(ctx context.Context, courseID, quizID, questionID int64) error {
	if err := requireQuiz(courseID, quizID); err != nil {
		return err
	}
	if err := requireID("question_id", questionID); err != nil {
		return err
	}
	return s.del(ctx, fmt.Sprintf("%s/questions/%d", quizPath(courseID, quizID), questionID), nil)
}
