package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
)

func TestAnswerValue_Precedence(t *testing.T) {
	answerID := int64(7)
	match := []QuizMatch{{AnswerID: 1, MatchID: 2}}

	tests := []struct {
		name string
		in   QuizAnswerSubmission
		want any
	}{
		{name: "answer id wins", in: QuizAnswerSubmission{AnswerID: &answerID, Answer: "x", Match: match}, want: int64(7)},
		{name: "answer before match", in: QuizAnswerSubmission{Answer: "free text", Match: match}, want: "free text"},
		{name: "match", in: QuizAnswerSubmission{Match: match}, want: nil},
		{name: "nothing", in: QuizAnswerSubmission{}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := answerValue(tt.in)
			if tt.name == "match" {
				if m, ok := got.([]QuizMatch); !ok || len(m) != 1 {
					t.Errorf("answerValue() = %#v, want match list", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("answerValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSubmitQuizAttempt_RecordsAnswersThenCompletes(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("POST /quiz_submissions/30/questions", testutil.NewJSONResponse(http.StatusOK,
		`{"quiz_submission_questions":[]}`))
	mock.SetResponse("POST /courses/1/quizzes/2/submissions/30/complete", testutil.NewJSONResponse(http.StatusOK,
		`{"quiz_submissions":[{"id":30,"quiz_id":2,"attempt":1,"workflow_state":"complete","score":8}]}`))

	answerID := int64(4001)
	subs, err := s.SubmitQuizAttempt(context.Background(), 1, 2, 30, 0, "tok", []QuizAnswerSubmission{
		{QuestionID: 11, AnswerID: &answerID},
		{QuestionID: 12, Answer: "photosynthesis"},
	})
	if err != nil {
		t.Fatalf("SubmitQuizAttempt() error = %v", err)
	}
	if len(subs) != 1 || subs[0].WorkflowState != "complete" {
		t.Errorf("SubmitQuizAttempt() = %+v", subs)
	}

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}

	var answers struct {
		Attempt         int    `json:"attempt"`
		ValidationToken string `json:"validation_token"`
		QuizQuestions   []struct {
			ID     string `json:"id"`
			Answer any    `json:"answer"`
		} `json:"quiz_questions"`
	}
	if err := json.Unmarshal(reqs[0].Body, &answers); err != nil {
		t.Fatalf("answers body: %v", err)
	}
	if answers.Attempt != 1 || answers.ValidationToken != "tok" {
		t.Errorf("attempt/token = %d/%q", answers.Attempt, answers.ValidationToken)
	}
	if len(answers.QuizQuestions) != 2 ||
		answers.QuizQuestions[0].ID != "11" || answers.QuizQuestions[0].Answer != float64(4001) ||
		answers.QuizQuestions[1].Answer != "photosynthesis" {
		t.Errorf("quiz_questions = %+v", answers.QuizQuestions)
	}
}

func TestSubmitQuizAttempt_AnswerFailureStillCompletes(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("POST /quiz_submissions/30/questions", testutil.NewJSONResponse(http.StatusForbidden,
		`{"message":"quiz submission is not in progress"}`))
	mock.SetResponse("POST /courses/1/quizzes/2/submissions/30/complete", testutil.NewJSONResponse(http.StatusOK,
		`{"quiz_submissions":[{"id":30,"workflow_state":"complete"}]}`))

	subs, err := s.SubmitQuizAttempt(context.Background(), 1, 2, 30, 1, "", []QuizAnswerSubmission{{QuestionID: 11, Answer: "x"}})
	if err != nil {
		t.Fatalf("SubmitQuizAttempt() error = %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("SubmitQuizAttempt() = %+v", subs)
	}
	if mock.GetPathCount("/courses/1/quizzes/2/submissions/30/complete") != 1 {
		t.Error("attempt was not completed")
	}

	var complete map[string]any
	if err := json.Unmarshal(mock.LastRequest().Body, &complete); err != nil {
		t.Fatal(err)
	}
	if token, present := complete["validation_token"]; !present || token != nil {
		t.Errorf("validation_token = %v, want explicit null", token)
	}
}

func TestListQuizQuestions_Endpoints(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("/quiz_submissions/30/questions", testutil.NewJSONResponse(http.StatusOK,
		`{"quiz_submission_questions":[{"id":1,"question_type":"essay_question","question_text":"Why?"}]}`))
	mock.SetResponse("/courses/1/quizzes/2/questions", testutil.NewJSONResponse(http.StatusOK,
		`[{"id":1,"question_type":"essay_question","question_text":"Why?"},{"id":2,"question_type":"true_false_question","question_text":"Sky is blue"}]`))

	viaSubmission, err := s.ListQuizQuestions(context.Background(), 1, 2, QuizQuestionsOptions{
		QuizSubmissionID:      30,
		UseSubmissionEndpoint: true,
	})
	if err != nil || len(viaSubmission) != 1 {
		t.Errorf("submission endpoint = %v, %v", viaSubmission, err)
	}

	viaCourse, err := s.ListQuizQuestions(context.Background(), 1, 2, QuizQuestionsOptions{QuizSubmissionID: 30})
	if err != nil || len(viaCourse) != 2 {
		t.Errorf("course endpoint = %v, %v", viaCourse, err)
	}
	q := lastQuery(t, mock)
	if q.Get("quiz_submission_id") != "30" || q.Get("quiz_submission_attempt") != "1" {
		t.Errorf("query = %v", q)
	}
}

func TestStartQuizAttempt(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("POST /courses/1/quizzes/2/submissions", testutil.NewJSONResponse(http.StatusOK,
		`{"quiz_submissions":[{"id":30,"attempt":1,"validation_token":"abc","workflow_state":"untaken"}]}`))

	subs, err := s.StartQuizAttempt(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("StartQuizAttempt() error = %v", err)
	}
	if len(subs) != 1 || subs[0].ValidationToken != "abc" {
		t.Errorf("StartQuizAttempt() = %+v", subs)
	}
}

func TestCreateQuizQuestion_Body(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	s := newTestService(t, mock)

	mock.SetResponse("POST /courses/1/quizzes/2/questions", testutil.NewJSONResponse(http.StatusOK,
		`{"id":5,"question_type":"multiple_choice_question","question_text":"2+2?"}`))

	_, err := s.CreateQuizQuestion(context.Background(), 1, 2, QuizQuestionParams{
		QuestionText: "2+2?",
		QuestionType: "multiple_choice_question",
		Answers: []QuizAnswerParams{
			{Text: "4", Weight: 100},
			{Text: "5", Weight: 0},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuizQuestion() error = %v", err)
	}

	body := lastBody(t, mock)
	question, _ := body["question"].(map[string]any)
	answers, _ := question["answers"].([]any)
	if len(answers) != 2 {
		t.Fatalf("answers = %v", question["answers"])
	}
	first, _ := answers[0].(map[string]any)
	if first["answer_text"] != "4" || first["answer_weight"] != float64(100) {
		t.Errorf("first answer = %v", first)
	}
}
