package canvas

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID is a Canvas identifier. Most endpoints send numbers, but some (upcoming
// events, planner items) send strings such as "assignment_42".
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(b)
	return nil
}

// MarshalJSON writes numeric IDs as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Term is an enrollment term.
type Term struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

// Teacher is the abbreviated teacher record included with courses.
type Teacher struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Section is a course section.
type Section struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
}

// Course is a Canvas course.
type Course struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	CourseCode        string          `json:"course_code"`
	WorkflowState     string          `json:"workflow_state,omitempty"`
	AccountID         int64           `json:"account_id,omitempty"`
	StartAt           *time.Time      `json:"start_at,omitempty"`
	EndAt             *time.Time      `json:"end_at,omitempty"`
	TimeZone          string          `json:"time_zone,omitempty"`
	DefaultView       string          `json:"default_view,omitempty"`
	PublicDescription string          `json:"public_description,omitempty"`
	Term              *Term           `json:"term,omitempty"`
	TotalStudents     int             `json:"total_students,omitempty"`
	Teachers          []Teacher       `json:"teachers,omitempty"`
	Sections          []Section       `json:"sections,omitempty"`
	Enrollments       []Enrollment    `json:"enrollments,omitempty"`
	SyllabusBody      string          `json:"syllabus_body,omitempty"`
	CourseProgress    json.RawMessage `json:"course_progress,omitempty"`
}

// Syllabus is the syllabus body of a course.
type Syllabus struct {
	CourseID     int64  `json:"course_id"`
	SyllabusBody string `json:"syllabus_body"`
}

// Assignment is a course assignment.
type Assignment struct {
	ID                      int64           `json:"id"`
	CourseID                int64           `json:"course_id,omitempty"`
	Name                    string          `json:"name"`
	Description             string          `json:"description,omitempty"`
	DueAt                   *time.Time      `json:"due_at,omitempty"`
	UnlockAt                *time.Time      `json:"unlock_at,omitempty"`
	LockAt                  *time.Time      `json:"lock_at,omitempty"`
	PointsPossible          float64         `json:"points_possible"`
	GradingType             string          `json:"grading_type,omitempty"`
	SubmissionTypes         []string        `json:"submission_types,omitempty"`
	AllowedExtensions       []string        `json:"allowed_extensions,omitempty"`
	HasSubmittedSubmissions bool            `json:"has_submitted_submissions"`
	Published               bool            `json:"published"`
	HTMLURL                 string          `json:"html_url,omitempty"`
	AssignmentGroupID       int64           `json:"assignment_group_id,omitempty"`
	Rubric                  json.RawMessage `json:"rubric,omitempty"`
	Submission              *Submission     `json:"submission,omitempty"`
}

// AssignmentGroup groups assignments for weighting.
type AssignmentGroup struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Position    int          `json:"position"`
	GroupWeight float64      `json:"group_weight"`
	Assignments []Assignment `json:"assignments,omitempty"`
}

// SubmissionComment is a comment on a submission.
type SubmissionComment struct {
	ID         int64      `json:"id"`
	Comment    string     `json:"comment"`
	AuthorID   int64      `json:"author_id"`
	AuthorName string     `json:"author_name"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// Submission is a student's submission for an assignment.
type Submission struct {
	ID                 int64               `json:"id"`
	AssignmentID       int64               `json:"assignment_id"`
	UserID             int64               `json:"user_id"`
	SubmittedAt        *time.Time          `json:"submitted_at,omitempty"`
	Score              *float64            `json:"score,omitempty"`
	Grade              string              `json:"grade,omitempty"`
	Attempt            int                 `json:"attempt,omitempty"`
	SubmissionType     string              `json:"submission_type,omitempty"`
	Body               string              `json:"body,omitempty"`
	URL                string              `json:"url,omitempty"`
	WorkflowState      string              `json:"workflow_state,omitempty"`
	Late               bool                `json:"late"`
	Missing            bool                `json:"missing"`
	SubmissionComments []SubmissionComment `json:"submission_comments,omitempty"`
	RubricAssessment   json.RawMessage     `json:"rubric_assessment,omitempty"`
	Assignment         *Assignment         `json:"assignment,omitempty"`
}

// File is a Canvas file.
type File struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid,omitempty"`
	FolderID    int64      `json:"folder_id,omitempty"`
	DisplayName string     `json:"display_name"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content-type,omitempty"`
	URL         string     `json:"url,omitempty"`
	Size        int64      `json:"size"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Locked      bool       `json:"locked"`
	Hidden      bool       `json:"hidden"`
}

// Folder is a Canvas folder.
type Folder struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FullName       string `json:"full_name"`
	ParentFolderID *int64 `json:"parent_folder_id,omitempty"`
	FilesCount     int    `json:"files_count"`
	FoldersCount   int    `json:"folders_count"`
	FilesURL       string `json:"files_url,omitempty"`
}

// Page is a wiki page.
type Page struct {
	PageID    int64      `json:"page_id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Published bool       `json:"published"`
	FrontPage bool       `json:"front_page"`
	HTMLURL   string     `json:"html_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CalendarEvent is a calendar entry or upcoming event.
type CalendarEvent struct {
	ID          ID          `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	StartAt     *time.Time  `json:"start_at,omitempty"`
	EndAt       *time.Time  `json:"end_at,omitempty"`
	AllDay      bool        `json:"all_day"`
	Type        string      `json:"type,omitempty"`
	ContextCode string      `json:"context_code,omitempty"`
	HTMLURL     string      `json:"html_url,omitempty"`
	Assignment  *Assignment `json:"assignment,omitempty"`
}

// Rubric is a grading rubric.
type Rubric struct {
	ID                        int64           `json:"id"`
	Title                     string          `json:"title"`
	ContextID                 int64           `json:"context_id,omitempty"`
	ContextType               string          `json:"context_type,omitempty"`
	PointsPossible            float64         `json:"points_possible"`
	FreeFormCriterionComments bool            `json:"free_form_criterion_comments"`
	Data                      json.RawMessage `json:"data,omitempty"`
}

// DashboardCard is a course card on the user dashboard.
type DashboardCard struct {
	ID           int64  `json:"id"`
	ShortName    string `json:"shortName"`
	OriginalName string `json:"originalName"`
	CourseCode   string `json:"courseCode"`
	AssetString  string `json:"assetString,omitempty"`
	Href         string `json:"href"`
	Term         string `json:"term,omitempty"`
	Subtitle     string `json:"subtitle,omitempty"`
	Image        string `json:"image,omitempty"`
	Color        string `json:"color,omitempty"`
}

// Dashboard combines the dashboard cards with upcoming events.
type Dashboard struct {
	Cards    []DashboardCard `json:"cards"`
	Upcoming []CalendarEvent `json:"upcoming"`
}

// Conversation is an inbox conversation.
type Conversation struct {
	ID            int64           `json:"id"`
	Subject       string          `json:"subject"`
	WorkflowState string          `json:"workflow_state,omitempty"`
	LastMessage   string          `json:"last_message,omitempty"`
	LastMessageAt *time.Time      `json:"last_message_at,omitempty"`
	MessageCount  int             `json:"message_count"`
	ContextName   string          `json:"context_name,omitempty"`
	Participants  json.RawMessage `json:"participants,omitempty"`
	Messages      json.RawMessage `json:"messages,omitempty"`
}

// ActivityItem is an entry of the user's activity stream.
type ActivityItem struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message,omitempty"`
	Type      string     `json:"type"`
	ReadState bool       `json:"read_state"`
	CourseID  int64      `json:"course_id,omitempty"`
	HTMLURL   string     `json:"html_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// User is a Canvas user.
type User struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	SortableName string       `json:"sortable_name,omitempty"`
	ShortName    string       `json:"short_name,omitempty"`
	LoginID      string       `json:"login_id,omitempty"`
	SISUserID    string       `json:"sis_user_id,omitempty"`
	Email        string       `json:"email,omitempty"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Enrollments  []Enrollment `json:"enrollments,omitempty"`
}

// Grades are the scores attached to an enrollment.
type Grades struct {
	HTMLURL      string   `json:"html_url,omitempty"`
	CurrentScore *float64 `json:"current_score,omitempty"`
	FinalScore   *float64 `json:"final_score,omitempty"`
	CurrentGrade string   `json:"current_grade,omitempty"`
	FinalGrade   string   `json:"final_grade,omitempty"`
}

// Enrollment ties a user to a course.
type Enrollment struct {
	ID              int64   `json:"id"`
	CourseID        int64   `json:"course_id"`
	CourseSectionID int64   `json:"course_section_id,omitempty"`
	UserID          int64   `json:"user_id"`
	Type            string  `json:"type"`
	Role            string  `json:"role,omitempty"`
	EnrollmentState string  `json:"enrollment_state"`
	Grades          *Grades `json:"grades,omitempty"`
	User            *User   `json:"user,omitempty"`
}

// Profile is the current user's profile.
type Profile struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name,omitempty"`
	SortableName string `json:"sortable_name,omitempty"`
	Title        string `json:"title,omitempty"`
	Bio          string `json:"bio,omitempty"`
	PrimaryEmail string `json:"primary_email,omitempty"`
	LoginID      string `json:"login_id,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	TimeZone     string `json:"time_zone,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// HealthUser identifies the token owner in a health report.
type HealthUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Health is the result of a connectivity check.
type Health struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	User      *HealthUser `json:"user,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// CompletionRequirement describes how a module item is completed.
type CompletionRequirement struct {
	Type      string   `json:"type"`
	MinScore  *float64 `json:"min_score,omitempty"`
	Completed bool     `json:"completed"`
}

// ModuleItem is an entry of a module.
type ModuleItem struct {
	ID                    int64                  `json:"id"`
	ModuleID              int64                  `json:"module_id"`
	Position              int                    `json:"position"`
	Title                 string                 `json:"title"`
	Type                  string                 `json:"type"`
	ContentID             int64                  `json:"content_id,omitempty"`
	HTMLURL               string                 `json:"html_url,omitempty"`
	URL                   string                 `json:"url,omitempty"`
	PageURL               string                 `json:"page_url,omitempty"`
	CompletionRequirement *CompletionRequirement `json:"completion_requirement,omitempty"`
	ContentDetails        json.RawMessage        `json:"content_details,omitempty"`
}

// Module is a course module.
type Module struct {
	ID                        int64        `json:"id"`
	Name                      string       `json:"name"`
	Position                  int          `json:"position"`
	UnlockAt                  *time.Time   `json:"unlock_at,omitempty"`
	RequireSequentialProgress bool         `json:"require_sequential_progress"`
	State                     string       `json:"state,omitempty"`
	Published                 *bool        `json:"published,omitempty"`
	ItemsCount                int          `json:"items_count"`
	ItemsURL                  string       `json:"items_url,omitempty"`
	Items                     []ModuleItem `json:"items,omitempty"`
}

// DiscussionTopic is a discussion topic or announcement.
type DiscussionTopic struct {
	ID                      int64       `json:"id"`
	Title                   string      `json:"title"`
	Message                 string      `json:"message,omitempty"`
	HTMLURL                 string      `json:"html_url,omitempty"`
	PostedAt                *time.Time  `json:"posted_at,omitempty"`
	DelayedPostAt           *time.Time  `json:"delayed_post_at,omitempty"`
	LastReplyAt             *time.Time  `json:"last_reply_at,omitempty"`
	Published               bool        `json:"published"`
	Locked                  bool        `json:"locked"`
	UserName                string      `json:"user_name,omitempty"`
	DiscussionSubentryCount int         `json:"discussion_subentry_count"`
	Assignment              *Assignment `json:"assignment,omitempty"`
}

// DiscussionEntry is a reply posted to a discussion topic.
type DiscussionEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	UserName  string     `json:"user_name,omitempty"`
	Message   string     `json:"message"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Quiz is a classic Canvas quiz.
type Quiz struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	QuizType        string     `json:"quiz_type,omitempty"`
	TimeLimit       *int       `json:"time_limit,omitempty"`
	Published       bool       `json:"published"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	PointsPossible  *float64   `json:"points_possible,omitempty"`
	QuestionCount   int        `json:"question_count"`
	AllowedAttempts int        `json:"allowed_attempts"`
	HTMLURL         string     `json:"html_url,omitempty"`
}

// QuizAnswer is an answer choice of a quiz question.
type QuizAnswer struct {
	ID       int64   `json:"id,omitempty"`
	Text     string  `json:"text,omitempty"`
	Weight   float64 `json:"weight"`
	Comments string  `json:"comments,omitempty"`
}

// QuizQuestion is a question of a quiz.
type QuizQuestion struct {
	ID                int64        `json:"id"`
	QuizID            int64        `json:"quiz_id,omitempty"`
	Position          int          `json:"position,omitempty"`
	QuestionName      string       `json:"question_name,omitempty"`
	QuestionType      string       `json:"question_type"`
	QuestionText      string       `json:"question_text"`
	PointsPossible    float64      `json:"points_possible"`
	CorrectComments   string       `json:"correct_comments,omitempty"`
	IncorrectComments string       `json:"incorrect_comments,omitempty"`
	NeutralComments   string       `json:"neutral_comments,omitempty"`
	Answers           []QuizAnswer `json:"answers,omitempty"`
}

// QuizSubmission is an attempt at a quiz.
type QuizSubmission struct {
	ID              int64      `json:"id"`
	QuizID          int64      `json:"quiz_id"`
	UserID          int64      `json:"user_id"`
	SubmissionID    int64      `json:"submission_id,omitempty"`
	Attempt         int        `json:"attempt"`
	ValidationToken string     `json:"validation_token,omitempty"`
	WorkflowState   string     `json:"workflow_state"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Score           *float64   `json:"score,omitempty"`
	KeptScore       *float64   `json:"kept_score,omitempty"`
}

// QuizMatch pairs a left-hand answer with a match for matching questions.
type QuizMatch struct {
	AnswerID int64 `json:"answer_id"`
	MatchID  int64 `json:"match_id"`
}

// QuizAnswerSubmission is the answer to one question of a quiz attempt.
// AnswerID takes precedence over Answer, which takes precedence over Match.
type QuizAnswerSubmission struct {
	QuestionID int64       `json:"question_id" validate:"required"`
	AnswerID   *int64      `json:"answer_id,omitempty"`
	Answer     any         `json:"answer,omitempty"`
	Match      []QuizMatch `json:"match,omitempty"`
}

// Scope is an API token scope.
type Scope struct {
	Resource     string `json:"resource"`
	ResourceName string `json:"resource_name,omitempty"`
	Controller   string `json:"controller,omitempty"`
	Action       string `json:"action,omitempty"`
	Verb         string `json:"verb"`
	Scope        string `json:"scope"`
	Path         string `json:"path,omitempty"`
}

// Account is a Canvas account.
type Account struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	UUID            string `json:"uuid,omitempty"`
	ParentAccountID *int64 `json:"parent_account_id,omitempty"`
	RootAccountID   *int64 `json:"root_account_id,omitempty"`
	WorkflowState   string `json:"workflow_state,omitempty"`
	DefaultTimeZone string `json:"default_time_zone,omitempty"`
	SISAccountID    string `json:"sis_account_id,omitempty"`
}

// ReportDescription describes a report type available on an account.
type ReportDescription struct {
	Report     string          `json:"report"`
	Title      string          `json:"title"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	LastRun    json.RawMessage `json:"last_run,omitempty"`
}

// Report is a generated account report.
type Report struct {
	ID         int64           `json:"id"`
	Report     string          `json:"report"`
	Status     string          `json:"status"`
	Progress   int             `json:"progress"`
	FileURL    string          `json:"file_url,omitempty"`
	Attachment json.RawMessage `json:"attachment,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
}

// PageInfo describes where a single-page listing sits in the collection.
type PageInfo struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages,omitempty"`
	NextPage    int `json:"next_page,omitempty"`
	PrevPage    int `json:"prev_page,omitempty"`
}

// AccountUsersPage is one page of account users.
type AccountUsersPage struct {
	Users      []User   `json:"users"`
	Pagination PageInfo `json:"pagination"`
}
