package models

import "time"

// TaskStatus tracks the lifecycle of a labeling task.
type TaskStatus string

const (
	TaskStatusDraft     TaskStatus = "draft"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusDraft, TaskStatusActive, TaskStatusPaused, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority orders tasks in labeler dashboards.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// CategoryChoice is one labeling category inside a question template.
// Options are the selectable values; MultipleSelect allows more than one.
type CategoryChoice struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	MultipleSelect bool     `json:"multiple_select,omitempty"`
}

// QuestionTemplate is the shared shape of every question in a task.
// Choices maps a category name to its choice definition.
type QuestionTemplate struct {
	QuestionText string                    `json:"question_text"`
	Choices      map[string]CategoryChoice `json:"choices"`
}

// Task is a labeling campaign: a template applied across QuestionCount questions.
type Task struct {
	ID                     string            `json:"id"`
	Title                  string            `json:"title"`
	Description            string            `json:"description,omitempty"`
	Instructions           string            `json:"instructions,omitempty"`
	Status                 TaskStatus        `json:"status"`
	Priority               TaskPriority      `json:"priority,omitempty"`
	QuestionCount          int               `json:"question_count"`
	RequiredAgreementCount int               `json:"required_agreement_count,omitempty"`
	Template               *QuestionTemplate `json:"question_template,omitempty"`
	ExampleMedia           []string          `json:"example_media,omitempty"`
	RuleDescription        string            `json:"rule_description,omitempty"`
	Deadline               *time.Time        `json:"deadline,omitempty"`
	CreatedBy              string            `json:"created_by,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
	Metadata               map[string]any    `json:"metadata,omitempty"`
}

// Assignment binds a labeler to a 1-based inclusive question range of a task.
type Assignment struct {
	ID             string     `json:"id"`
	TaskID         string     `json:"task_id"`
	UserID         string     `json:"user_id"`
	RangeStart     int        `json:"question_range_start"`
	RangeEnd       int        `json:"question_range_end"`
	CompletedCount int        `json:"completed_labels"`
	IsActive       bool       `json:"is_active"`
	AssignedAt     time.Time  `json:"assigned_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Span is the number of questions covered by the assignment range.
func (a *Assignment) Span() int {
	return a.RangeEnd - a.RangeStart + 1
}

// Covers reports whether the 0-based question index falls inside the range.
func (a *Assignment) Covers(questionIndex int) bool {
	return questionIndex >= a.RangeStart-1 && questionIndex <= a.RangeEnd-1
}

// AssignmentDetail joins an assignment with task and labeler display fields.
type AssignmentDetail struct {
	Assignment
	TaskTitle string `json:"task_title"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// Response is a labeler's answer set for one question of an assignment.
// Exactly one row exists per (assignment, question index); resubmission
// overwrites in place.
type Response struct {
	ID             string              `json:"id"`
	AssignmentID   string              `json:"assignment_id"`
	UserID         string              `json:"user_id"`
	QuestionIndex  int                 `json:"question_index"`
	Answers        map[string][]string `json:"answers"`
	Confidence     *int                `json:"confidence,omitempty"`
	ElapsedSeconds *int                `json:"elapsed_seconds,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	SubmittedAt    time.Time           `json:"submitted_at"`
	IsHoneypot     bool                `json:"is_honeypot,omitempty"`
	IsFlagged      bool                `json:"is_flagged,omitempty"`
	FlagReason     string              `json:"flag_reason,omitempty"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
}

// QuestionView materializes the task template as a single question.
type QuestionView struct {
	TaskID         string                    `json:"task_id"`
	QuestionIndex  int                       `json:"question_index"`
	QuestionText   string                    `json:"question_text"`
	Choices        map[string]CategoryChoice `json:"choices"`
	ExampleMedia   []string                  `json:"example_media,omitempty"`
	TotalQuestions int                       `json:"total_questions"`
}

// LabelClass is a reusable label definition shared across tasks.
type LabelClass struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
