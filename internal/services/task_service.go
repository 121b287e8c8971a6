package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labelkit/labelkit/internal/models"
)

// TaskStore abstracts persistence operations required by TaskService.
type TaskStore interface {
	InsertTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	FindTaskByTitle(title string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	DeleteTask(id string) error
	ListTasks() ([]*models.Task, error)
	ListTasksCreatedBy(userID string) ([]*models.Task, error)
	ListTaskIDsAssignedTo(userID string) ([]string, error)
	AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error)
	DeleteResponsesByTask(taskID string) (int, error)
	DeleteAssignmentsByTask(taskID string) (int, error)
	DeleteQuestionsByTask(taskID string) (int, error)
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title                  string
	Description            string
	Instructions           string
	QuestionCount          int
	RequiredAgreementCount int
	Priority               models.TaskPriority
	Template               *models.QuestionTemplate
	ExampleMedia           []string
	RuleDescription        string
	Deadline               *time.Time
	Metadata               map[string]any
}

// TaskUpdate carries a partial update; nil fields stay unchanged.
type TaskUpdate struct {
	Title                  *string
	Description            *string
	Instructions           *string
	Status                 *models.TaskStatus
	Priority               *models.TaskPriority
	QuestionCount          *int
	RequiredAgreementCount *int
	Template               *models.QuestionTemplate
	ExampleMedia           []string
	RuleDescription        *string
	Deadline               *time.Time
	Metadata               map[string]any
}

// TaskDeleteResult reports what the delete cascade removed.
type TaskDeleteResult struct {
	ResponsesDeleted   int `json:"responses_deleted"`
	AssignmentsDeleted int `json:"assignments_deleted"`
	QuestionsDeleted   int `json:"questions_deleted"`
}

// TaskService manages labeling tasks and their question templates.
type TaskService struct {
	store       TaskStore
	now         func() time.Time
	idGenerator func() string
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Create inserts a new task in draft status. Titles are unique across all
// tasks regardless of creator.
func (s *TaskService) Create(createdBy string, in TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, NewInvalidError("title required")
	}
	if in.QuestionCount <= 0 {
		return nil, NewInvalidError("question_count must be > 0")
	}
	if in.RequiredAgreementCount == 0 {
		in.RequiredAgreementCount = 3
	}
	if in.RequiredAgreementCount < 1 || in.RequiredAgreementCount > 10 {
		return nil, NewInvalidError("required_agreement_count must be between 1 and 10")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, NewInvalidError("invalid priority")
	}
	if in.Template != nil {
		if err := normalizeTemplate(in.Template); err != nil {
			return nil, err
		}
	}
	existing, err := s.store.FindTaskByTitle(in.Title)
	if err != nil {
		return nil, NewStorageError("checking task title", err)
	}
	if existing != nil {
		return nil, NewConflictError("a task with this title already exists")
	}
	now := s.now()
	t := &models.Task{
		ID:                     s.idGenerator(),
		Title:                  in.Title,
		Description:            in.Description,
		Instructions:           in.Instructions,
		Status:                 models.TaskStatusDraft,
		Priority:               in.Priority,
		QuestionCount:          in.QuestionCount,
		RequiredAgreementCount: in.RequiredAgreementCount,
		Template:               in.Template,
		ExampleMedia:           in.ExampleMedia,
		RuleDescription:        in.RuleDescription,
		Deadline:               in.Deadline,
		CreatedBy:              createdBy,
		CreatedAt:              now,
		UpdatedAt:              now,
		Metadata:               in.Metadata,
	}
	if err := s.store.InsertTask(t); err != nil {
		return nil, NewStorageError("creating task", err)
	}
	return t, nil
}

// CreateWithTemplate creates a task whose questions are generated from a
// shared template; the template is mandatory on this path.
func (s *TaskService) CreateWithTemplate(createdBy string, in TaskInput) (*models.Task, error) {
	if in.Template == nil {
		return nil, NewInvalidError("question_template required")
	}
	return s.Create(createdBy, in)
}

func (s *TaskService) Get(id string) (*models.Task, error) {
	t, err := s.store.GetTask(id)
	if err != nil {
		return nil, NewStorageError("loading task", err)
	}
	if t == nil {
		return nil, NewNotFoundError("task not found")
	}
	return t, nil
}

// ListForUser applies role-aware visibility: admins see every task, other
// roles see tasks they created or are assigned to. Newest first.
func (s *TaskService) ListForUser(user *models.UserProfile) ([]*models.Task, error) {
	if user == nil {
		return nil, NewUnauthorizedError("authentication required")
	}
	if user.Role == models.RoleAdmin {
		list, err := s.store.ListTasks()
		if err != nil {
			return nil, NewStorageError("listing tasks", err)
		}
		sortTasksNewestFirst(list)
		return list, nil
	}
	created, err := s.store.ListTasksCreatedBy(user.ID)
	if err != nil {
		return nil, NewStorageError("listing tasks", err)
	}
	assignedIDs, err := s.store.ListTaskIDsAssignedTo(user.ID)
	if err != nil {
		return nil, NewStorageError("listing assigned tasks", err)
	}
	seen := make(map[string]bool, len(created))
	out := make([]*models.Task, 0, len(created)+len(assignedIDs))
	for _, t := range created {
		seen[t.ID] = true
		out = append(out, t)
	}
	for _, id := range assignedIDs {
		if seen[id] {
			continue
		}
		t, err := s.store.GetTask(id)
		if err != nil {
			return nil, NewStorageError("loading task", err)
		}
		if t != nil {
			seen[id] = true
			out = append(out, t)
		}
	}
	sortTasksNewestFirst(out)
	return out, nil
}

// Update applies a partial update. Renames are checked against every other
// task's title.
func (s *TaskService) Update(id string, up TaskUpdate) (*models.Task, error) {
	t, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if up.Title != nil {
		title := strings.TrimSpace(*up.Title)
		if title == "" {
			return nil, NewInvalidError("title required")
		}
		if title != t.Title {
			other, err := s.store.FindTaskByTitle(title)
			if err != nil {
				return nil, NewStorageError("checking task title", err)
			}
			if other != nil && other.ID != id {
				return nil, NewConflictError("a task with this title already exists")
			}
		}
		t.Title = title
	}
	if up.Description != nil {
		t.Description = *up.Description
	}
	if up.Instructions != nil {
		t.Instructions = *up.Instructions
	}
	if up.Status != nil {
		if !up.Status.Valid() {
			return nil, NewInvalidError("invalid status")
		}
		t.Status = *up.Status
	}
	if up.Priority != nil {
		if !up.Priority.Valid() {
			return nil, NewInvalidError("invalid priority")
		}
		t.Priority = *up.Priority
	}
	if up.QuestionCount != nil {
		if *up.QuestionCount <= 0 {
			return nil, NewInvalidError("question_count must be > 0")
		}
		t.QuestionCount = *up.QuestionCount
	}
	if up.RequiredAgreementCount != nil {
		if *up.RequiredAgreementCount < 1 || *up.RequiredAgreementCount > 10 {
			return nil, NewInvalidError("required_agreement_count must be between 1 and 10")
		}
		t.RequiredAgreementCount = *up.RequiredAgreementCount
	}
	if up.Template != nil {
		if err := normalizeTemplate(up.Template); err != nil {
			return nil, err
		}
		t.Template = up.Template
	}
	if up.ExampleMedia != nil {
		t.ExampleMedia = up.ExampleMedia
	}
	if up.RuleDescription != nil {
		t.RuleDescription = *up.RuleDescription
	}
	if up.Deadline != nil {
		t.Deadline = up.Deadline
	}
	if up.Metadata != nil {
		t.Metadata = up.Metadata
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTask(t); err != nil {
		return nil, NewStorageError("updating task", err)
	}
	return t, nil
}

// UpdateWithTemplate replaces the task's question template along with the
// usual partial update.
func (s *TaskService) UpdateWithTemplate(id string, up TaskUpdate) (*models.Task, error) {
	if up.Template == nil {
		return nil, NewInvalidError("question_template required")
	}
	return s.Update(id, up)
}

// Delete removes the task and everything hanging off it, child rows first:
// responses, then assignments, then generated question rows, then the task.
func (s *TaskService) Delete(id string) (*TaskDeleteResult, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	res := &TaskDeleteResult{}
	var err error
	if res.ResponsesDeleted, err = s.store.DeleteResponsesByTask(id); err != nil {
		return nil, NewStorageError("deleting task responses", err)
	}
	if res.AssignmentsDeleted, err = s.store.DeleteAssignmentsByTask(id); err != nil {
		return nil, NewStorageError("deleting task assignments", err)
	}
	if res.QuestionsDeleted, err = s.store.DeleteQuestionsByTask(id); err != nil {
		return nil, NewStorageError("deleting task questions", err)
	}
	if err := s.store.DeleteTask(id); err != nil {
		return nil, NewStorageError("deleting task", err)
	}
	return res, nil
}

// AccessibleBy loads the task and enforces visibility: admins always pass,
// other roles must have created the task or hold an assignment on it.
func (s *TaskService) AccessibleBy(user *models.UserProfile, taskID string) (*models.Task, error) {
	if user == nil {
		return nil, NewUnauthorizedError("authentication required")
	}
	t, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin || t.CreatedBy == user.ID {
		return t, nil
	}
	assignments, err := s.store.AssignmentsForTaskUser(taskID, user.ID)
	if err != nil {
		return nil, NewStorageError("checking task access", err)
	}
	if len(assignments) == 0 {
		return nil, NewForbiddenError("access to this task is not allowed")
	}
	return t, nil
}

// QuestionView materializes the template as the question at the 0-based
// index, bounds-checked against the task's question count.
func (s *TaskService) QuestionView(taskID string, index int) (*models.QuestionView, error) {
	t, err := s.Get(taskID)
	if err != nil {
		return nil, err
	}
	if t.Template == nil {
		return nil, NewNotFoundError("task has no question template")
	}
	if index < 0 || index >= t.QuestionCount {
		return nil, NewNotFoundError("question not found")
	}
	return &models.QuestionView{
		TaskID:         t.ID,
		QuestionIndex:  index,
		QuestionText:   t.Template.QuestionText,
		Choices:        t.Template.Choices,
		ExampleMedia:   t.ExampleMedia,
		TotalQuestions: t.QuestionCount,
	}, nil
}

// normalizeTemplate validates the template and guarantees every category
// offers a leading "None" option so labelers can opt out explicitly.
func normalizeTemplate(tpl *models.QuestionTemplate) error {
	if strings.TrimSpace(tpl.QuestionText) == "" {
		return NewInvalidError("question_text required")
	}
	if len(tpl.Choices) == 0 {
		return NewInvalidError("question template needs at least one category")
	}
	for name, choice := range tpl.Choices {
		if strings.TrimSpace(name) == "" {
			return NewInvalidError("category name must not be empty")
		}
		if len(choice.Options) == 0 {
			return NewInvalidError("category " + name + " needs at least one option")
		}
		hasNone := false
		for _, opt := range choice.Options {
			if opt == "None" {
				hasNone = true
				break
			}
		}
		if !hasNone {
			choice.Options = append([]string{"None"}, choice.Options...)
			tpl.Choices[name] = choice
		}
	}
	return nil
}

func sortTasksNewestFirst(list []*models.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
