package services

import (
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/labelkit/labelkit/internal/models"
)

// AssignmentStore abstracts persistence operations required by AssignmentService.
type AssignmentStore interface {
	GetTask(id string) (*models.Task, error)
	GetProfile(id string) (*models.UserProfile, error)
	InsertAssignment(a *models.Assignment) error
	GetAssignment(id string) (*models.Assignment, error)
	AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error)
	ListAssignmentsForUser(userID string, activeOnly bool) ([]*models.Assignment, error)
	ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error)
	ListAllAssignments() ([]*models.Assignment, error)
	UpdateAssignment(a *models.Assignment) error
	CountResponsesByAssignment(assignmentID string) (int, error)
}

// AssignmentService manages question-range assignments and their progress.
// Progress is always derived from stored response rows; the persisted
// completed_labels value is a cache refreshed by RecomputeProgress.
type AssignmentService struct {
	store       AssignmentStore
	now         func() time.Time
	idGenerator func() string
}

func NewAssignmentService(store AssignmentStore) *AssignmentService {
	return &AssignmentService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// AssignmentStats summarizes all assignments for admin dashboards.
type AssignmentStats struct {
	TotalAssignments     int     `json:"total_assignments"`
	ActiveAssignments    int     `json:"active_assignments"`
	CompletedAssignments int     `json:"completed_assignments"`
	TotalQuestions       int     `json:"total_questions_assigned"`
	TotalCompleted       int     `json:"total_labels_completed"`
	CompletionRate       float64 `json:"completion_rate"`
}

// Create assigns the 1-based inclusive question range [rangeStart, rangeEnd]
// of a task to a labeler. A labeler holds at most one assignment per task.
func (s *AssignmentService) Create(taskID, userID string, rangeStart, rangeEnd int) (*models.Assignment, error) {
	if taskID == "" {
		return nil, NewInvalidError("task_id required")
	}
	if userID == "" {
		return nil, NewInvalidError("user_id required")
	}
	if rangeStart < 1 || rangeEnd < rangeStart {
		return nil, NewInvalidRangeError("question range must satisfy 1 <= start <= end")
	}
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, NewStorageError("loading task", err)
	}
	if task == nil {
		return nil, NewNotFoundError("task not found")
	}
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, NewStorageError("loading user", err)
	}
	if profile == nil {
		return nil, NewNotFoundError("user not found")
	}
	existing, err := s.store.AssignmentsForTaskUser(taskID, userID)
	if err != nil {
		return nil, NewStorageError("checking existing assignments", err)
	}
	if len(existing) > 0 {
		return nil, NewConflictError("user already has an assignment for this task")
	}
	a := &models.Assignment{
		ID:         s.idGenerator(),
		TaskID:     taskID,
		UserID:     userID,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		IsActive:   true,
		AssignedAt: s.now(),
	}
	if err := s.store.InsertAssignment(a); err != nil {
		return nil, NewStorageError("creating assignment", err)
	}
	return a, nil
}

// GetForTaskUser resolves the labeler's assignment on a task. Legacy data may
// hold duplicates; the read stays tolerant and returns the first row. A nil
// assignment with nil error means none exists.
func (s *AssignmentService) GetForTaskUser(taskID, userID string) (*models.Assignment, error) {
	list, err := s.store.AssignmentsForTaskUser(taskID, userID)
	if err != nil {
		return nil, NewStorageError("loading assignment", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	if len(list) > 1 {
		log.Printf("assignment service: user %s has %d assignments for task %s, using first", userID, len(list), taskID)
	}
	return list[0], nil
}

func (s *AssignmentService) Get(id string) (*models.Assignment, error) {
	a, err := s.store.GetAssignment(id)
	if err != nil {
		return nil, NewStorageError("loading assignment", err)
	}
	if a == nil {
		return nil, NewNotFoundError("assignment not found")
	}
	return a, nil
}

// GetWithDetails returns the assignment joined with task and labeler
// display fields for admin views.
func (s *AssignmentService) GetWithDetails(id string) (*models.AssignmentDetail, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	detail := &models.AssignmentDetail{Assignment: *a}
	if task, err := s.store.GetTask(a.TaskID); err != nil {
		return nil, NewStorageError("loading task", err)
	} else if task != nil {
		detail.TaskTitle = task.Title
	}
	if profile, err := s.store.GetProfile(a.UserID); err != nil {
		return nil, NewStorageError("loading user", err)
	} else if profile != nil {
		detail.UserName = profile.FullName
		detail.UserEmail = profile.Email
	}
	return detail, nil
}

func (s *AssignmentService) ListForUser(userID string, activeOnly bool) ([]*models.Assignment, error) {
	list, err := s.store.ListAssignmentsForUser(userID, activeOnly)
	if err != nil {
		return nil, NewStorageError("listing assignments", err)
	}
	return list, nil
}

// UpdateStatus toggles is_active without touching progress counters.
func (s *AssignmentService) UpdateStatus(id string, isActive bool) (*models.Assignment, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	a.IsActive = isActive
	if err := s.store.UpdateAssignment(a); err != nil {
		return nil, NewStorageError("updating assignment status", err)
	}
	return a, nil
}

// SetProgress writes completed_labels directly. Manual overrides are not
// validated against the range span; the next recompute reconciles them.
func (s *AssignmentService) SetProgress(id string, completed int) (*models.Assignment, error) {
	if completed < 0 {
		return nil, NewInvalidError("completed_labels must be >= 0")
	}
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	a.CompletedCount = completed
	if completed >= a.Span() && a.CompletedAt == nil {
		t := s.now()
		a.CompletedAt = &t
	}
	if err := s.store.UpdateAssignment(a); err != nil {
		return nil, NewStorageError("updating assignment progress", err)
	}
	return a, nil
}

// RecomputeProgress counts stored responses for the assignment and persists
// the count as completed_labels. Safe to call any number of times.
func (s *AssignmentService) RecomputeProgress(id string) (*models.Assignment, error) {
	return recomputeProgress(s.store, id, s.now())
}

// Overview lists assignments joined with task titles and labeler identities.
func (s *AssignmentService) Overview(limit, offset int) ([]*models.AssignmentDetail, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.store.ListAssignmentDetails(limit, offset)
	if err != nil {
		return nil, NewStorageError("listing assignments", err)
	}
	return list, nil
}

// Stats aggregates completion totals across every assignment.
func (s *AssignmentService) Stats() (*AssignmentStats, error) {
	list, err := s.store.ListAllAssignments()
	if err != nil {
		return nil, NewStorageError("listing assignments", err)
	}
	stats := &AssignmentStats{TotalAssignments: len(list)}
	for _, a := range list {
		if a.IsActive {
			stats.ActiveAssignments++
		}
		span := a.Span()
		stats.TotalQuestions += span
		stats.TotalCompleted += a.CompletedCount
		if a.CompletedCount >= span {
			stats.CompletedAssignments++
		}
	}
	if stats.TotalQuestions > 0 {
		rate := float64(stats.TotalCompleted) / float64(stats.TotalQuestions) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}
