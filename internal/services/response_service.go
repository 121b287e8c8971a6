package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labelkit/labelkit/internal/models"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error)
	GetAssignment(id string) (*models.Assignment, error)
	UpdateAssignment(a *models.Assignment) error
	CountResponsesByAssignment(assignmentID string) (int, error)
	GetResponseForQuestion(assignmentID string, questionIndex int) (*models.Response, error)
	InsertResponse(r *models.Response) error
	UpdateResponse(r *models.Response) error
	ListResponsesForUser(userID, taskID string) ([]*models.Response, error)
	ListResponsesForTask(taskID string) ([]*models.Response, error)
	GetStats(userID string) (*models.UserStats, error)
	UpsertStats(st *models.UserStats) error
}

// SubmitRequest carries one answered question into the intake workflow.
type SubmitRequest struct {
	TaskID         string
	QuestionIndex  int
	Answers        map[string][]string
	Confidence     *int
	ElapsedSeconds *int
	StartedAt      *time.Time
	Metadata       map[string]any
}

// SubmitResult pairs the stored response with the assignment progress
// observed right after intake.
type SubmitResult struct {
	Response       *models.Response `json:"response"`
	TaskID         string           `json:"task_id"`
	CompletedCount int              `json:"completed_labels"`
	TotalQuestions int              `json:"total_questions"`
}

// ResponseService hosts the response intake workflow. Submissions are
// idempotent per (assignment, question index): the first write creates the
// row and advances progress, later writes overwrite in place.
type ResponseService struct {
	store       ResponseStore
	now         func() time.Time
	idGenerator func() string
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Submit validates the submission against the caller's assignment and
// upserts the response. Progress recompute and labeler stats run only on
// first-time inserts; their failures are logged and never fail a
// submission whose row is already stored.
func (s *ResponseService) Submit(userID string, req SubmitRequest) (*SubmitResult, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("authentication required")
	}
	if req.TaskID == "" {
		return nil, NewInvalidError("task_id required")
	}
	if req.QuestionIndex < 0 {
		return nil, NewInvalidError("question_index must be >= 0")
	}

	assignment, err := s.resolveAssignment(req.TaskID, userID)
	if err != nil {
		return nil, err
	}
	if !assignment.IsActive {
		return nil, NewAssignmentInactiveError("assignment is not active")
	}
	if assignment.CompletedCount >= assignment.Span() {
		return nil, NewAssignmentCompleteError("assignment already complete")
	}
	if !assignment.Covers(req.QuestionIndex) {
		return nil, NewOutOfRangeError(fmt.Sprintf(
			"question %d is outside the assigned range %d-%d",
			req.QuestionIndex, assignment.RangeStart, assignment.RangeEnd))
	}
	if err := validateAnswers(req); err != nil {
		return nil, err
	}

	existing, err := s.store.GetResponseForQuestion(assignment.ID, req.QuestionIndex)
	if err != nil {
		return nil, NewStorageError("loading response", err)
	}

	submittedAt := s.now()
	var resp *models.Response
	if existing == nil {
		resp = &models.Response{
			ID:             s.idGenerator(),
			AssignmentID:   assignment.ID,
			UserID:         userID,
			QuestionIndex:  req.QuestionIndex,
			Answers:        req.Answers,
			Confidence:     req.Confidence,
			ElapsedSeconds: req.ElapsedSeconds,
			StartedAt:      req.StartedAt,
			SubmittedAt:    submittedAt,
			Metadata:       req.Metadata,
		}
		if err := s.store.InsertResponse(resp); err != nil {
			return nil, NewStorageError("saving response", err)
		}
		if updated, err := recomputeProgress(s.store, assignment.ID, submittedAt); err != nil {
			log.Printf("response service: recompute progress for %s: %v", assignment.ID, err)
		} else {
			assignment = updated
		}
		if err := bumpLabelerStats(s.store, userID, submittedAt); err != nil {
			log.Printf("response service: update stats for %s: %v", userID, err)
		}
	} else {
		existing.Answers = req.Answers
		existing.Confidence = req.Confidence
		existing.ElapsedSeconds = req.ElapsedSeconds
		if req.StartedAt != nil {
			existing.StartedAt = req.StartedAt
		}
		if req.Metadata != nil {
			existing.Metadata = req.Metadata
		}
		existing.SubmittedAt = submittedAt
		if err := s.store.UpdateResponse(existing); err != nil {
			return nil, NewStorageError("updating response", err)
		}
		resp = existing
	}

	return &SubmitResult{
		Response:       resp,
		TaskID:         req.TaskID,
		CompletedCount: assignment.CompletedCount,
		TotalQuestions: assignment.Span(),
	}, nil
}

// ListForUser returns the labeler's own submissions, optionally narrowed to
// one task. taskID may be empty.
func (s *ResponseService) ListForUser(userID, taskID string) ([]*models.Response, error) {
	list, err := s.store.ListResponsesForUser(userID, taskID)
	if err != nil {
		return nil, NewStorageError("listing responses", err)
	}
	return list, nil
}

// GetForQuestion returns the labeler's prior answer for a question, or nil
// when the question has not been answered yet.
func (s *ResponseService) GetForQuestion(userID, taskID string, questionIndex int) (*models.Response, error) {
	assignment, err := s.resolveAssignment(taskID, userID)
	if err != nil {
		return nil, err
	}
	resp, err := s.store.GetResponseForQuestion(assignment.ID, questionIndex)
	if err != nil {
		return nil, NewStorageError("loading response", err)
	}
	return resp, nil
}

// ListForTask returns every response submitted for the task across all of
// its assignments, ordered by submission time.
func (s *ResponseService) ListForTask(taskID string) ([]*models.Response, error) {
	list, err := s.store.ListResponsesForTask(taskID)
	if err != nil {
		return nil, NewStorageError("listing responses", err)
	}
	return list, nil
}

func (s *ResponseService) resolveAssignment(taskID, userID string) (*models.Assignment, error) {
	list, err := s.store.AssignmentsForTaskUser(taskID, userID)
	if err != nil {
		return nil, NewStorageError("loading assignment", err)
	}
	if len(list) == 0 {
		return nil, NewNoAssignmentError("no assignment for this task")
	}
	if len(list) > 1 {
		log.Printf("response service: user %s has %d assignments for task %s, using first", userID, len(list), taskID)
	}
	return list[0], nil
}

func validateAnswers(req SubmitRequest) error {
	if len(req.Answers) == 0 {
		return NewInvalidAnswerError("answers required")
	}
	for category, selected := range req.Answers {
		if strings.TrimSpace(category) == "" {
			return NewInvalidAnswerError("answer category name must not be empty")
		}
		if len(selected) == 0 {
			return NewInvalidAnswerError("category " + category + " has no selection")
		}
		for _, v := range selected {
			if strings.TrimSpace(v) == "" {
				return NewInvalidAnswerError("category " + category + " contains an empty selection")
			}
		}
	}
	if req.Confidence != nil && (*req.Confidence < 1 || *req.Confidence > 5) {
		return NewInvalidAnswerError("confidence must be between 1 and 5")
	}
	if req.ElapsedSeconds != nil && *req.ElapsedSeconds < 0 {
		return NewInvalidAnswerError("elapsed_seconds must be >= 0")
	}
	return nil
}
