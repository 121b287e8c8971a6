package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// ExportStore abstracts persistence operations required by ExportService.
type ExportStore interface {
	GetTask(id string) (*models.Task, error)
	ListResponsesForTask(taskID string) ([]*models.Response, error)
	ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error)
}

// ExportFile is a rendered download ready to stream as an attachment.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// TaskExportInfo heads the JSON export document.
type TaskExportInfo struct {
	TaskID         string    `json:"task_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	ExportedAt     time.Time `json:"exported_at"`
	TotalResponses int       `json:"total_responses"`
}

// TaskExportDocument is the JSON export shape for task responses.
type TaskExportDocument struct {
	TaskInfo  TaskExportInfo     `json:"task_info"`
	Responses []*models.Response `json:"responses"`
}

// AssignmentExportDocument is the JSON export shape for the assignment
// overview.
type AssignmentExportDocument struct {
	ExportedAt       time.Time                  `json:"exported_at"`
	TotalAssignments int                        `json:"total_assignments"`
	Assignments      []*models.AssignmentDetail `json:"assignments"`
}

// ExportService renders task responses and assignment overviews as CSV or
// JSON downloads.
type ExportService struct {
	store ExportStore
	now   func() time.Time
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TaskResponsesCSV renders every response of the task as CSV. Beyond the
// fixed columns, one answer_<category> column is emitted per category seen
// in the first response; multi-selects are joined with ";". An empty result
// still produces the fixed header.
func (s *ExportService) TaskResponsesCSV(taskID string) (*ExportFile, error) {
	task, responses, err := s.loadTaskResponses(taskID)
	if err != nil {
		return nil, err
	}

	var categories []string
	if len(responses) > 0 {
		for cat := range responses[0].Answers {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"response_id", "user_id", "assignment_id", "question_index", "submitted_at", "elapsed_seconds", "answers_json"}
	for _, cat := range categories {
		header = append(header, "answer_"+cat)
	}
	if err := w.Write(header); err != nil {
		return nil, NewStorageError("writing csv header", err)
	}
	for _, r := range responses {
		elapsed := ""
		if r.ElapsedSeconds != nil {
			elapsed = strconv.Itoa(*r.ElapsedSeconds)
		}
		answersJSON, err := json.Marshal(r.Answers)
		if err != nil {
			return nil, NewStorageError("encoding answers", err)
		}
		rec := []string{
			r.ID,
			r.UserID,
			r.AssignmentID,
			strconv.Itoa(r.QuestionIndex),
			r.SubmittedAt.UTC().Format(time.RFC3339),
			elapsed,
			string(answersJSON),
		}
		for _, cat := range categories {
			rec = append(rec, strings.Join(r.Answers[cat], ";"))
		}
		if err := w.Write(rec); err != nil {
			return nil, NewStorageError("writing csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, NewStorageError("rendering csv", err)
	}
	return &ExportFile{
		Filename:    s.taskFilename(task.Title, "csv"),
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

// TaskResponsesJSON renders the task's responses as a JSON document with a
// task_info header.
func (s *ExportService) TaskResponsesJSON(taskID string) (*ExportFile, error) {
	task, responses, err := s.loadTaskResponses(taskID)
	if err != nil {
		return nil, err
	}
	doc := TaskExportDocument{
		TaskInfo: TaskExportInfo{
			TaskID:         task.ID,
			Title:          task.Title,
			Description:    task.Description,
			ExportedAt:     s.now(),
			TotalResponses: len(responses),
		},
		Responses: responses,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, NewStorageError("encoding export", err)
	}
	return &ExportFile{
		Filename:    s.taskFilename(task.Title, "json"),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// AssignmentsCSV renders the full assignment overview for admin reporting.
func (s *ExportService) AssignmentsCSV() (*ExportFile, error) {
	details, err := s.store.ListAssignmentDetails(0, 0)
	if err != nil {
		return nil, NewStorageError("listing assignments", err)
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"assignment_id", "task_title", "user_name", "user_email", "question_range_start", "question_range_end", "progress", "status", "assigned_at"}
	if err := w.Write(header); err != nil {
		return nil, NewStorageError("writing csv header", err)
	}
	for _, d := range details {
		rec := []string{
			d.ID,
			d.TaskTitle,
			d.UserName,
			d.UserEmail,
			strconv.Itoa(d.RangeStart),
			strconv.Itoa(d.RangeEnd),
			strconv.Itoa(d.CompletedCount) + "/" + strconv.Itoa(d.Span()),
			assignmentStatus(&d.Assignment),
			d.AssignedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, NewStorageError("writing csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, NewStorageError("rendering csv", err)
	}
	return &ExportFile{
		Filename:    "assignments_export_" + s.now().Format("2006-01-02") + ".csv",
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

// AssignmentsJSON renders the assignment overview as a JSON document.
func (s *ExportService) AssignmentsJSON() (*ExportFile, error) {
	details, err := s.store.ListAssignmentDetails(0, 0)
	if err != nil {
		return nil, NewStorageError("listing assignments", err)
	}
	doc := AssignmentExportDocument{
		ExportedAt:       s.now(),
		TotalAssignments: len(details),
		Assignments:      details,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, NewStorageError("encoding export", err)
	}
	return &ExportFile{
		Filename:    "assignments_export_" + s.now().Format("2006-01-02") + ".json",
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func (s *ExportService) loadTaskResponses(taskID string) (*models.Task, []*models.Response, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, nil, NewStorageError("loading task", err)
	}
	if task == nil {
		return nil, nil, NewNotFoundError("task not found")
	}
	responses, err := s.store.ListResponsesForTask(taskID)
	if err != nil {
		return nil, nil, NewStorageError("listing responses", err)
	}
	return task, responses, nil
}

func (s *ExportService) taskFilename(title, ext string) string {
	return sanitizeFilename(title) + "_responses_" + s.now().Format("2006-01-02") + "." + ext
}

func assignmentStatus(a *models.Assignment) string {
	switch {
	case a.CompletedAt != nil:
		return "completed"
	case a.IsActive:
		return "active"
	default:
		return "inactive"
	}
}

// sanitizeFilename keeps letters, digits, spaces, dashes and underscores,
// then turns spaces into underscores.
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "task"
	}
	return strings.ReplaceAll(name, " ", "_")
}
