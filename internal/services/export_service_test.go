package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

type stubExportStore struct {
	tasks     map[string]*models.Task
	responses map[string][]*models.Response
	details   []*models.AssignmentDetail
}

func newStubExportStore() *stubExportStore {
	return &stubExportStore{
		tasks:     map[string]*models.Task{},
		responses: map[string][]*models.Response{},
	}
}

func (s *stubExportStore) GetTask(id string) (*models.Task, error) { return s.tasks[id], nil }

func (s *stubExportStore) ListResponsesForTask(taskID string) ([]*models.Response, error) {
	return s.responses[taskID], nil
}

func (s *stubExportStore) ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error) {
	return s.details, nil
}

func newTestExportService(store *stubExportStore) *ExportService {
	svc := NewExportService(store)
	svc.now = func() time.Time { return testClock }
	return svc
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parsing rendered csv: %v", err)
	}
	return rows
}

func TestTaskResponsesCSV(t *testing.T) {
	store := newStubExportStore()
	store.tasks["T1"] = &models.Task{ID: "T1", Title: "Defect Review"}
	elapsed := 42
	store.responses["T1"] = []*models.Response{
		{
			ID: "R1", UserID: "U1", AssignmentID: "A1", QuestionIndex: 0,
			Answers:        map[string][]string{"surface": {"Edge", "Center"}, "severity": {"Minor"}},
			ElapsedSeconds: &elapsed,
			SubmittedAt:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			ID: "R2", UserID: "U1", AssignmentID: "A1", QuestionIndex: 1,
			Answers:     map[string][]string{"severity": {"Major"}},
			SubmittedAt: time.Date(2025, 6, 1, 9, 31, 0, 0, time.UTC),
		},
	}
	svc := newTestExportService(store)

	file, err := svc.TaskResponsesCSV("T1")
	if err != nil {
		t.Fatalf("TaskResponsesCSV returned error: %v", err)
	}
	if file.Filename != "Defect_Review_responses_2025-06-01.csv" {
		t.Fatalf("filename = %q", file.Filename)
	}
	if file.ContentType != "text/csv" {
		t.Fatalf("content type = %q", file.ContentType)
	}

	rows := parseCSV(t, file.Data)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	wantHeader := []string{"response_id", "user_id", "assignment_id", "question_index", "submitted_at", "elapsed_seconds", "answers_json", "answer_severity", "answer_surface"}
	if len(rows[0]) != len(wantHeader) {
		t.Fatalf("header = %v, want %v", rows[0], wantHeader)
	}
	for i := range wantHeader {
		if rows[0][i] != wantHeader[i] {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], wantHeader[i])
		}
	}

	first := rows[1]
	if first[0] != "R1" || first[3] != "0" || first[4] != "2025-06-01T09:30:00Z" || first[5] != "42" {
		t.Fatalf("first row = %v", first)
	}
	if first[7] != "Minor" {
		t.Fatalf("answer_severity = %q, want Minor", first[7])
	}
	if first[8] != "Edge;Center" {
		t.Fatalf("answer_surface = %q, want multi-select joined with ;", first[8])
	}

	second := rows[2]
	if second[5] != "" {
		t.Fatalf("elapsed_seconds = %q, want empty for nil", second[5])
	}
	if second[8] != "" {
		t.Fatalf("answer_surface = %q, want empty for missing category", second[8])
	}
}

func TestTaskResponsesCSVEmptyTask(t *testing.T) {
	store := newStubExportStore()
	store.tasks["T1"] = &models.Task{ID: "T1", Title: "No Answers Yet!"}
	svc := newTestExportService(store)

	file, err := svc.TaskResponsesCSV("T1")
	if err != nil {
		t.Fatalf("TaskResponsesCSV returned error: %v", err)
	}
	if file.Filename != "No_Answers_Yet_responses_2025-06-01.csv" {
		t.Fatalf("filename = %q, want punctuation stripped", file.Filename)
	}
	rows := parseCSV(t, file.Data)
	if len(rows) != 1 || len(rows[0]) != 7 {
		t.Fatalf("empty export rows = %v, want fixed header only", rows)
	}

	_, err = svc.TaskResponsesCSV("missing")
	wantCode(t, err, ErrorNotFound)
}

func TestTaskResponsesJSON(t *testing.T) {
	store := newStubExportStore()
	store.tasks["T1"] = &models.Task{ID: "T1", Title: "Defect Review", Description: "pilot batch"}
	store.responses["T1"] = []*models.Response{
		{ID: "R1", UserID: "U1", AssignmentID: "A1", Answers: map[string][]string{"severity": {"Minor"}}, SubmittedAt: testClock},
	}
	svc := newTestExportService(store)

	file, err := svc.TaskResponsesJSON("T1")
	if err != nil {
		t.Fatalf("TaskResponsesJSON returned error: %v", err)
	}
	if file.Filename != "Defect_Review_responses_2025-06-01.json" {
		t.Fatalf("filename = %q", file.Filename)
	}
	if file.ContentType != "application/json" {
		t.Fatalf("content type = %q", file.ContentType)
	}

	var doc TaskExportDocument
	if err := json.Unmarshal(file.Data, &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if doc.TaskInfo.TaskID != "T1" || doc.TaskInfo.Title != "Defect Review" {
		t.Fatalf("task_info = %+v", doc.TaskInfo)
	}
	if doc.TaskInfo.TotalResponses != 1 || len(doc.Responses) != 1 {
		t.Fatalf("responses = %d, total = %d, want 1/1", len(doc.Responses), doc.TaskInfo.TotalResponses)
	}
	if !doc.TaskInfo.ExportedAt.Equal(testClock) {
		t.Fatalf("exported_at = %v, want %v", doc.TaskInfo.ExportedAt, testClock)
	}
}

func TestAssignmentsCSV(t *testing.T) {
	store := newStubExportStore()
	done := testClock.Add(-time.Hour)
	store.details = []*models.AssignmentDetail{
		{
			Assignment: models.Assignment{ID: "A1", RangeStart: 1, RangeEnd: 5, CompletedCount: 5, IsActive: true, CompletedAt: &done, AssignedAt: testClock},
			TaskTitle:  "Defect Review", UserName: "Jordan Kim", UserEmail: "u1@example.com",
		},
		{
			Assignment: models.Assignment{ID: "A2", RangeStart: 6, RangeEnd: 10, CompletedCount: 3, IsActive: true, AssignedAt: testClock},
			TaskTitle:  "Defect Review", UserName: "Sam Lee", UserEmail: "u2@example.com",
		},
		{
			Assignment: models.Assignment{ID: "A3", RangeStart: 11, RangeEnd: 15, IsActive: false, AssignedAt: testClock},
			TaskTitle:  "Defect Review", UserName: "Ash Park", UserEmail: "u3@example.com",
		},
	}
	svc := newTestExportService(store)

	file, err := svc.AssignmentsCSV()
	if err != nil {
		t.Fatalf("AssignmentsCSV returned error: %v", err)
	}
	if file.Filename != "assignments_export_2025-06-01.csv" {
		t.Fatalf("filename = %q", file.Filename)
	}

	rows := parseCSV(t, file.Data)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[1][6] != "5/5" || rows[1][7] != "completed" {
		t.Fatalf("completed row = %v", rows[1])
	}
	if rows[2][6] != "3/5" || rows[2][7] != "active" {
		t.Fatalf("active row = %v", rows[2])
	}
	if rows[3][7] != "inactive" {
		t.Fatalf("inactive row = %v", rows[3])
	}
}

func TestAssignmentsJSON(t *testing.T) {
	store := newStubExportStore()
	store.details = []*models.AssignmentDetail{
		{Assignment: models.Assignment{ID: "A1", RangeStart: 1, RangeEnd: 5, AssignedAt: testClock}, TaskTitle: "Defect Review"},
	}
	svc := newTestExportService(store)

	file, err := svc.AssignmentsJSON()
	if err != nil {
		t.Fatalf("AssignmentsJSON returned error: %v", err)
	}
	var doc AssignmentExportDocument
	if err := json.Unmarshal(file.Data, &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if doc.TotalAssignments != 1 || len(doc.Assignments) != 1 {
		t.Fatalf("doc = %+v, want one assignment", doc)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Defect Review", "Defect_Review"},
		{"Defect Review!", "Defect_Review"},
		{"task/../../etc", "tasketc"},
		{"///", "task"},
		{"a-b_c 1", "a-b_c_1"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
