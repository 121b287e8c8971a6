package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

type stubAssignmentStore struct {
	tasks       map[string]*models.Task
	profiles    map[string]*models.UserProfile
	assignments map[string]*models.Assignment
	byTaskUser  map[string][]*models.Assignment
	counts      map[string]int
	details     []*models.AssignmentDetail
}

func newStubAssignmentStore() *stubAssignmentStore {
	return &stubAssignmentStore{
		tasks:       map[string]*models.Task{},
		profiles:    map[string]*models.UserProfile{},
		assignments: map[string]*models.Assignment{},
		byTaskUser:  map[string][]*models.Assignment{},
		counts:      map[string]int{},
	}
}

func (s *stubAssignmentStore) seed(a *models.Assignment) {
	s.assignments[a.ID] = a
	key := a.TaskID + "|" + a.UserID
	s.byTaskUser[key] = append(s.byTaskUser[key], a)
}

func (s *stubAssignmentStore) GetTask(id string) (*models.Task, error) { return s.tasks[id], nil }

func (s *stubAssignmentStore) GetProfile(id string) (*models.UserProfile, error) {
	return s.profiles[id], nil
}

func (s *stubAssignmentStore) InsertAssignment(a *models.Assignment) error {
	s.seed(a)
	return nil
}

func (s *stubAssignmentStore) GetAssignment(id string) (*models.Assignment, error) {
	return s.assignments[id], nil
}

func (s *stubAssignmentStore) AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error) {
	return s.byTaskUser[taskID+"|"+userID], nil
}

func (s *stubAssignmentStore) ListAssignmentsForUser(userID string, activeOnly bool) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range s.assignments {
		if a.UserID != userID {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAssignmentStore) ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error) {
	return s.details, nil
}

func (s *stubAssignmentStore) ListAllAssignments() ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range s.assignments {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAssignmentStore) UpdateAssignment(a *models.Assignment) error {
	s.assignments[a.ID] = a
	return nil
}

func (s *stubAssignmentStore) CountResponsesByAssignment(assignmentID string) (int, error) {
	return s.counts[assignmentID], nil
}

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestAssignmentService(store *stubAssignmentStore) *AssignmentService {
	svc := NewAssignmentService(store)
	svc.now = func() time.Time { return testClock }
	n := 0
	svc.idGenerator = func() string { n++; return fmt.Sprintf("A%d", n) }
	return svc
}

func seedTaskAndUser(store *stubAssignmentStore) {
	store.tasks["T1"] = &models.Task{ID: "T1", Title: "Defect Review", QuestionCount: 100}
	store.profiles["U1"] = &models.UserProfile{ID: "U1", Email: "u1@example.com", Role: models.RoleLabeler, IsActive: true}
}

func TestCreateAssignment(t *testing.T) {
	store := newStubAssignmentStore()
	seedTaskAndUser(store)
	svc := newTestAssignmentService(store)

	a, err := svc.Create("T1", "U1", 1, 50)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if a.ID != "A1" || a.RangeStart != 1 || a.RangeEnd != 50 {
		t.Fatalf("assignment = %+v, want A1 range [1,50]", a)
	}
	if !a.IsActive || a.CompletedCount != 0 {
		t.Fatalf("new assignment active=%v completed=%d, want active with 0 completed", a.IsActive, a.CompletedCount)
	}
	if !a.AssignedAt.Equal(testClock) {
		t.Fatalf("assigned_at = %v, want %v", a.AssignedAt, testClock)
	}
}

func TestCreateAssignmentRangeValidation(t *testing.T) {
	cases := []struct{ start, end int }{
		{0, 5},
		{-1, 3},
		{5, 4},
		{3, 0},
	}
	for _, tc := range cases {
		store := newStubAssignmentStore()
		seedTaskAndUser(store)
		svc := newTestAssignmentService(store)

		_, err := svc.Create("T1", "U1", tc.start, tc.end)
		wantCode(t, err, ErrorInvalidRange)
		if len(store.assignments) != 0 {
			t.Fatalf("range [%d,%d]: assignment persisted despite validation failure", tc.start, tc.end)
		}
	}
}

func TestCreateAssignmentMissingReferences(t *testing.T) {
	store := newStubAssignmentStore()
	store.profiles["U1"] = &models.UserProfile{ID: "U1", Role: models.RoleLabeler}
	svc := newTestAssignmentService(store)

	_, err := svc.Create("T-missing", "U1", 1, 5)
	wantCode(t, err, ErrorNotFound)

	store.tasks["T1"] = &models.Task{ID: "T1", Title: "Defect Review"}
	_, err = svc.Create("T1", "U-missing", 1, 5)
	wantCode(t, err, ErrorNotFound)
}

func TestCreateAssignmentDuplicateRejected(t *testing.T) {
	store := newStubAssignmentStore()
	seedTaskAndUser(store)
	svc := newTestAssignmentService(store)

	if _, err := svc.Create("T1", "U1", 1, 10); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create("T1", "U1", 11, 20)
	wantCode(t, err, ErrorConflict)
	if len(store.assignments) != 1 {
		t.Fatalf("assignments stored = %d, want 1", len(store.assignments))
	}
}

func TestRecomputeProgressIsIdempotent(t *testing.T) {
	store := newStubAssignmentStore()
	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 5, IsActive: true})
	store.counts["A1"] = 3
	svc := newTestAssignmentService(store)

	for i := 0; i < 2; i++ {
		a, err := svc.RecomputeProgress("A1")
		if err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
		if a.CompletedCount != 3 {
			t.Fatalf("completed_labels = %d, want 3", a.CompletedCount)
		}
		if a.CompletedAt != nil {
			t.Fatalf("completed_at stamped below span")
		}
	}

	store.counts["A1"] = 5
	first, err := svc.RecomputeProgress("A1")
	if err != nil {
		t.Fatalf("recompute at span: %v", err)
	}
	if first.CompletedAt == nil || !first.CompletedAt.Equal(testClock) {
		t.Fatalf("completed_at = %v, want %v", first.CompletedAt, testClock)
	}

	svc.now = func() time.Time { return testClock.Add(time.Hour) }
	second, err := svc.RecomputeProgress("A1")
	if err != nil {
		t.Fatalf("second recompute at span: %v", err)
	}
	if !second.CompletedAt.Equal(testClock) {
		t.Fatalf("completed_at moved on rerun: %v", second.CompletedAt)
	}
}

func TestRecomputeProgressMissingAssignment(t *testing.T) {
	svc := newTestAssignmentService(newStubAssignmentStore())

	_, err := svc.RecomputeProgress("nope")
	wantCode(t, err, ErrorNotFound)
}

func TestUpdateStatusKeepsProgress(t *testing.T) {
	store := newStubAssignmentStore()
	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 5, CompletedCount: 2, IsActive: true})
	svc := newTestAssignmentService(store)

	a, err := svc.UpdateStatus("A1", false)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if a.IsActive {
		t.Fatalf("assignment still active")
	}
	if a.CompletedCount != 2 {
		t.Fatalf("completed_labels = %d, want 2", a.CompletedCount)
	}

	_, err = svc.UpdateStatus("missing", true)
	wantCode(t, err, ErrorNotFound)
}

func TestSetProgress(t *testing.T) {
	store := newStubAssignmentStore()
	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 4, IsActive: true})
	svc := newTestAssignmentService(store)

	if _, err := svc.SetProgress("A1", -1); err == nil {
		t.Fatalf("negative progress accepted")
	}

	a, err := svc.SetProgress("A1", 4)
	if err != nil {
		t.Fatalf("SetProgress returned error: %v", err)
	}
	if a.CompletedCount != 4 {
		t.Fatalf("completed_labels = %d, want 4", a.CompletedCount)
	}
	if a.CompletedAt == nil {
		t.Fatalf("completed_at not stamped when manual progress reaches span")
	}
}

func TestGetForTaskUserTolerantRead(t *testing.T) {
	store := newStubAssignmentStore()
	svc := newTestAssignmentService(store)

	a, err := svc.GetForTaskUser("T1", "U1")
	if err != nil || a != nil {
		t.Fatalf("absent assignment = (%+v, %v), want (nil, nil)", a, err)
	}

	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 5})
	store.seed(&models.Assignment{ID: "A2", TaskID: "T1", UserID: "U1", RangeStart: 6, RangeEnd: 10})
	a, err = svc.GetForTaskUser("T1", "U1")
	if err != nil {
		t.Fatalf("GetForTaskUser returned error: %v", err)
	}
	if a.ID != "A1" {
		t.Fatalf("assignment = %q, want first (A1)", a.ID)
	}
}

func TestAssignmentStats(t *testing.T) {
	store := newStubAssignmentStore()
	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 10, CompletedCount: 10, IsActive: true})
	store.seed(&models.Assignment{ID: "A2", TaskID: "T1", UserID: "U2", RangeStart: 11, RangeEnd: 20, CompletedCount: 5, IsActive: true})
	store.seed(&models.Assignment{ID: "A3", TaskID: "T2", UserID: "U1", RangeStart: 1, RangeEnd: 20, CompletedCount: 0})
	svc := newTestAssignmentService(store)

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalAssignments != 3 || stats.ActiveAssignments != 2 || stats.CompletedAssignments != 1 {
		t.Fatalf("stats = %+v, want 3 total, 2 active, 1 completed", stats)
	}
	if stats.TotalQuestions != 40 || stats.TotalCompleted != 15 {
		t.Fatalf("question totals = %d/%d, want 15/40", stats.TotalCompleted, stats.TotalQuestions)
	}
	if stats.CompletionRate != 37.5 {
		t.Fatalf("completion rate = %v, want 37.5", stats.CompletionRate)
	}
}

func TestGetWithDetails(t *testing.T) {
	store := newStubAssignmentStore()
	store.tasks["T1"] = &models.Task{ID: "T1", Title: "Defect Review"}
	store.profiles["U1"] = &models.UserProfile{ID: "U1", Email: "u1@example.com", FullName: "Jordan Kim"}
	store.seed(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", RangeStart: 1, RangeEnd: 5})
	svc := newTestAssignmentService(store)

	d, err := svc.GetWithDetails("A1")
	if err != nil {
		t.Fatalf("GetWithDetails returned error: %v", err)
	}
	if d.TaskTitle != "Defect Review" || d.UserName != "Jordan Kim" || d.UserEmail != "u1@example.com" {
		t.Fatalf("detail = %+v, want joined task and user fields", d)
	}
}
