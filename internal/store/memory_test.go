package store

import (
	"testing"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

func TestMemoryStoreTaskTitleUnique(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := m.InsertTask(&models.Task{ID: "T1", Title: "Defect Review", CreatedAt: now}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := m.InsertTask(&models.Task{ID: "T2", Title: "Defect Review", CreatedAt: now}); err == nil {
		t.Fatalf("duplicate title accepted")
	}
}

func TestMemoryStoreResponseUnique(t *testing.T) {
	m := NewMemoryStore()

	if err := m.InsertResponse(&models.Response{ID: "R1", AssignmentID: "A1", QuestionIndex: 3}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := m.InsertResponse(&models.Response{ID: "R2", AssignmentID: "A1", QuestionIndex: 3}); err == nil {
		t.Fatalf("duplicate (assignment, question) accepted")
	}
	if err := m.InsertResponse(&models.Response{ID: "R3", AssignmentID: "A1", QuestionIndex: 4}); err != nil {
		t.Fatalf("distinct question rejected: %v", err)
	}
}

func TestMemoryStoreAssignmentsOldestFirst(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m.InsertAssignment(&models.Assignment{ID: "A2", TaskID: "T1", UserID: "U1", AssignedAt: base.Add(time.Hour)})
	m.InsertAssignment(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", AssignedAt: base})

	list, err := m.AssignmentsForTaskUser("T1", "U1")
	if err != nil {
		t.Fatalf("AssignmentsForTaskUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "A1" || list[1].ID != "A2" {
		t.Fatalf("order = %v, want oldest first", []string{list[0].ID, list[1].ID})
	}
}

func TestMemoryStoreAssignmentDetails(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.InsertTask(&models.Task{ID: "T1", Title: "Defect Review", CreatedAt: base})
	m.InsertProfile(&models.UserProfile{ID: "U1", Email: "u1@example.com", FullName: "Jordan Kim", CreatedAt: base})
	m.InsertAssignment(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", AssignedAt: base})
	m.InsertAssignment(&models.Assignment{ID: "A2", TaskID: "T1", UserID: "U2", AssignedAt: base.Add(time.Hour)})

	details, err := m.ListAssignmentDetails(0, 0)
	if err != nil {
		t.Fatalf("ListAssignmentDetails: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("details = %d, want 2", len(details))
	}
	if details[0].ID != "A2" {
		t.Fatalf("first detail = %s, want newest assignment", details[0].ID)
	}
	if details[1].TaskTitle != "Defect Review" || details[1].UserName != "Jordan Kim" {
		t.Fatalf("joined fields = %+v", details[1])
	}

	page, err := m.ListAssignmentDetails(1, 1)
	if err != nil {
		t.Fatalf("paged ListAssignmentDetails: %v", err)
	}
	if len(page) != 1 || page[0].ID != "A1" {
		t.Fatalf("page = %+v, want [A1]", page)
	}
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	m := NewMemoryStore()
	m.InsertAssignment(&models.Assignment{ID: "A1", TaskID: "T1", UserID: "U1", CompletedCount: 1})

	a, _ := m.GetAssignment("A1")
	a.CompletedCount = 99

	again, _ := m.GetAssignment("A1")
	if again.CompletedCount != 1 {
		t.Fatalf("store row mutated through returned copy")
	}
}

func TestMemoryStoreProfileSearchAndRole(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.InsertProfile(&models.UserProfile{ID: "U1", Email: "kim@example.com", FullName: "Jordan Kim", Role: models.RoleLabeler, CreatedAt: base})
	m.InsertProfile(&models.UserProfile{ID: "U2", Email: "lee@example.com", FullName: "Sam Lee", Role: models.RoleAdmin, CreatedAt: base.Add(time.Minute)})

	found, err := m.SearchProfiles("KIM", 10)
	if err != nil {
		t.Fatalf("SearchProfiles: %v", err)
	}
	if len(found) != 1 || found[0].ID != "U1" {
		t.Fatalf("search = %+v, want case-insensitive match on U1", found)
	}

	admins, err := m.ListProfilesByRole(models.RoleAdmin)
	if err != nil {
		t.Fatalf("ListProfilesByRole: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != "U2" {
		t.Fatalf("admins = %+v", admins)
	}
}
