package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

type stubLabelStore struct {
	classes map[string]*models.LabelClass
}

func newStubLabelStore() *stubLabelStore {
	return &stubLabelStore{classes: map[string]*models.LabelClass{}}
}

func (s *stubLabelStore) InsertLabelClass(lc *models.LabelClass) error {
	s.classes[lc.ID] = lc
	return nil
}

func (s *stubLabelStore) GetLabelClass(id string) (*models.LabelClass, error) {
	return s.classes[id], nil
}

func (s *stubLabelStore) FindLabelClassByName(name string) (*models.LabelClass, error) {
	for _, lc := range s.classes {
		if lc.Name == name {
			return lc, nil
		}
	}
	return nil, nil
}

func (s *stubLabelStore) UpdateLabelClass(lc *models.LabelClass) error {
	s.classes[lc.ID] = lc
	return nil
}

func (s *stubLabelStore) ListLabelClasses(activeOnly bool) ([]*models.LabelClass, error) {
	var out []*models.LabelClass
	for _, lc := range s.classes {
		if activeOnly && !lc.IsActive {
			continue
		}
		out = append(out, lc)
	}
	return out, nil
}

func newTestLabelService(store *stubLabelStore) *LabelService {
	svc := NewLabelService(store)
	svc.now = func() time.Time { return testClock }
	n := 0
	svc.idGenerator = func() string { n++; return fmt.Sprintf("L%d", n) }
	return svc
}

func strptr(s string) *string { return &s }

func TestCreateLabelClass(t *testing.T) {
	store := newStubLabelStore()
	svc := newTestLabelService(store)

	lc, err := svc.Create(LabelClassInput{Name: strptr("  Scratch  ")})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if lc.Name != "Scratch" {
		t.Fatalf("name = %q, want trimmed", lc.Name)
	}
	if lc.Color != defaultLabelColor {
		t.Fatalf("color = %q, want default %q", lc.Color, defaultLabelColor)
	}
	if !lc.IsActive {
		t.Fatalf("new label class not active")
	}

	custom, err := svc.Create(LabelClassInput{Name: strptr("Dent"), Color: strptr("#ff0000"), Description: strptr("surface dent")})
	if err != nil {
		t.Fatalf("Create with color: %v", err)
	}
	if custom.Color != "#ff0000" || custom.Description != "surface dent" {
		t.Fatalf("label class = %+v", custom)
	}
}

func TestCreateLabelClassValidation(t *testing.T) {
	svc := newTestLabelService(newStubLabelStore())

	_, err := svc.Create(LabelClassInput{})
	wantCode(t, err, ErrorInvalid)
	_, err = svc.Create(LabelClassInput{Name: strptr("   ")})
	wantCode(t, err, ErrorInvalid)
}

func TestCreateLabelClassDuplicateName(t *testing.T) {
	svc := newTestLabelService(newStubLabelStore())

	if _, err := svc.Create(LabelClassInput{Name: strptr("Scratch")}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(LabelClassInput{Name: strptr("Scratch")})
	wantCode(t, err, ErrorConflict)
}

func TestUpdateLabelClass(t *testing.T) {
	store := newStubLabelStore()
	svc := newTestLabelService(store)

	a, _ := svc.Create(LabelClassInput{Name: strptr("Scratch")})
	if _, err := svc.Create(LabelClassInput{Name: strptr("Dent")}); err != nil {
		t.Fatalf("create Dent: %v", err)
	}

	_, err := svc.Update(a.ID, LabelClassInput{Name: strptr("Dent")})
	wantCode(t, err, ErrorConflict)

	updated, err := svc.Update(a.ID, LabelClassInput{Name: strptr("Scratch"), Description: strptr("hairline")})
	if err != nil {
		t.Fatalf("update with own name rejected: %v", err)
	}
	if updated.Description != "hairline" {
		t.Fatalf("description = %q, want hairline", updated.Description)
	}

	_, err = svc.Update("missing", LabelClassInput{})
	wantCode(t, err, ErrorNotFound)
}

func TestDeleteLabelClassIsSoft(t *testing.T) {
	store := newStubLabelStore()
	svc := newTestLabelService(store)

	lc, _ := svc.Create(LabelClassInput{Name: strptr("Scratch")})
	if err := svc.Delete(lc.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	stored := store.classes[lc.ID]
	if stored == nil {
		t.Fatalf("row removed; delete must be soft")
	}
	if stored.IsActive {
		t.Fatalf("label class still active after delete")
	}

	active, err := svc.List(true)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active list = %d entries, want 0", len(active))
	}
	all, err := svc.List(false)
	if err != nil {
		t.Fatalf("List all returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("full list = %d entries, want 1", len(all))
	}
}
