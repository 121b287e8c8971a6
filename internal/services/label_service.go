package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labelkit/labelkit/internal/models"
)

const defaultLabelColor = "#667eea"

// LabelStore abstracts persistence operations required by LabelService.
type LabelStore interface {
	InsertLabelClass(lc *models.LabelClass) error
	GetLabelClass(id string) (*models.LabelClass, error)
	FindLabelClassByName(name string) (*models.LabelClass, error)
	UpdateLabelClass(lc *models.LabelClass) error
	ListLabelClasses(activeOnly bool) ([]*models.LabelClass, error)
}

// LabelClassInput carries create/update fields; nil pointers stay unchanged
// on update.
type LabelClassInput struct {
	Name        *string
	Description *string
	Color       *string
}

// LabelService manages the reusable label class catalog. Deletion is soft:
// classes referenced by historical responses stay resolvable.
type LabelService struct {
	store       LabelStore
	now         func() time.Time
	idGenerator func() string
}

func NewLabelService(store LabelStore) *LabelService {
	return &LabelService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

func (s *LabelService) List(activeOnly bool) ([]*models.LabelClass, error) {
	list, err := s.store.ListLabelClasses(activeOnly)
	if err != nil {
		return nil, NewStorageError("listing label classes", err)
	}
	return list, nil
}

func (s *LabelService) Create(in LabelClassInput) (*models.LabelClass, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	name := strings.TrimSpace(*in.Name)
	existing, err := s.store.FindLabelClassByName(name)
	if err != nil {
		return nil, NewStorageError("checking label class name", err)
	}
	if existing != nil {
		return nil, NewConflictError("a label class with this name already exists")
	}
	lc := &models.LabelClass{
		ID:        s.idGenerator(),
		Name:      name,
		Color:     defaultLabelColor,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if in.Description != nil {
		lc.Description = *in.Description
	}
	if in.Color != nil && strings.TrimSpace(*in.Color) != "" {
		lc.Color = strings.TrimSpace(*in.Color)
	}
	if err := s.store.InsertLabelClass(lc); err != nil {
		return nil, NewStorageError("creating label class", err)
	}
	return lc, nil
}

func (s *LabelService) Update(id string, in LabelClassInput) (*models.LabelClass, error) {
	lc, err := s.store.GetLabelClass(id)
	if err != nil {
		return nil, NewStorageError("loading label class", err)
	}
	if lc == nil {
		return nil, NewNotFoundError("label class not found")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, NewInvalidError("name required")
		}
		if name != lc.Name {
			other, err := s.store.FindLabelClassByName(name)
			if err != nil {
				return nil, NewStorageError("checking label class name", err)
			}
			if other != nil && other.ID != id {
				return nil, NewConflictError("a label class with this name already exists")
			}
		}
		lc.Name = name
	}
	if in.Description != nil {
		lc.Description = *in.Description
	}
	if in.Color != nil && strings.TrimSpace(*in.Color) != "" {
		lc.Color = strings.TrimSpace(*in.Color)
	}
	if err := s.store.UpdateLabelClass(lc); err != nil {
		return nil, NewStorageError("updating label class", err)
	}
	return lc, nil
}

// Delete clears is_active instead of removing the row.
func (s *LabelService) Delete(id string) error {
	lc, err := s.store.GetLabelClass(id)
	if err != nil {
		return NewStorageError("loading label class", err)
	}
	if lc == nil {
		return NewNotFoundError("label class not found")
	}
	lc.IsActive = false
	if err := s.store.UpdateLabelClass(lc); err != nil {
		return NewStorageError("deleting label class", err)
	}
	return nil
}
