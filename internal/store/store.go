package store

import (
	"github.com/labelkit/labelkit/internal/services"
)

// Store is the union of the narrow per-service interfaces declared in
// internal/services. Both backends implement the full surface, so a single
// value can be handed to every service constructor.
type Store interface {
	services.TaskStore
	services.AssignmentStore
	services.ResponseStore
	services.UserStore
	services.LabelStore
	services.ExportStore
}
