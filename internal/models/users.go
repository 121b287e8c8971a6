package models

import "time"

// UserRole gates access to admin surfaces.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleLabeler  UserRole = "labeler"
	RoleReviewer UserRole = "reviewer"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLabeler, RoleReviewer:
		return true
	}
	return false
}

// UserProfile mirrors the identity provider's user record. Credentials live
// with the external issuer; only profile and role data is stored here.
type UserProfile struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	FullName            string    `json:"full_name,omitempty"`
	Role                UserRole  `json:"role"`
	PreferredCategories []string  `json:"preferred_categories,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UserStats aggregates a labeler's output. Rows are created on demand with
// defaults; counters are bumped on first-time submissions only.
type UserStats struct {
	UserID                string     `json:"user_id"`
	TotalQuestionsLabeled int        `json:"total_questions_labeled"`
	TotalAnnotations      int        `json:"total_annotations"`
	AccuracyScore         float64    `json:"accuracy_score"`
	LabelsToday           int        `json:"labels_today"`
	LabelsThisWeek        int        `json:"labels_this_week"`
	LabelsThisMonth       int        `json:"labels_this_month"`
	AvgSecondsPerQuestion *float64   `json:"average_seconds_per_question,omitempty"`
	LastActive            *time.Time `json:"last_active,omitempty"`
	StreakDays            int        `json:"streak_days"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
