package services

import (
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// UserStore abstracts persistence operations required by UserService.
type UserStore interface {
	InsertProfile(p *models.UserProfile) error
	GetProfile(id string) (*models.UserProfile, error)
	UpdateProfile(p *models.UserProfile) error
	ListProfiles(limit, offset int) ([]*models.UserProfile, error)
	SearchProfiles(query string, limit int) ([]*models.UserProfile, error)
	ListProfilesByRole(role models.UserRole) ([]*models.UserProfile, error)
	ListProfilesActiveSince(cutoff time.Time) ([]*models.UserProfile, error)
	GetStats(userID string) (*models.UserStats, error)
	UpsertStats(st *models.UserStats) error
	ListAssignmentsForUser(userID string, activeOnly bool) ([]*models.Assignment, error)
	UpdateAssignment(a *models.Assignment) error
	ListResponsesForUser(userID, taskID string) ([]*models.Response, error)
}

// ProfileUpdate carries the self-service profile fields.
type ProfileUpdate struct {
	FullName            *string
	PreferredCategories []string
}

// UserWithActivity decorates a profile with its last activity timestamp.
type UserWithActivity struct {
	models.UserProfile
	LastActive *time.Time `json:"last_active,omitempty"`
}

// UserPerformance summarizes a labeler's stats and assignment completion.
type UserPerformance struct {
	UserID             string            `json:"user_id"`
	Stats              *models.UserStats `json:"stats"`
	TotalAssignments   int               `json:"total_assignments"`
	ActiveAssignments  int               `json:"active_assignments"`
	QuestionsAssigned  int               `json:"questions_assigned"`
	QuestionsCompleted int               `json:"questions_completed"`
	CompletionRate     float64           `json:"completion_rate"`
}

// DayActivity counts responses submitted on one calendar day.
type DayActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserActivity is a labeler's recent submission history grouped by day.
type UserActivity struct {
	UserID string        `json:"user_id"`
	Days   int           `json:"days"`
	Total  int           `json:"total_responses"`
	ByDay  []DayActivity `json:"by_day"`
}

// UserService manages profiles, roles and labeler statistics. Credentials
// never pass through here; identities arrive already verified.
type UserService struct {
	store UserStore
	now   func() time.Time
}

func NewUserService(store UserStore) *UserService {
	return &UserService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// EnsureProfile returns the stored profile for a verified identity, creating
// it on first sight. The stored role is authoritative; the given role only
// applies to newly created profiles.
func (s *UserService) EnsureProfile(id, email, fullName string, role models.UserRole) (*models.UserProfile, error) {
	if id == "" {
		return nil, NewUnauthorizedError("authentication required")
	}
	p, err := s.store.GetProfile(id)
	if err != nil {
		return nil, NewStorageError("loading profile", err)
	}
	if p != nil {
		return p, nil
	}
	if !role.Valid() {
		role = models.RoleLabeler
	}
	now := s.now()
	p = &models.UserProfile{
		ID:        id,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertProfile(p); err != nil {
		return nil, NewStorageError("creating profile", err)
	}
	return p, nil
}

func (s *UserService) GetProfile(id string) (*models.UserProfile, error) {
	p, err := s.store.GetProfile(id)
	if err != nil {
		return nil, NewStorageError("loading profile", err)
	}
	if p == nil {
		return nil, NewNotFoundError("user profile not found")
	}
	return p, nil
}

func (s *UserService) UpdateProfile(id string, up ProfileUpdate) (*models.UserProfile, error) {
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	if up.FullName != nil {
		p.FullName = strings.TrimSpace(*up.FullName)
	}
	if up.PreferredCategories != nil {
		p.PreferredCategories = up.PreferredCategories
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(p); err != nil {
		return nil, NewStorageError("updating profile", err)
	}
	return p, nil
}

// List pages through all profiles, newest activity attached.
func (s *UserService) List(limit, offset int) ([]*UserWithActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	profiles, err := s.store.ListProfiles(limit, offset)
	if err != nil {
		return nil, NewStorageError("listing users", err)
	}
	return s.withActivity(profiles)
}

func (s *UserService) Search(query string) ([]*UserWithActivity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewInvalidError("search query required")
	}
	profiles, err := s.store.SearchProfiles(query, 20)
	if err != nil {
		return nil, NewStorageError("searching users", err)
	}
	return s.withActivity(profiles)
}

func (s *UserService) ByRole(role models.UserRole) ([]*models.UserProfile, error) {
	if !role.Valid() {
		return nil, NewInvalidError("invalid role")
	}
	profiles, err := s.store.ListProfilesByRole(role)
	if err != nil {
		return nil, NewStorageError("listing users by role", err)
	}
	return profiles, nil
}

// ActiveSince lists users whose last activity falls within the given number
// of days. Zero or negative days defaults to one week.
func (s *UserService) ActiveSince(days int) ([]*models.UserProfile, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := s.now().AddDate(0, 0, -days)
	profiles, err := s.store.ListProfilesActiveSince(cutoff)
	if err != nil {
		return nil, NewStorageError("listing active users", err)
	}
	return profiles, nil
}

func (s *UserService) UpdateRole(id string, role models.UserRole) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, NewInvalidError("invalid role")
	}
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	p.Role = role
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(p); err != nil {
		return nil, NewStorageError("updating role", err)
	}
	return p, nil
}

// Deactivate disables the account and every active assignment it holds.
func (s *UserService) Deactivate(id string) (*models.UserProfile, error) {
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(p); err != nil {
		return nil, NewStorageError("deactivating user", err)
	}
	assignments, err := s.store.ListAssignmentsForUser(id, true)
	if err != nil {
		return nil, NewStorageError("listing user assignments", err)
	}
	for _, a := range assignments {
		a.IsActive = false
		if err := s.store.UpdateAssignment(a); err != nil {
			return nil, NewStorageError("deactivating assignment", err)
		}
	}
	return p, nil
}

// Reactivate re-enables the account only; assignments stay paused until an
// admin re-enables them individually.
func (s *UserService) Reactivate(id string) (*models.UserProfile, error) {
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	p.IsActive = true
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(p); err != nil {
		return nil, NewStorageError("reactivating user", err)
	}
	return p, nil
}

// GetStats returns the user's counters, materializing the default row on
// first access.
func (s *UserService) GetStats(userID string) (*models.UserStats, error) {
	if _, err := s.GetProfile(userID); err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats(userID)
	if err != nil {
		return nil, NewStorageError("loading stats", err)
	}
	if stats == nil {
		stats = defaultStats(userID, s.now())
		if err := s.store.UpsertStats(stats); err != nil {
			return nil, NewStorageError("creating stats", err)
		}
	}
	return stats, nil
}

// TouchLastActive refreshes the activity timestamp. Best effort: failures
// are logged and never surface to the caller.
func (s *UserService) TouchLastActive(userID string) {
	if userID == "" {
		return
	}
	if err := touchLastActive(s.store, userID, s.now()); err != nil {
		log.Printf("user service: touch last active for %s: %v", userID, err)
	}
}

// Performance merges stats with assignment completion totals.
func (s *UserService) Performance(userID string) (*UserPerformance, error) {
	stats, err := s.GetStats(userID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignmentsForUser(userID, false)
	if err != nil {
		return nil, NewStorageError("listing user assignments", err)
	}
	perf := &UserPerformance{UserID: userID, Stats: stats, TotalAssignments: len(assignments)}
	for _, a := range assignments {
		if a.IsActive {
			perf.ActiveAssignments++
		}
		perf.QuestionsAssigned += a.Span()
		perf.QuestionsCompleted += a.CompletedCount
	}
	if perf.QuestionsAssigned > 0 {
		rate := float64(perf.QuestionsCompleted) / float64(perf.QuestionsAssigned) * 100
		perf.CompletionRate = math.Round(rate*100) / 100
	}
	return perf, nil
}

// Activity groups the user's submissions of the trailing window by day.
func (s *UserService) Activity(userID string, days int) (*UserActivity, error) {
	if days <= 0 {
		days = 30
	}
	if _, err := s.GetProfile(userID); err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponsesForUser(userID, "")
	if err != nil {
		return nil, NewStorageError("listing responses", err)
	}
	cutoff := s.now().AddDate(0, 0, -days)
	counts := map[string]int{}
	total := 0
	for _, r := range responses {
		if r.SubmittedAt.Before(cutoff) {
			continue
		}
		counts[r.SubmittedAt.UTC().Format("2006-01-02")]++
		total++
	}
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	byDay := make([]DayActivity, 0, len(dates))
	for _, d := range dates {
		byDay = append(byDay, DayActivity{Date: d, Count: counts[d]})
	}
	return &UserActivity{UserID: userID, Days: days, Total: total, ByDay: byDay}, nil
}

func (s *UserService) withActivity(profiles []*models.UserProfile) ([]*UserWithActivity, error) {
	out := make([]*UserWithActivity, 0, len(profiles))
	for _, p := range profiles {
		u := &UserWithActivity{UserProfile: *p}
		stats, err := s.store.GetStats(p.ID)
		if err != nil {
			return nil, NewStorageError("loading stats", err)
		}
		if stats != nil {
			u.LastActive = stats.LastActive
		}
		out = append(out, u)
	}
	return out, nil
}
