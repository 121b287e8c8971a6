package services

import (
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// progressStore is the slice of storage needed to recompute assignment
// progress. Both AssignmentStore and ResponseStore satisfy it.
type progressStore interface {
	GetAssignment(id string) (*models.Assignment, error)
	CountResponsesByAssignment(assignmentID string) (int, error)
	UpdateAssignment(a *models.Assignment) error
}

// recomputeProgress derives completed_labels from the stored response rows
// and persists it. The completion timestamp is stamped once, when the count
// first reaches the range span; rerunning never changes a stamped value.
func recomputeProgress(st progressStore, assignmentID string, now time.Time) (*models.Assignment, error) {
	a, err := st.GetAssignment(assignmentID)
	if err != nil {
		return nil, NewStorageError("loading assignment", err)
	}
	if a == nil {
		return nil, NewNotFoundError("assignment not found")
	}
	count, err := st.CountResponsesByAssignment(assignmentID)
	if err != nil {
		return nil, NewStorageError("counting responses", err)
	}
	a.CompletedCount = count
	if count >= a.Span() && a.CompletedAt == nil {
		t := now
		a.CompletedAt = &t
	}
	if err := st.UpdateAssignment(a); err != nil {
		return nil, NewStorageError("updating assignment progress", err)
	}
	return a, nil
}

type statsStore interface {
	GetStats(userID string) (*models.UserStats, error)
	UpsertStats(st *models.UserStats) error
}

func defaultStats(userID string, now time.Time) *models.UserStats {
	return &models.UserStats{UserID: userID, AccuracyScore: 100, UpdatedAt: now}
}

// bumpLabelerStats records one first-time label for the user: totals,
// calendar-window counters and the day streak. Counters reset when the
// calendar day, ISO week or month rolls over since the last activity.
func bumpLabelerStats(st statsStore, userID string, at time.Time) error {
	stats, err := st.GetStats(userID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = defaultStats(userID, at)
	}
	stats.TotalQuestionsLabeled++
	stats.TotalAnnotations++

	last := stats.LastActive
	if last == nil || !sameDay(*last, at) {
		stats.LabelsToday = 0
	}
	if last == nil || !sameWeek(*last, at) {
		stats.LabelsThisWeek = 0
	}
	if last == nil || !sameMonth(*last, at) {
		stats.LabelsThisMonth = 0
	}
	stats.LabelsToday++
	stats.LabelsThisWeek++
	stats.LabelsThisMonth++

	switch {
	case last == nil:
		stats.StreakDays = 1
	case sameDay(*last, at):
		if stats.StreakDays == 0 {
			stats.StreakDays = 1
		}
	case sameDay(last.AddDate(0, 0, 1), at):
		stats.StreakDays++
	default:
		stats.StreakDays = 1
	}

	t := at
	stats.LastActive = &t
	stats.UpdatedAt = at
	return st.UpsertStats(stats)
}

// touchLastActive refreshes the activity timestamp, creating the stats row
// with defaults when the user has none yet.
func touchLastActive(st statsStore, userID string, at time.Time) error {
	stats, err := st.GetStats(userID)
	if err != nil {
		return err
	}
	if stats == nil {
		stats = defaultStats(userID, at)
	}
	t := at
	stats.LastActive = &t
	stats.UpdatedAt = at
	return st.UpsertStats(stats)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.UTC().ISOWeek()
	by, bw := b.UTC().ISOWeek()
	return ay == by && aw == bw
}

func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return ay == by && am == bm
}
