package services

import (
	"testing"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// The stats helpers are exercised through a sequence of first-time labels
// spanning day, week and month boundaries. 2025-06-01 is a Sunday, so the
// following Monday starts a new ISO week.
func TestBumpLabelerStatsSequence(t *testing.T) {
	store := newStubResponseStore()

	bump := func(at time.Time) *models.UserStats {
		t.Helper()
		if err := bumpLabelerStats(store, "U1", at); err != nil {
			t.Fatalf("bump at %v: %v", at, err)
		}
		return store.stats["U1"]
	}

	st := bump(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	if st.TotalQuestionsLabeled != 1 || st.LabelsToday != 1 || st.LabelsThisWeek != 1 || st.LabelsThisMonth != 1 {
		t.Fatalf("first bump = %+v", st)
	}
	if st.StreakDays != 1 {
		t.Fatalf("streak = %d, want 1", st.StreakDays)
	}
	if st.AccuracyScore != 100 {
		t.Fatalf("accuracy_score = %v, want default 100", st.AccuracyScore)
	}

	st = bump(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	if st.LabelsToday != 2 || st.StreakDays != 1 {
		t.Fatalf("same-day bump = %+v, want today 2 streak 1", st)
	}

	st = bump(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	if st.LabelsToday != 1 {
		t.Fatalf("labels_today = %d, want reset to 1 on new day", st.LabelsToday)
	}
	if st.LabelsThisWeek != 1 {
		t.Fatalf("labels_this_week = %d, want reset to 1 on new ISO week", st.LabelsThisWeek)
	}
	if st.LabelsThisMonth != 3 {
		t.Fatalf("labels_this_month = %d, want 3", st.LabelsThisMonth)
	}
	if st.StreakDays != 2 {
		t.Fatalf("streak = %d, want 2 after consecutive day", st.StreakDays)
	}

	st = bump(time.Date(2025, 6, 5, 8, 0, 0, 0, time.UTC))
	if st.StreakDays != 1 {
		t.Fatalf("streak = %d, want reset to 1 after gap", st.StreakDays)
	}
	if st.LabelsThisWeek != 2 {
		t.Fatalf("labels_this_week = %d, want 2 within same ISO week", st.LabelsThisWeek)
	}
	if st.TotalQuestionsLabeled != 4 {
		t.Fatalf("total_questions_labeled = %d, want 4", st.TotalQuestionsLabeled)
	}
}

func TestBumpLabelerStatsMonthRollover(t *testing.T) {
	store := newStubResponseStore()
	last := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	store.stats["U1"] = &models.UserStats{
		UserID: "U1", TotalQuestionsLabeled: 40, TotalAnnotations: 40,
		LabelsToday: 5, LabelsThisWeek: 12, LabelsThisMonth: 40,
		StreakDays: 3, LastActive: &last,
	}

	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	if err := bumpLabelerStats(store, "U1", at); err != nil {
		t.Fatalf("bump: %v", err)
	}
	st := store.stats["U1"]
	if st.LabelsThisMonth != 1 {
		t.Fatalf("labels_this_month = %d, want reset to 1", st.LabelsThisMonth)
	}
	if st.LabelsThisWeek != 13 {
		t.Fatalf("labels_this_week = %d, want 13 (Mon 6/30 and Tue 7/1 share an ISO week)", st.LabelsThisWeek)
	}
	if st.StreakDays != 4 {
		t.Fatalf("streak = %d, want 4 after consecutive day across months", st.StreakDays)
	}
	if st.TotalQuestionsLabeled != 41 {
		t.Fatalf("total_questions_labeled = %d, want 41", st.TotalQuestionsLabeled)
	}
}

func TestTouchLastActiveCreatesRow(t *testing.T) {
	store := newStubResponseStore()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := touchLastActive(store, "U1", at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	st := store.stats["U1"]
	if st == nil {
		t.Fatalf("stats row not created")
	}
	if st.LastActive == nil || !st.LastActive.Equal(at) {
		t.Fatalf("last_active = %v, want %v", st.LastActive, at)
	}
	if st.TotalQuestionsLabeled != 0 {
		t.Fatalf("touch must not count labels, got %d", st.TotalQuestionsLabeled)
	}
}
