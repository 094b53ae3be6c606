package reward

import (
	"testing"
	"time"

	"github.com/dukerupert/chorestar/internal/model"
)

func settings() model.FamilySettings {
	s := model.DefaultFamilySettings()
	s.DailyReward = 7
	s.WeeklyBonus = 100
	return s
}

func TestSummarizeCountsActiveChoresOnly(t *testing.T) {
	chores := []model.Chore{
		{ID: 1, RewardAmount: 50, Active: true},
		{ID: 2, RewardAmount: 25, Active: true},
		{ID: 3, RewardAmount: 1000, Active: false},
	}
	completions := []model.ChoreCompletion{
		completion(1, 1),
		completion(2, 1),
		completion(1, 2),
		completion(3, 3),
	}

	s := Summarize(week, chores, completions, settings())

	if s.ActiveChores != 2 {
		t.Errorf("ActiveChores = %d, want 2", s.ActiveChores)
	}
	if s.Completions != 3 {
		t.Errorf("Completions = %d, want 3", s.Completions)
	}
	if s.PerfectDays != 1 {
		t.Errorf("PerfectDays = %d, want 1", s.PerfectDays)
	}
	if s.CompletionPercent != 14 {
		t.Errorf("CompletionPercent = %d, want 14", s.CompletionPercent)
	}
	if s.TaskEarnings != 125 {
		t.Errorf("TaskEarnings = %d, want 125", s.TaskEarnings)
	}
	if s.DailyEarnings != 14 {
		t.Errorf("DailyEarnings = %d, want 14", s.DailyEarnings)
	}
	if s.WeeklyBonus != 0 {
		t.Errorf("WeeklyBonus = %d, want 0", s.WeeklyBonus)
	}
	if s.FlatRateTotal != 14 {
		t.Errorf("FlatRateTotal = %d, want 14", s.FlatRateTotal)
	}
}

func TestSummarizePerfectWeek(t *testing.T) {
	chores := []model.Chore{{ID: 1, RewardAmount: 10, Active: true}}
	var completions []model.ChoreCompletion
	for d := 0; d < 7; d++ {
		completions = append(completions, completion(1, d))
	}

	s := Summarize(week, chores, completions, settings())

	if s.CompletionPercent != 100 {
		t.Errorf("CompletionPercent = %d, want 100", s.CompletionPercent)
	}
	if s.WeeklyBonus != 100 {
		t.Errorf("WeeklyBonus = %d, want 100", s.WeeklyBonus)
	}
	if s.FlatRateTotal != 149 {
		t.Errorf("FlatRateTotal = %d, want 149", s.FlatRateTotal)
	}
	if s.TaskEarnings != 70 {
		t.Errorf("TaskEarnings = %d, want 70", s.TaskEarnings)
	}
}

func TestSummarizeNoChores(t *testing.T) {
	s := Summarize(week, nil, nil, settings())
	if s.WeeklyBonus != 0 || s.FlatRateTotal != 0 || s.CompletionPercent != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestSummarizeIgnoresOtherWeeks(t *testing.T) {
	chores := []model.Chore{{ID: 1, RewardAmount: 10, Active: true}}
	completions := []model.ChoreCompletion{
		completion(1, 0),
		{ChoreID: 1, DayOfWeek: 1, WeekStart: "2026-01-25"},
	}

	s := Summarize(week, chores, completions, settings())
	if s.Completions != 1 {
		t.Errorf("Completions = %d, want 1", s.Completions)
	}
}

func TestHistorySumsWeeks(t *testing.T) {
	chores := []model.Chore{{ID: 1, RewardAmount: 10, Active: true}}
	var completions []model.ChoreCompletion
	for d := 0; d < 7; d++ {
		completions = append(completions, model.ChoreCompletion{ChoreID: 1, DayOfWeek: d, WeekStart: "2026-01-25"})
	}
	completions = append(completions, completion(1, 0))

	h := History(chores, completions, settings())

	if len(h.Weeks) != 2 {
		t.Fatalf("weeks = %d, want 2", len(h.Weeks))
	}
	if h.Weeks[0].WeekStart != "2026-01-25" {
		t.Errorf("first week = %q, want %q", h.Weeks[0].WeekStart, "2026-01-25")
	}
	if h.TaskEarnings != 80 {
		t.Errorf("TaskEarnings = %d, want 80", h.TaskEarnings)
	}
	if h.DailyEarnings != 56 {
		t.Errorf("DailyEarnings = %d, want 56", h.DailyEarnings)
	}
	if h.WeeklyBonuses != 100 {
		t.Errorf("WeeklyBonuses = %d, want 100", h.WeeklyBonuses)
	}
	if h.FlatRateTotal != 156 {
		t.Errorf("FlatRateTotal = %d, want 156", h.FlatRateTotal)
	}
	if h.PerfectWeeks != 1 {
		t.Errorf("PerfectWeeks = %d, want 1", h.PerfectWeeks)
	}
	// (100 + 14) / 2 = 57
	if h.AverageCompletionRate != 57 {
		t.Errorf("AverageCompletionRate = %d, want 57", h.AverageCompletionRate)
	}
}

func TestHistoryKeepsRetiredChoreEarnings(t *testing.T) {
	chores := []model.Chore{{ID: 1, RewardAmount: 50, Active: true}}
	completions := []model.ChoreCompletion{completion(1, 0), completion(1, 1)}

	before := History(chores, completions, settings())
	if before.TaskEarnings != 100 {
		t.Fatalf("TaskEarnings = %d, want 100", before.TaskEarnings)
	}

	chores[0].Active = false
	after := History(chores, completions, settings())
	if after.TaskEarnings != before.TaskEarnings {
		t.Errorf("TaskEarnings after retiring chore = %d, want %d", after.TaskEarnings, before.TaskEarnings)
	}
	if after.DailyEarnings != before.DailyEarnings {
		t.Errorf("DailyEarnings after retiring chore = %d, want %d", after.DailyEarnings, before.DailyEarnings)
	}
	if after.PerfectDays != 2 {
		t.Errorf("PerfectDays = %d, want 2", after.PerfectDays)
	}

	// the current week view drops the retired chore
	if s := Summarize(week, chores, completions, settings()); s.TaskEarnings != 0 {
		t.Errorf("Summarize TaskEarnings = %d, want 0", s.TaskEarnings)
	}
}

func TestHistoryScoresWeekAgainstItsChores(t *testing.T) {
	weekEnd := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	chores := []model.Chore{
		{ID: 1, RewardAmount: 10, Active: true, CreatedAt: weekEnd.AddDate(0, -1, 0)},
		// added after the week, never done in it
		{ID: 2, RewardAmount: 10, Active: true, CreatedAt: weekEnd.AddDate(0, 0, 3)},
		// retired, not done that week
		{ID: 3, RewardAmount: 10, Active: false},
	}
	completions := []model.ChoreCompletion{completion(1, 0), completion(1, 1)}

	h := History(chores, completions, settings())
	if len(h.Weeks) != 1 {
		t.Fatalf("weeks = %d, want 1", len(h.Weeks))
	}
	w := h.Weeks[0]
	if w.ActiveChores != 1 {
		t.Errorf("ActiveChores = %d, want 1", w.ActiveChores)
	}
	if w.PerfectDays != 2 {
		t.Errorf("PerfectDays = %d, want 2", w.PerfectDays)
	}
}

func TestHistoryEmpty(t *testing.T) {
	h := History(nil, nil, settings())
	if len(h.Weeks) != 0 || h.AverageCompletionRate != 0 {
		t.Errorf("empty history = %+v", h)
	}
}
