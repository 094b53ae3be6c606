package reward

import (
	"sort"
	"time"

	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
)

// WeeklySummary is the derived view of one child's week. FlatRateTotal is the
// daily-reward model (DailyEarnings + WeeklyBonus); TaskEarnings is the
// per-chore model. ActiveChores is the number of chores the week was scored
// against.
type WeeklySummary struct {
	WeekStart         string `json:"week_start"`
	ActiveChores      int    `json:"active_chores"`
	Completions       int    `json:"completions"`
	PerDay            PerDay `json:"per_day"`
	PerfectDays       int    `json:"perfect_days"`
	CompletionPercent int    `json:"completion_percent"`
	TaskEarnings      int    `json:"task_earnings"`
	DailyEarnings     int    `json:"daily_earnings"`
	WeeklyBonus       int    `json:"weekly_bonus"`
	FlatRateTotal     int    `json:"flat_rate_total"`
}

// Summarize recomputes a week from scratch. Only active chores count toward
// the perfect-day threshold, and only their completions are counted.
func Summarize(weekStart string, chores []model.Chore, completions []model.ChoreCompletion, settings model.FamilySettings) WeeklySummary {
	return summarize(weekStart, model.ActiveChores(chores), completions, settings)
}

// summarize scores weekStart against exactly the given chores.
func summarize(weekStart string, chores []model.Chore, completions []model.ChoreCompletion, settings model.FamilySettings) WeeklySummary {
	ids := make(map[int64]bool, len(chores))
	for _, c := range chores {
		ids[c.ID] = true
	}

	var counted []model.ChoreCompletion
	for _, c := range completions {
		if c.WeekStart == weekStart && ids[c.ChoreID] {
			counted = append(counted, c)
		}
	}

	perDay := CompletionsPerDay(counted)
	perfect := PerfectDays(perDay, len(chores))
	daily := DailyEarnings(settings.DailyReward, perDay)
	bonus := WeeklyBonus(settings.WeeklyBonus, perDay, len(chores))

	return WeeklySummary{
		WeekStart:         weekStart,
		ActiveChores:      len(chores),
		Completions:       len(counted),
		PerDay:            perDay,
		PerfectDays:       perfect,
		CompletionPercent: CompletionPercentage(perfect),
		TaskEarnings:      TotalEarnings(chores, counted),
		DailyEarnings:     daily,
		WeeklyBonus:       bonus,
		FlatRateTotal:     daily + bonus,
	}
}

// choresForWeek returns the chores a past week is scored against: every chore
// completed that week, whatever its active flag is now, plus the active
// chores that already existed by the end of the week.
func choresForWeek(chores []model.Chore, completions []model.ChoreCompletion, weekStart string) []model.Chore {
	done := make(map[int64]bool)
	for _, c := range completions {
		if c.WeekStart == weekStart {
			done[c.ChoreID] = true
		}
	}
	var end time.Time
	if start, err := ledger.ParseWeekStart(weekStart); err == nil {
		end = start.AddDate(0, 0, ledger.DaysPerWeek)
	}

	var out []model.Chore
	for _, c := range chores {
		existed := end.IsZero() || c.CreatedAt.IsZero() || c.CreatedAt.Before(end)
		if done[c.ID] || (c.Active && existed) {
			out = append(out, c)
		}
	}
	return out
}

// HistorySummary aggregates several weeks by summing per-week totals.
type HistorySummary struct {
	Weeks                 []WeeklySummary `json:"weeks"`
	TaskEarnings          int             `json:"task_earnings"`
	DailyEarnings         int             `json:"daily_earnings"`
	WeeklyBonuses         int             `json:"weekly_bonuses"`
	FlatRateTotal         int             `json:"flat_rate_total"`
	PerfectDays           int             `json:"perfect_days"`
	PerfectWeeks          int             `json:"perfect_weeks"`
	AverageCompletionRate int             `json:"average_completion_rate"`
}

// History groups completions by week and sums the weekly summaries. Each week
// is scored against the chores it actually had (see choresForWeek), so
// retiring a chore keeps what it already earned. Weeks are listed oldest first. The average completion rate is the rounded mean
// of the weekly percentages; with no weeks it is zero.
func History(chores []model.Chore, completions []model.ChoreCompletion, settings model.FamilySettings) HistorySummary {
	byWeek := make(map[string][]model.ChoreCompletion)
	for _, c := range completions {
		byWeek[c.WeekStart] = append(byWeek[c.WeekStart], c)
	}
	weeks := make([]string, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)

	var h HistorySummary
	percentSum := 0
	for _, w := range weeks {
		s := summarize(w, choresForWeek(chores, byWeek[w], w), byWeek[w], settings)
		h.Weeks = append(h.Weeks, s)
		h.TaskEarnings += s.TaskEarnings
		h.DailyEarnings += s.DailyEarnings
		h.WeeklyBonuses += s.WeeklyBonus
		h.FlatRateTotal += s.FlatRateTotal
		h.PerfectDays += s.PerfectDays
		if s.ActiveChores > 0 && s.PerfectDays == len(s.PerDay) {
			h.PerfectWeeks++
		}
		percentSum += s.CompletionPercent
	}
	if len(h.Weeks) > 0 {
		h.AverageCompletionRate = roundDiv(percentSum, len(h.Weeks))
	}
	return h
}

func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
