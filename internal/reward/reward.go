// Package reward derives earnings from chore completions.
//
// Two models coexist and are kept apart on purpose. The per-chore model pays
// each chore's reward for every completion (TaskEarnings, TotalEarnings). The
// flat-rate model pays a fixed amount for every day with any completion
// (DailyEarnings) plus a bonus for a perfect week (WeeklyBonus). Neither is
// derived from the other.
package reward

import (
	"math"

	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
)

// PerDay holds completion counts indexed by day-of-week, Sunday first.
type PerDay [ledger.DaysPerWeek]int

// TaskEarnings is the chore's reward times its number of completions.
// Completions belonging to other chores are ignored.
func TaskEarnings(chore model.Chore, completions []model.ChoreCompletion) int {
	n := 0
	for _, c := range completions {
		if c.ChoreID == chore.ID {
			n++
		}
	}
	return n * chore.RewardAmount
}

// TotalEarnings sums TaskEarnings over chores.
func TotalEarnings(chores []model.Chore, completions []model.ChoreCompletion) int {
	total := 0
	for _, c := range chores {
		total += TaskEarnings(c, completions)
	}
	return total
}

// CompletionsPerDay counts completions on each day of the week.
func CompletionsPerDay(completions []model.ChoreCompletion) PerDay {
	var perDay PerDay
	for _, c := range completions {
		if ledger.ValidDay(c.DayOfWeek) {
			perDay[c.DayOfWeek]++
		}
	}
	return perDay
}

// DailyEarnings pays dailyReward once for every day with at least one
// completion, however many chores were done that day.
func DailyEarnings(dailyReward int, perDay PerDay) int {
	total := 0
	for _, n := range perDay {
		if n >= 1 {
			total += dailyReward
		}
	}
	return total
}

// WeeklyBonus pays bonus when every day of the week has at least taskCount
// completions. A child with no chores never earns it.
func WeeklyBonus(bonus int, perDay PerDay, taskCount int) int {
	if taskCount <= 0 {
		return 0
	}
	for _, n := range perDay {
		if n < taskCount {
			return 0
		}
	}
	return bonus
}

// IsPerfectDay reports whether count completions cover all taskCount chores.
func IsPerfectDay(count, taskCount int) bool {
	return taskCount > 0 && count >= taskCount
}

// PerfectDays counts the perfect days of a week.
func PerfectDays(perDay PerDay, taskCount int) int {
	n := 0
	for _, count := range perDay {
		if IsPerfectDay(count, taskCount) {
			n++
		}
	}
	return n
}

// CompletionPercentage is the share of perfect days in a week, rounded to a whole percent.
func CompletionPercentage(perfectDays int) int {
	return int(math.Round(float64(perfectDays) / ledger.DaysPerWeek * 100))
}
