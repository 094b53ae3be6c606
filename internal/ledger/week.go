package ledger

import (
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
)

const (
	DaysPerWeek = 7
	dateLayout  = "2006-01-02"
)

// WeekStart returns the Sunday that begins t's week, formatted YYYY-MM-DD in t's location.
func WeekStart(t time.Time) string {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday())).Format(dateLayout)
}

// DayOfWeek returns 0 for Sunday through 6 for Saturday.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday())
}

// ParseWeekStart parses a YYYY-MM-DD date and rejects anything that is not a Sunday.
func ParseWeekStart(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("week_start must be YYYY-MM-DD")
	}
	if d.Weekday() != time.Sunday {
		return time.Time{}, apperr.Validation("week_start %s is not a Sunday", s)
	}
	return d, nil
}

// ValidDay reports whether day is a valid day-of-week index.
func ValidDay(day int) bool {
	return day >= 0 && day < DaysPerWeek
}

// DateOf returns the calendar date of day within the week starting at weekStart.
func DateOf(weekStart string, day int) (string, error) {
	start, err := ParseWeekStart(weekStart)
	if err != nil {
		return "", err
	}
	if !ValidDay(day) {
		return "", apperr.Validation("day_of_week must be 0-6")
	}
	return start.AddDate(0, 0, day).Format(dateLayout), nil
}
