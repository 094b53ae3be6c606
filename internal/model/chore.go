package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const DefaultChoreIcon = "🧹"

// Chore is a repeatable task owned by one child. RewardAmount is in minor currency units.
type Chore struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	Name         string    `json:"name"`
	RewardAmount int       `json:"reward_amount"`
	Active       bool      `json:"active"`
	Icon         string    `json:"icon"`
	Category     string    `json:"category"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChoreCompletion marks a chore done on one day of one week. WeekStart is the
// Sunday that begins the week, formatted YYYY-MM-DD. DayOfWeek is 0 (Sunday) to 6.
type ChoreCompletion struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	DayOfWeek   int       `json:"day_of_week"`
	WeekStart   string    `json:"week_start"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewChore validates the editable fields of a chore.
func NewChore(childID int64, name string, rewardAmount int, active bool, icon, category string) (Chore, error) {
	if childID <= 0 {
		return Chore{}, apperr.Validation("child_id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Chore{}, apperr.Validation("name is required")
	}
	if rewardAmount < 0 {
		return Chore{}, apperr.Validation("reward_amount must be >= 0")
	}
	icon = strings.TrimSpace(icon)
	if icon == "" {
		icon = DefaultChoreIcon
	}
	return Chore{
		ChildID:      childID,
		Name:         name,
		RewardAmount: rewardAmount,
		Active:       active,
		Icon:         icon,
		Category:     strings.ToLower(strings.TrimSpace(category)),
	}, nil
}

// ActiveChores filters chores down to those with the active flag set.
func ActiveChores(chores []Chore) []Chore {
	var active []Chore
	for _, c := range chores {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}
