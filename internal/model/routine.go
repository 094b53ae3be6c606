package model

import (
	"strings"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
)

type RoutineCategory string

const (
	RoutineMorning     RoutineCategory = "morning"
	RoutineBedtime     RoutineCategory = "bedtime"
	RoutineAfterschool RoutineCategory = "afterschool"
	RoutineCustom      RoutineCategory = "custom"
)

const DefaultStepIcon = "⭐"

func (c RoutineCategory) Valid() bool {
	switch c {
	case RoutineMorning, RoutineBedtime, RoutineAfterschool, RoutineCustom:
		return true
	}
	return false
}

type Routine struct {
	ID           int64           `json:"id"`
	ChildID      int64           `json:"child_id"`
	Name         string          `json:"name"`
	Category     RoutineCategory `json:"category"`
	Icon         string          `json:"icon"`
	Color        string          `json:"color"`
	RewardAmount int             `json:"reward_amount"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// RoutineStep is one entry of a routine's checklist. OrderIndex is dense and
// zero-based within the routine.
type RoutineStep struct {
	ID              int64  `json:"id"`
	RoutineID       int64  `json:"routine_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Icon            string `json:"icon"`
	OrderIndex      int    `json:"order_index"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
}

// RoutineCompletion records one full run of a routine. Date is YYYY-MM-DD.
type RoutineCompletion struct {
	ID             int64     `json:"id"`
	RoutineID      int64     `json:"routine_id"`
	ChildID        int64     `json:"child_id"`
	CompletedAt    time.Time `json:"completed_at"`
	StepsCompleted int       `json:"steps_completed"`
	StepsTotal     int       `json:"steps_total"`
	PointsEarned   int       `json:"points_earned"`
	Date           string    `json:"date"`
}

// NewRoutine validates the editable fields of a routine. An empty category
// defaults to custom.
func NewRoutine(childID int64, name string, category RoutineCategory, icon, color string, rewardAmount int, active bool) (Routine, error) {
	if childID <= 0 {
		return Routine{}, apperr.Validation("child_id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Routine{}, apperr.Validation("name is required")
	}
	if category == "" {
		category = RoutineCustom
	}
	if !category.Valid() {
		return Routine{}, apperr.Validation("unknown category %q", category)
	}
	if rewardAmount < 0 {
		return Routine{}, apperr.Validation("reward_amount must be >= 0")
	}
	color = strings.TrimSpace(color)
	if color != "" && !hexColor.MatchString(color) {
		return Routine{}, apperr.Validation("color must be #RRGGBB")
	}
	return Routine{
		ChildID:      childID,
		Name:         name,
		Category:     category,
		Icon:         strings.TrimSpace(icon),
		Color:        color,
		RewardAmount: rewardAmount,
		Active:       active,
	}, nil
}

// NewRoutineStep validates a step. Steps added from the editor start with an
// empty title, so only the duration is checked here; the title is required
// when the routine's steps are saved.
func NewRoutineStep(title, description, icon string, durationSeconds *int) (RoutineStep, error) {
	if durationSeconds != nil && *durationSeconds <= 0 {
		return RoutineStep{}, apperr.Validation("duration_seconds must be positive")
	}
	icon = strings.TrimSpace(icon)
	if icon == "" {
		icon = DefaultStepIcon
	}
	return RoutineStep{
		Title:           strings.TrimSpace(title),
		Description:     strings.TrimSpace(description),
		Icon:            icon,
		DurationSeconds: durationSeconds,
	}, nil
}
