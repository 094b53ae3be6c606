// Package routine keeps a routine's steps in a dense order and scores runs.
package routine

import (
	"slices"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
)

// Renumber sets each step's OrderIndex to its position in the slice.
func Renumber(steps []model.RoutineStep) []model.RoutineStep {
	for i := range steps {
		steps[i].OrderIndex = i
	}
	return steps
}

// Reorder moves the step at from to position to. The other steps keep their
// relative order. The input slice is not modified.
func Reorder(steps []model.RoutineStep, from, to int) ([]model.RoutineStep, error) {
	if from < 0 || from >= len(steps) {
		return nil, apperr.Validation("from index %d out of range", from)
	}
	if to < 0 || to >= len(steps) {
		return nil, apperr.Validation("to index %d out of range", to)
	}

	moved := steps[from]
	out := slices.Delete(slices.Clone(steps), from, from+1)
	out = slices.Insert(out, to, moved)
	return Renumber(out), nil
}

// AddStep appends an untitled step with the default icon.
func AddStep(steps []model.RoutineStep) []model.RoutineStep {
	out := make([]model.RoutineStep, len(steps), len(steps)+1)
	copy(out, steps)
	var routineID int64
	if len(steps) > 0 {
		routineID = steps[0].RoutineID
	}
	out = append(out, model.RoutineStep{
		RoutineID:  routineID,
		Icon:       model.DefaultStepIcon,
		OrderIndex: len(steps),
	})
	return out
}

// RemoveStep deletes the step at index and closes the gap.
func RemoveStep(steps []model.RoutineStep, index int) ([]model.RoutineStep, error) {
	if index < 0 || index >= len(steps) {
		return nil, apperr.Validation("step index %d out of range", index)
	}
	out := slices.Delete(slices.Clone(steps), index, index+1)
	return Renumber(out), nil
}

// RecordRun scores one run of r. Only a full run earns the routine's reward
// and yields a completion to persist; for a partial run full is false and the
// returned completion is the zero value.
func RecordRun(r model.Routine, stepsCompleted, stepsTotal int, now time.Time) (c model.RoutineCompletion, full bool, err error) {
	if stepsTotal < 1 {
		return model.RoutineCompletion{}, false, apperr.Validation("routine has no steps")
	}
	if stepsCompleted < 0 || stepsCompleted > stepsTotal {
		return model.RoutineCompletion{}, false, apperr.Validation("steps_completed must be between 0 and %d", stepsTotal)
	}
	if stepsCompleted != stepsTotal {
		return model.RoutineCompletion{}, false, nil
	}
	return model.RoutineCompletion{
		RoutineID:      r.ID,
		ChildID:        r.ChildID,
		CompletedAt:    now,
		StepsCompleted: stepsCompleted,
		StepsTotal:     stepsTotal,
		PointsEarned:   r.RewardAmount,
		Date:           Date(now),
	}, true, nil
}

// Date is the calendar day of t in t's location, as YYYY-MM-DD.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}
