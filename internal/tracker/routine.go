package tracker

import (
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/routine"
)

type RoutineRecorder interface {
	CreateCompletion(c model.RoutineCompletion) (*model.RoutineCompletion, bool, error)
}

// RunResult is the outcome of one routine run. Completion is nil for a
// partial run. Created is false when the routine was already completed that day.
type RunResult struct {
	Completion *model.RoutineCompletion `json:"completion"`
	State      string                   `json:"state"`
	Progress   int                      `json:"progress"`
	Full       bool                     `json:"full"`
	Created    bool                     `json:"created"`
}

// RunRoutine replays a run as a session over the routine's current steps and
// stores it if every step was done. A partial run stores nothing.
func RunRoutine(store RoutineRecorder, r model.Routine, steps []model.RoutineStep, stepsCompleted int, now time.Time) (RunResult, error) {
	session := routine.NewSession(r, steps)
	if err := session.MarkFirst(stepsCompleted); err != nil {
		return RunResult{}, err
	}
	c, full, err := session.Finish(now)
	if err != nil {
		return RunResult{}, err
	}
	res := RunResult{State: session.State().String(), Progress: session.Progress()}
	if !full {
		return res, nil
	}

	stored, created, err := store.CreateCompletion(c)
	if err != nil {
		return RunResult{}, apperr.Persistence("record routine run", err)
	}
	res.Completion = stored
	res.Full = true
	res.Created = created
	return res, nil
}
