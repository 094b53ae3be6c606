package routine

import (
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
)

type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Session tracks one child working through a routine. It is never persisted;
// dropping a session mid-run leaves nothing behind.
type Session struct {
	routine model.Routine
	steps   []model.RoutineStep
	done    []bool
	state   State
}

func NewSession(r model.Routine, steps []model.RoutineStep) *Session {
	return &Session{
		routine: r,
		steps:   steps,
		done:    make([]bool, len(steps)),
	}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Steps() []model.RoutineStep {
	return s.steps
}

// MarkStep checks off step i. The first interaction starts the session and
// checking the last open step completes it.
func (s *Session) MarkStep(i int) error {
	return s.set(i, true)
}

// UnmarkStep clears step i. A completed session stays completed.
func (s *Session) UnmarkStep(i int) error {
	return s.set(i, false)
}

func (s *Session) set(i int, v bool) error {
	if i < 0 || i >= len(s.done) {
		return apperr.Validation("step index %d out of range", i)
	}
	if s.state == Completed {
		return nil
	}
	s.done[i] = v
	s.state = InProgress
	if s.Progress() == len(s.done) {
		s.state = Completed
	}
	return nil
}

// MarkFirst checks off the first n steps, as reported by a client that ran
// the routine top to bottom.
func (s *Session) MarkFirst(n int) error {
	if n < 0 || n > len(s.done) {
		return apperr.Validation("steps_completed must be between 0 and %d", len(s.done))
	}
	for i := 0; i < n; i++ {
		if err := s.MarkStep(i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) IsMarked(i int) bool {
	return i >= 0 && i < len(s.done) && s.done[i]
}

// Progress is the number of checked steps.
func (s *Session) Progress() int {
	n := 0
	for _, d := range s.done {
		if d {
			n++
		}
	}
	return n
}

// Fraction is Progress over the step count, 0 for a routine with no steps.
func (s *Session) Fraction() float64 {
	if len(s.done) == 0 {
		return 0
	}
	return float64(s.Progress()) / float64(len(s.done))
}

// Finish scores the session as it stands. See RecordRun.
func (s *Session) Finish(now time.Time) (model.RoutineCompletion, bool, error) {
	return RecordRun(s.routine, s.Progress(), len(s.done), now)
}
