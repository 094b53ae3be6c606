// Package ledger records which chores were completed on which day of which
// week. A Ledger is an immutable value: every mutation returns a new Ledger,
// so a caller can keep the previous value around to roll back to.
package ledger

import (
	"time"

	"github.com/dukerupert/chorestar/internal/model"
)

// Slot identifies one cell of the weekly grid.
type Slot struct {
	ChoreID   int64
	DayOfWeek int
	WeekStart string
}

func slotOf(c model.ChoreCompletion) Slot {
	return Slot{ChoreID: c.ChoreID, DayOfWeek: c.DayOfWeek, WeekStart: c.WeekStart}
}

// Change describes the effect of one Toggle.
type Change struct {
	Slot Slot
	// Completed is true when the toggle inserted a completion and false when it removed one.
	Completed  bool
	Completion model.ChoreCompletion
}

type Ledger struct {
	completions []model.ChoreCompletion
}

// New builds a ledger from stored rows. Rows that repeat an earlier slot are dropped.
func New(completions []model.ChoreCompletion) Ledger {
	seen := make(map[Slot]bool, len(completions))
	out := make([]model.ChoreCompletion, 0, len(completions))
	for _, c := range completions {
		s := slotOf(c)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, c)
	}
	return Ledger{completions: out}
}

func (l Ledger) Len() int {
	return len(l.completions)
}

// Completions returns a copy of every completion in the ledger.
func (l Ledger) Completions() []model.ChoreCompletion {
	out := make([]model.ChoreCompletion, len(l.completions))
	copy(out, l.completions)
	return out
}

func (l Ledger) find(s Slot) int {
	for i, c := range l.completions {
		if slotOf(c) == s {
			return i
		}
	}
	return -1
}

// IsCompleted reports whether the chore has a completion on day of the given week.
func (l Ledger) IsCompleted(choreID int64, day int, weekStart string) bool {
	return l.find(Slot{ChoreID: choreID, DayOfWeek: day, WeekStart: weekStart}) >= 0
}

// Toggle removes the slot's completion if there is one, otherwise inserts one
// stamped with now. Each call flips the slot exactly once.
func (l Ledger) Toggle(s Slot, now time.Time) (Ledger, Change) {
	if i := l.find(s); i >= 0 {
		removed := l.completions[i]
		return l.without(i), Change{Slot: s, Completed: false, Completion: removed}
	}
	added := model.ChoreCompletion{
		ChoreID:     s.ChoreID,
		DayOfWeek:   s.DayOfWeek,
		WeekStart:   s.WeekStart,
		CompletedAt: now,
	}
	return l.with(added), Change{Slot: s, Completed: true, Completion: added}
}

// Revert undoes a Change previously returned by Toggle.
func (l Ledger) Revert(ch Change) Ledger {
	i := l.find(ch.Slot)
	if ch.Completed {
		if i < 0 {
			return l
		}
		return l.without(i)
	}
	if i >= 0 {
		return l
	}
	return l.with(ch.Completion)
}

// Replace swaps the completion stored for c's slot, used once the store has
// assigned the row its ID.
func (l Ledger) Replace(c model.ChoreCompletion) Ledger {
	i := l.find(slotOf(c))
	if i < 0 {
		return l
	}
	out := l.Completions()
	out[i] = c
	return Ledger{completions: out}
}

// CompletionsForWeek returns every completion whose week-start matches.
func (l Ledger) CompletionsForWeek(weekStart string) []model.ChoreCompletion {
	var out []model.ChoreCompletion
	for _, c := range l.completions {
		if c.WeekStart == weekStart {
			out = append(out, c)
		}
	}
	return out
}

func (l Ledger) with(c model.ChoreCompletion) Ledger {
	out := make([]model.ChoreCompletion, len(l.completions), len(l.completions)+1)
	copy(out, l.completions)
	return Ledger{completions: append(out, c)}
}

func (l Ledger) without(i int) Ledger {
	out := make([]model.ChoreCompletion, 0, len(l.completions)-1)
	out = append(out, l.completions[:i]...)
	out = append(out, l.completions[i+1:]...)
	return Ledger{completions: out}
}
