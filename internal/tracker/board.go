// Package tracker runs the optimistic write path for a child's week: apply a
// toggle locally, commit it to the store, and undo it if the commit fails.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/reward"
	"github.com/dukerupert/chorestar/internal/websocket"
)

// ChoreStore is the part of the chore store a Board reads and writes.
type ChoreStore interface {
	ListByChild(childID int64) ([]model.Chore, error)
	ListCompletionsByWeek(childID int64, weekStart string) ([]model.ChoreCompletion, error)
	InsertCompletion(choreID int64, day int, weekStart string, completedAt time.Time) (*model.ChoreCompletion, error)
	DeleteCompletion(choreID int64, day int, weekStart string) error
}

type SettingsStore interface {
	Get() (*model.FamilySettings, error)
}

// View is a snapshot of a board for rendering.
type View struct {
	ChildID   int64                `json:"child_id"`
	WeekStart string               `json:"week_start"`
	Grid      []ledger.GridRow     `json:"grid"`
	Summary   reward.WeeklySummary `json:"summary"`
	Settings  model.FamilySettings `json:"settings"`
}

// Board holds one child's chores, completions and settings for one week.
// The summary is recomputed from scratch after every change.
type Board struct {
	childID   int64
	weekStart string
	chores    ChoreStore
	settings  SettingsStore
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	list    []model.Chore
	ledger  ledger.Ledger
	family  model.FamilySettings
	summary reward.WeeklySummary
}

func NewBoard(childID int64, weekStart string, chores ChoreStore, settings SettingsStore, logger *slog.Logger) *Board {
	return &Board{
		childID:   childID,
		weekStart: weekStart,
		chores:    chores,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
		family:    model.DefaultFamilySettings(),
	}
}

// Load replaces the board's state with a fresh read from the stores.
func (b *Board) Load() error {
	chores, err := b.chores.ListByChild(b.childID)
	if err != nil {
		return apperr.Persistence("load chores", err)
	}
	completions, err := b.chores.ListCompletionsByWeek(b.childID, b.weekStart)
	if err != nil {
		return apperr.Persistence("load completions", err)
	}
	fs, err := b.settings.Get()
	if err != nil {
		return apperr.Persistence("load settings", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = chores
	b.ledger = ledger.New(completions)
	b.family = *fs
	b.recompute()
	return nil
}

func (b *Board) recompute() {
	b.summary = reward.Summarize(b.weekStart, b.list, b.ledger.Completions(), b.family)
}

// Toggle flips one cell of the grid. The change is visible on the board
// before the store is written; if the write fails the change is undone and
// a persistence error is returned.
func (b *Board) Toggle(choreID int64, day int) (ledger.Change, error) {
	if !ledger.ValidDay(day) {
		return ledger.Change{}, apperr.Validation("day_of_week must be 0-6")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chore := b.chore(choreID)
	if chore == nil {
		return ledger.Change{}, apperr.NotFound("chore", choreID)
	}
	if !chore.Active {
		return ledger.Change{}, apperr.Validation("chore %q is not active", chore.Name)
	}

	// apply
	slot := ledger.Slot{ChoreID: choreID, DayOfWeek: day, WeekStart: b.weekStart}
	next, change := b.ledger.Toggle(slot, b.now())
	b.ledger = next
	b.recompute()

	// commit
	var err error
	if change.Completed {
		var stored *model.ChoreCompletion
		stored, err = b.chores.InsertCompletion(choreID, day, b.weekStart, change.Completion.CompletedAt)
		if err == nil {
			change.Completion = *stored
			b.ledger = b.ledger.Replace(*stored)
		}
	} else {
		err = b.chores.DeleteCompletion(choreID, day, b.weekStart)
	}

	// rollback
	if err != nil {
		b.ledger = b.ledger.Revert(change)
		b.recompute()
		b.logger.Warn("toggle rolled back", "child_id", b.childID, "chore_id", choreID, "day", day, "error", err)
		return ledger.Change{}, apperr.Persistence("toggle completion", err)
	}
	return change, nil
}

func (b *Board) chore(id int64) *model.Chore {
	for i := range b.list {
		if b.list[i].ID == id {
			return &b.list[i]
		}
	}
	return nil
}

// View lays out the active chores only, the same set the summary counts.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return View{
		ChildID:   b.childID,
		WeekStart: b.weekStart,
		Grid:      ledger.BuildGrid(model.ActiveChores(b.list), b.ledger, b.weekStart),
		Summary:   b.summary,
		Settings:  b.family,
	}
}

func (b *Board) Summary() reward.WeeklySummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

func (b *Board) IsCompleted(choreID int64, day int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ledger.IsCompleted(choreID, day, b.weekStart)
}

// Follow reloads the board whenever the hub reports a change to this child's
// chores or completions, to the child itself, or to the family settings.
func (b *Board) Follow(hub *websocket.Hub) (unsubscribe func()) {
	return hub.Subscribe(b.concerns, func(websocket.Message) {
		if err := b.Load(); err != nil {
			b.logger.Error("reload board", "child_id", b.childID, "week_start", b.weekStart, "error", err)
		}
	})
}

func (b *Board) concerns(m websocket.Message) bool {
	switch m.Entity {
	case websocket.EntitySettings:
		return true
	case websocket.EntityChild:
		return m.ID == b.childID
	case websocket.EntityChore, websocket.EntityChoreCompletion:
		id, ok := m.ChildID()
		return !ok || id == b.childID
	}
	return false
}
