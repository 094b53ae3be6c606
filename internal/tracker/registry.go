package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/chorestar/internal/websocket"
)

const defaultMaxBoards = 64

type boardKey struct {
	childID   int64
	weekStart string
}

type entry struct {
	board       *Board
	unsubscribe func()
	lastUsed    time.Time
}

// Registry keeps loaded boards live between requests. Each board follows the
// hub, so it is reloaded rather than patched when data changes underneath it.
type Registry struct {
	chores   ChoreStore
	settings SettingsStore
	hub      *websocket.Hub
	logger   *slog.Logger
	max      int

	mu     sync.Mutex
	boards map[boardKey]*entry
}

func NewRegistry(chores ChoreStore, settings SettingsStore, hub *websocket.Hub, logger *slog.Logger) *Registry {
	return &Registry{
		chores:   chores,
		settings: settings,
		hub:      hub,
		logger:   logger,
		max:      defaultMaxBoards,
		boards:   make(map[boardKey]*entry),
	}
}

// Board returns the loaded board for a child's week, loading it on first use.
func (r *Registry) Board(childID int64, weekStart string) (*Board, error) {
	key := boardKey{childID, weekStart}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.boards[key]; ok {
		e.lastUsed = time.Now()
		return e.board, nil
	}

	b := NewBoard(childID, weekStart, r.chores, r.settings, r.logger)
	if err := b.Load(); err != nil {
		return nil, err
	}
	if len(r.boards) >= r.max {
		r.evictOldest()
	}
	unsubscribe := func() {}
	if r.hub != nil {
		unsubscribe = b.Follow(r.hub)
	}
	r.boards[key] = &entry{board: b, unsubscribe: unsubscribe, lastUsed: time.Now()}
	return b, nil
}

// Forget drops every board of a child.
func (r *Registry) Forget(childID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.boards {
		if k.childID == childID {
			e.unsubscribe()
			delete(r.boards, k)
		}
	}
}

func (r *Registry) evictOldest() {
	var oldest boardKey
	var found bool
	for k, e := range r.boards {
		if !found || e.lastUsed.Before(r.boards[oldest].lastUsed) {
			oldest, found = k, true
		}
	}
	if found {
		r.boards[oldest].unsubscribe()
		delete(r.boards, oldest)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Close unsubscribes every board.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.boards {
		e.unsubscribe()
		delete(r.boards, k)
	}
}
