package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/ledger"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/money"
	"github.com/dukerupert/chorestar/internal/reward"
	"github.com/dukerupert/chorestar/internal/store"
	"github.com/dukerupert/chorestar/internal/tracker"
	"github.com/dukerupert/chorestar/internal/websocket"
)

// WeekHandler serves a child's weekly grid and reward totals. Toggles go
// through the child's tracker.Board so the grid updates before the write lands.
type WeekHandler struct {
	childStore    *store.ChildStore
	choreStore    *store.ChoreStore
	settingsStore *store.SettingsStore
	boards        *tracker.Registry
	hub           *websocket.Hub
	loc           *time.Location
	now           func() time.Time
	logger        *slog.Logger
}

func NewWeekHandler(chs *store.ChildStore, cs *store.ChoreStore, ss *store.SettingsStore, boards *tracker.Registry, hub *websocket.Hub, loc *time.Location, logger *slog.Logger) *WeekHandler {
	if loc == nil {
		loc = time.Local
	}
	return &WeekHandler{
		childStore:    chs,
		choreStore:    cs,
		settingsStore: ss,
		boards:        boards,
		hub:           hub,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

func (h *WeekHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// Totals formatted in the family's currency and locale.
type weekDisplay struct {
	TaskEarnings  string `json:"task_earnings"`
	DailyEarnings string `json:"daily_earnings"`
	WeeklyBonus   string `json:"weekly_bonus"`
	FlatRateTotal string `json:"flat_rate_total"`
}

type weekResponse struct {
	tracker.View
	Display weekDisplay `json:"display"`
}

func newWeekResponse(v tracker.View) weekResponse {
	f := func(amount int) string {
		return money.Format(amount, v.Settings.Currency, v.Settings.Locale)
	}
	return weekResponse{
		View: v,
		Display: weekDisplay{
			TaskEarnings:  f(v.Summary.TaskEarnings),
			DailyEarnings: f(v.Summary.DailyEarnings),
			WeeklyBonus:   f(v.Summary.WeeklyBonus),
			FlatRateTotal: f(v.Summary.FlatRateTotal),
		},
	}
}

// weekStart resolves an optional YYYY-MM-DD Sunday, defaulting to the
// current week.
func (h *WeekHandler) weekStart(s string) (string, error) {
	if s == "" {
		return ledger.WeekStart(h.now().In(h.loc)), nil
	}
	if _, err := ledger.ParseWeekStart(s); err != nil {
		return "", err
	}
	return s, nil
}

func (h *WeekHandler) child(id int64) (*model.Child, error) {
	child, err := h.childStore.GetByID(id)
	if err != nil {
		return nil, apperr.Persistence("get child", err)
	}
	if child == nil {
		return nil, apperr.NotFound("child", id)
	}
	return child, nil
}

// Get handles GET /api/children/{id}/week?start=YYYY-MM-DD
func (h *WeekHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if _, err := h.child(id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	start, err := h.weekStart(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	board, err := h.boards.Board(id, start)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newWeekResponse(board.View()))
}

type toggleRequest struct {
	ChoreID   int64  `json:"chore_id"`
	DayOfWeek *int   `json:"day_of_week"`
	WeekStart string `json:"week_start"`
}

// Toggle handles POST /api/children/{id}/week/toggle
func (h *WeekHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.ChoreID <= 0 {
		badRequest(w, "chore_id is required")
		return
	}
	if req.DayOfWeek == nil {
		badRequest(w, "day_of_week is required")
		return
	}

	if _, err := h.child(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, err := h.weekStart(req.WeekStart)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	board, err := h.boards.Board(id, start)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	change, err := board.Toggle(req.ChoreID, *req.DayOfWeek)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	action := "deleted"
	if change.Completed {
		action = "created"
	}
	h.broadcast(websocket.NewMessage(websocket.EntityChoreCompletion, action, change.Completion.ID, map[string]any{
		"child_id":    id,
		"chore_id":    req.ChoreID,
		"day_of_week": *req.DayOfWeek,
		"week_start":  start,
	}))

	writeJSON(w, http.StatusOK, struct {
		Completed bool         `json:"completed"`
		Week      weekResponse `json:"week"`
	}{change.Completed, newWeekResponse(board.View())})
}

type historyResponse struct {
	reward.HistorySummary
	Display weekDisplay `json:"display"`
}

// History handles GET /api/children/{id}/history
func (h *WeekHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if _, err := h.child(id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	chores, err := h.choreStore.ListByChild(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list chores", err))
		return
	}
	completions, err := h.choreStore.ListCompletionsByChild(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list completions", err))
		return
	}
	settings, err := h.settingsStore.Get()
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get settings", err))
		return
	}

	hist := reward.History(chores, completions, *settings)
	if hist.Weeks == nil {
		hist.Weeks = []reward.WeeklySummary{}
	}
	f := func(amount int) string {
		return money.Format(amount, settings.Currency, settings.Locale)
	}
	writeJSON(w, http.StatusOK, historyResponse{
		HistorySummary: hist,
		Display: weekDisplay{
			TaskEarnings:  f(hist.TaskEarnings),
			DailyEarnings: f(hist.DailyEarnings),
			WeeklyBonus:   f(hist.WeeklyBonuses),
			FlatRateTotal: f(hist.FlatRateTotal),
		},
	})
}
