package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/routine"
	"github.com/dukerupert/chorestar/internal/store"
	"github.com/dukerupert/chorestar/internal/tracker"
	"github.com/dukerupert/chorestar/internal/websocket"
)

// RoutineNotifier is told when a child finishes a routine for the first time
// on a given day.
type RoutineNotifier interface {
	NotifyRoutineCompleted(child *model.Child, r *model.Routine)
}

type RoutineHandler struct {
	routineStore *store.RoutineStore
	childStore   *store.ChildStore
	hub          *websocket.Hub
	notifier     RoutineNotifier
	loc          *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

func NewRoutineHandler(rs *store.RoutineStore, chs *store.ChildStore, hub *websocket.Hub, notifier RoutineNotifier, loc *time.Location, logger *slog.Logger) *RoutineHandler {
	if loc == nil {
		loc = time.Local
	}
	return &RoutineHandler{
		routineStore: rs,
		childStore:   chs,
		hub:          hub,
		notifier:     notifier,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}

func (h *RoutineHandler) broadcast(entity, action string, id, childID int64) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(entity, action, id, map[string]any{"child_id": childID}))
	}
}

type routineRequest struct {
	Name         string                `json:"name"`
	Category     model.RoutineCategory `json:"category"`
	Icon         string                `json:"icon"`
	Color        string                `json:"color"`
	RewardAmount int                   `json:"reward_amount"`
	Active       *bool                 `json:"active"`
}

type stepRequest struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Icon            string `json:"icon"`
	DurationSeconds *int   `json:"duration_seconds"`
}

func (h *RoutineHandler) getChild(id int64) (*model.Child, error) {
	child, err := h.childStore.GetByID(id)
	if err != nil {
		return nil, apperr.Persistence("get child", err)
	}
	if child == nil {
		return nil, apperr.NotFound("child", id)
	}
	return child, nil
}

func (h *RoutineHandler) getRoutine(r *http.Request) (*model.Routine, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return nil, apperr.Validation("invalid id")
	}
	rt, err := h.routineStore.GetByID(id)
	if err != nil {
		return nil, apperr.Persistence("get routine", err)
	}
	if rt == nil {
		return nil, apperr.NotFound("routine", id)
	}
	return rt, nil
}

func (h *RoutineHandler) steps(routineID int64) ([]model.RoutineStep, error) {
	steps, err := h.routineStore.ListSteps(routineID)
	if err != nil {
		return nil, apperr.Persistence("list steps", err)
	}
	if steps == nil {
		steps = []model.RoutineStep{}
	}
	return steps, nil
}

// List handles GET /api/children/{id}/routines
func (h *RoutineHandler) List(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	routines, err := h.routineStore.ListByChild(childID)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list routines", err))
		return
	}
	if routines == nil {
		routines = []model.Routine{}
	}
	writeJSON(w, http.StatusOK, routines)
}

type todayRoutine struct {
	model.Routine
	StepCount      int  `json:"step_count"`
	CompletedToday bool `json:"completed_today"`
}

// Today handles GET /api/children/{id}/routines/today. Only active routines
// are listed.
func (h *RoutineHandler) Today(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if _, err := h.getChild(childID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	routines, err := h.routineStore.ListByChild(childID)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list routines", err))
		return
	}
	done, err := h.routineStore.CompletedRoutineIDs(childID, routine.Date(h.now().In(h.loc)))
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list routine completions", err))
		return
	}

	out := []todayRoutine{}
	for _, rt := range routines {
		if !rt.Active {
			continue
		}
		steps, err := h.steps(rt.ID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		out = append(out, todayRoutine{Routine: rt, StepCount: len(steps), CompletedToday: done[rt.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/children/{id}/routines
func (h *RoutineHandler) Create(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if _, err := h.getChild(childID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	rt, err := model.NewRoutine(childID, req.Name, req.Category, req.Icon, req.Color, req.RewardAmount, active)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.routineStore.Create(rt)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("create routine", err))
		return
	}

	h.broadcast(websocket.EntityRoutine, "created", created.ID, childID)

	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/routines/{id}
func (h *RoutineHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req routineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	if req.Category == "" {
		req.Category = existing.Category
	}
	rt, err := model.NewRoutine(existing.ChildID, req.Name, req.Category, req.Icon, req.Color, req.RewardAmount, active)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.routineStore.Update(existing.ID, rt)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("update routine", err))
		return
	}

	h.broadcast(websocket.EntityRoutine, "updated", existing.ID, existing.ChildID)

	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/routines/{id}. Steps and completions go with it.
func (h *RoutineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.routineStore.Delete(existing.ID); err != nil {
		writeError(w, h.logger, apperr.Persistence("delete routine", err))
		return
	}

	h.broadcast(websocket.EntityRoutine, "deleted", existing.ID, existing.ChildID)

	w.WriteHeader(http.StatusNoContent)
}

// Steps handles GET /api/routines/{id}/steps
func (h *RoutineHandler) Steps(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	steps, err := h.steps(rt.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (h *RoutineHandler) saveSteps(w http.ResponseWriter, rt *model.Routine, steps []model.RoutineStep, status int) {
	saved, err := h.routineStore.ReplaceSteps(rt.ID, steps)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("save steps", err))
		return
	}
	if saved == nil {
		saved = []model.RoutineStep{}
	}

	h.broadcast(websocket.EntityRoutineStep, "updated", rt.ID, rt.ChildID)

	writeJSON(w, status, saved)
}

// ReplaceSteps handles PUT /api/routines/{id}/steps with the full ordered list.
func (h *RoutineHandler) ReplaceSteps(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req []stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	steps := make([]model.RoutineStep, 0, len(req))
	for i, sr := range req {
		st, err := model.NewRoutineStep(sr.Title, sr.Description, sr.Icon, sr.DurationSeconds)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if st.Title == "" {
			writeError(w, h.logger, apperr.Validation("step %d: title is required", i))
			return
		}
		st.ID = sr.ID
		st.RoutineID = rt.ID
		steps = append(steps, st)
	}

	h.saveSteps(w, rt, routine.Renumber(steps), http.StatusOK)
}

// AddStep handles POST /api/routines/{id}/steps. The body is optional; an
// empty one appends an untitled step.
func (h *RoutineHandler) AddStep(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req stepRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON")
			return
		}
	}
	st, err := model.NewRoutineStep(req.Title, req.Description, req.Icon, req.DurationSeconds)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	steps, err := h.steps(rt.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	steps = routine.AddStep(steps)
	last := &steps[len(steps)-1]
	last.RoutineID = rt.ID
	last.Title = st.Title
	last.Description = st.Description
	last.Icon = st.Icon
	last.DurationSeconds = st.DurationSeconds

	h.saveSteps(w, rt, steps, http.StatusCreated)
}

// ReorderSteps handles POST /api/routines/{id}/steps/reorder
func (h *RoutineHandler) ReorderSteps(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.From == nil || req.To == nil {
		badRequest(w, "from and to are required")
		return
	}

	steps, err := h.steps(rt.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	reordered, err := routine.Reorder(steps, *req.From, *req.To)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.saveSteps(w, rt, reordered, http.StatusOK)
}

// RemoveStep handles DELETE /api/routines/{id}/steps/{index}
func (h *RoutineHandler) RemoveStep(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		badRequest(w, "invalid index")
		return
	}

	steps, err := h.steps(rt.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	remaining, err := routine.RemoveStep(steps, index)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.saveSteps(w, rt, remaining, http.StatusOK)
}

// Run handles POST /api/routines/{id}/runs. steps_total, when sent, must match
// the routine's current step count so a run against a stale checklist is
// rejected.
func (h *RoutineHandler) Run(w http.ResponseWriter, r *http.Request) {
	rt, err := h.getRoutine(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !rt.Active {
		writeError(w, h.logger, apperr.Validation("routine %q is not active", rt.Name))
		return
	}

	var req struct {
		StepsCompleted int `json:"steps_completed"`
		StepsTotal     int `json:"steps_total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	steps, err := h.steps(rt.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.StepsTotal != 0 && req.StepsTotal != len(steps) {
		writeError(w, h.logger, apperr.Validation("routine has %d steps, run reported %d", len(steps), req.StepsTotal))
		return
	}

	result, err := tracker.RunRoutine(h.routineStore, *rt, steps, req.StepsCompleted, h.now().In(h.loc))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if result.Created {
		h.broadcast(websocket.EntityRoutineCompletion, "created", result.Completion.ID, rt.ChildID)
		if h.notifier != nil {
			child, err := h.childStore.GetByID(rt.ChildID)
			if err != nil {
				h.logger.Warn("load child for notification", "child_id", rt.ChildID, "error", err)
			}
			go h.notifier.NotifyRoutineCompleted(child, rt)
		}
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// Runs handles GET /api/children/{id}/routines/runs?limit=N
func (h *RoutineHandler) Runs(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			badRequest(w, "limit must be 1-500")
			return
		}
		limit = n
	}

	runs, err := h.routineStore.ListCompletionsByChild(childID, limit)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list routine runs", err))
		return
	}
	if runs == nil {
		runs = []model.RoutineCompletion{}
	}
	writeJSON(w, http.StatusOK, runs)
}
