package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/store"
	"github.com/dukerupert/chorestar/internal/websocket"
)

type ChoreHandler struct {
	choreStore *store.ChoreStore
	childStore *store.ChildStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, chs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, childStore: chs, hub: hub, logger: logger}
}

// broadcast tags chore messages with the owning child so only that child's
// boards reload.
func (h *ChoreHandler) broadcast(action string, chore *model.Chore) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityChore, action, chore.ID, map[string]any{"child_id": chore.ChildID}))
	}
}

type choreRequest struct {
	Name         string `json:"name"`
	RewardAmount int    `json:"reward_amount"`
	Active       *bool  `json:"active"`
	Icon         string `json:"icon"`
	Category     string `json:"category"`
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	chores, err := h.choreStore.ListByChild(childID)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list chores", err))
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	child, err := h.childStore.GetByID(childID)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get child", err))
		return
	}
	if child == nil {
		writeError(w, h.logger, apperr.NotFound("child", childID))
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	c, err := model.NewChore(childID, req.Name, req.RewardAmount, active, req.Icon, req.Category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	chore, err := h.choreStore.Create(c)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("create chore", err))
		return
	}

	h.broadcast("created", chore)

	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	existing, err := h.choreStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get chore", err))
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("chore", id))
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	if req.Icon == "" {
		req.Icon = existing.Icon
	}
	c, err := model.NewChore(existing.ChildID, req.Name, req.RewardAmount, active, req.Icon, req.Category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	chore, err := h.choreStore.Update(id, c)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("update chore", err))
		return
	}

	h.broadcast("updated", chore)

	writeJSON(w, http.StatusOK, chore)
}

// Delete removes a chore together with its completions.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	existing, err := h.choreStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get chore", err))
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("chore", id))
		return
	}

	if err := h.choreStore.Delete(id); err != nil {
		writeError(w, h.logger, apperr.Persistence("delete chore", err))
		return
	}

	h.broadcast("deleted", existing)

	w.WriteHeader(http.StatusNoContent)
}
