package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorestar/internal/apperr"
	"github.com/dukerupert/chorestar/internal/model"
	"github.com/dukerupert/chorestar/internal/store"
	"github.com/dukerupert/chorestar/internal/tracker"
	"github.com/dukerupert/chorestar/internal/websocket"
)

type ChildHandler struct {
	store  *store.ChildStore
	boards *tracker.Registry
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChildHandler(s *store.ChildStore, boards *tracker.Registry, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{store: s, boards: boards, hub: hub, logger: logger}
}

func (h *ChildHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type childRequest struct {
	Name        string `json:"name"`
	AvatarEmoji string `json:"avatar_emoji"`
	Color       string `json:"color"`
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.List()
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("list children", err))
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	c, err := model.NewChild(req.Name, req.AvatarEmoji, req.Color)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	child, err := h.store.Create(c)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("create child", err))
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "created", child.ID, nil))

	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get child", err))
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("child", id))
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = existing.AvatarEmoji
	}
	if req.Color == "" {
		req.Color = existing.Color
	}

	c, err := model.NewChild(req.Name, req.AvatarEmoji, req.Color)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	child, err := h.store.Update(id, c)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("update child", err))
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "updated", id, nil))

	writeJSON(w, http.StatusOK, child)
}

// Delete removes a child. Chores, completions and routines go with it.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get child", err))
		return
	}
	if existing == nil {
		writeError(w, h.logger, apperr.NotFound("child", id))
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeError(w, h.logger, apperr.Persistence("delete child", err))
		return
	}

	if h.boards != nil {
		h.boards.Forget(id)
	}
	h.broadcast(websocket.NewMessage(websocket.EntityChild, "deleted", id, nil))

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChildHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	if len(req.IDs) == 0 {
		badRequest(w, "ids are required")
		return
	}

	if err := h.store.UpdateSortOrder(req.IDs); err != nil {
		writeError(w, h.logger, apperr.Persistence("update sort order", err))
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "reordered", 0, nil))

	w.WriteHeader(http.StatusNoContent)
}
