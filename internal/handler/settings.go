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

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.Get()
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get settings", err))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update replaces the family settings. Omitted text fields keep their
// current value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.settingsStore.Get()
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("get settings", err))
		return
	}

	req := struct {
		DailyReward int    `json:"daily_reward"`
		WeeklyBonus int    `json:"weekly_bonus"`
		Currency    string `json:"currency"`
		Locale      string `json:"locale"`
		DateFormat  string `json:"date_format"`
	}{
		DailyReward: current.DailyReward,
		WeeklyBonus: current.WeeklyBonus,
		Currency:    current.Currency,
		Locale:      current.Locale,
		DateFormat:  current.DateFormat,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	fs, err := model.NewFamilySettings(req.DailyReward, req.WeeklyBonus, req.Currency, req.Locale, req.DateFormat)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	saved, err := h.settingsStore.Save(fs)
	if err != nil {
		writeError(w, h.logger, apperr.Persistence("save settings", err))
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySettings, "updated", 0, nil))

	writeJSON(w, http.StatusOK, saved)
}
