package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/services"
)

type AchievementHandler struct {
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewAchievementHandler(tracker *services.Tracker, logger *zap.Logger) *AchievementHandler {
	return &AchievementHandler{tracker: tracker, logger: logger}
}

// List shows progress for every achievement. It never awards.
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	progress, err := h.tracker.Progress(r.Context(), uid, h.tracker.Today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": progress})
}
