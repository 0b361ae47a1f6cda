package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/services"
)

type DashboardHandler struct {
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewDashboardHandler(tracker *services.Tracker, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{tracker: tracker, logger: logger}
}

// Get refreshes the streak for the server's current day and returns today's
// totals with a 7-day trend. The day is never taken from the client.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	dash, err := h.tracker.Dashboard(r.Context(), uid, h.tracker.Today())
	if err != nil && !errors.Is(err, apperror.ErrMissingProfile) {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
