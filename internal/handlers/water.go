package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/models"
	"nutristreak/internal/services"
)

type WaterHandler struct {
	store   Store
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewWaterHandler(store Store, tracker *services.Tracker, logger *zap.Logger) *WaterHandler {
	return &WaterHandler{store: store, tracker: tracker, logger: logger}
}

type waterResponse struct {
	Water        models.WaterEntry `json:"water"`
	Achievements []services.Award  `json:"achievements"`
	Warning      string            `json:"warning,omitempty"`
}

// Add accumulates amount_ml onto the day's water total.
func (h *WaterHandler) Add(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req waterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	today := h.tracker.Today()
	d, err := entryDay(req.LocalDate, today)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	water, err := h.store.AddWater(r.Context(), uid, d, req.AmountML)
	if err != nil {
		writeError(w, h.logger, apperror.Persistence("add water", err))
		return
	}
	h.tracker.InvalidateReports(r.Context(), uid)

	resp := waterResponse{Water: water, Achievements: []services.Award{}}
	awards, err := h.tracker.EvaluateAndAward(r.Context(), uid, today)
	if err != nil {
		h.logger.Warn("water saved without achievement evaluation", zap.Int64("user_id", uid), zap.Error(err))
		resp.Warning = "achievements could not be evaluated"
	}
	if awards != nil {
		resp.Achievements = awards
	}
	writeJSON(w, http.StatusOK, resp)
}
