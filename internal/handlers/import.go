package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/models"
	"nutristreak/internal/services"
)

type ImportHandler struct {
	store   Store
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewImportHandler(store Store, tracker *services.Tracker, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{store: store, tracker: tracker, logger: logger}
}

// Import godoc
// @Summary Import goals and past entries
// @Description Writes goals and entries in one transaction, then refreshes streak and achievements
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param data body importRequest true "Import payload"
// @Success 201 {object} map[string]interface{} "Data imported successfully"
// @Failure 400 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /import [post]
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req importRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Entries) == 0 && req.Goals == nil {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, "no entries or goals provided", apperror.ErrInvalidInput))
		return
	}

	var goals *models.UserGoals
	if req.Goals != nil {
		g := req.Goals.toModel(uid)
		goals = &g
	}
	today := h.tracker.Today()
	entries := make([]models.LogEntry, 0, len(req.Entries))
	for i, e := range req.Entries {
		d, err := entryDay(e.LocalDate, today)
		if err != nil {
			msg := err.Error()
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				msg = appErr.Message
			}
			writeError(w, h.logger, apperror.New(http.StatusBadRequest, fmt.Sprintf("entries[%d]: %s", i, msg), apperror.ErrInvalidInput))
			return
		}
		entries = append(entries, e.toModel(uid, d))
	}

	n, err := h.store.Import(r.Context(), uid, goals, entries)
	if err != nil {
		writeError(w, h.logger, apperror.Persistence("import", err))
		return
	}

	activity, err := h.tracker.RecordActivity(r.Context(), uid, today)
	if err != nil {
		h.logger.Warn("import saved without achievement evaluation", zap.Int64("user_id", uid), zap.Error(err))
	}
	h.logger.Info("import completed", zap.Int64("user_id", uid), zap.Int("entries", n), zap.Bool("goals", goals != nil))
	writeJSON(w, http.StatusCreated, map[string]any{
		"imported":     n,
		"achievements": activity.Achievements,
	})
}
