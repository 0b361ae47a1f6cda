package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
	"nutristreak/internal/services"
)

const maxListDays = 366

type EntryHandler struct {
	store   Store
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewEntryHandler(store Store, tracker *services.Tracker, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{store: store, tracker: tracker, logger: logger}
}

type entryResponse struct {
	Entry        models.LogEntry     `json:"entry"`
	Streak       services.StreakView `json:"streak"`
	Achievements []services.Award    `json:"achievements"`
	Warning      string              `json:"warning,omitempty"`
}

// Create godoc
// @Summary Log a food entry
// @Description Stores the entry, refreshes the streak and awards any newly earned achievements
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entry body entryRequest true "Food entry"
// @Success 201 {object} entryResponse
// @Failure 400 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /entries [post]
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req entryRequest
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

	entry := req.toModel(uid, d)
	if err := h.store.InsertLogEntry(r.Context(), &entry); err != nil {
		writeError(w, h.logger, apperror.Persistence("insert entry", err))
		return
	}

	resp := entryResponse{Entry: entry, Achievements: []services.Award{}}
	activity, err := h.tracker.RecordActivity(r.Context(), uid, today)
	resp.Streak = activity.Streak
	if activity.Achievements != nil {
		resp.Achievements = activity.Achievements
	}
	if err != nil {
		h.logger.Warn("entry saved without achievement evaluation", zap.Int64("user_id", uid), zap.Error(err))
		resp.Warning = "achievements could not be evaluated"
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List returns the user's entries between start_date and end_date inclusive,
// defaulting to today.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	today := h.tracker.Today()
	start, err := dayParam(r, "start_date", today)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := dayParam(r, "end_date", start)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if end.Before(start) {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, "end_date precedes start_date", apperror.ErrInvalidInput))
		return
	}
	if calendar.DaysBetween(start, end) >= maxListDays {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, "date range too large", apperror.ErrInvalidInput))
		return
	}

	entries, err := h.store.ListLogEntries(r.Context(), uid, start, end)
	if err != nil {
		writeError(w, h.logger, apperror.Persistence("list entries", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, "invalid entry id", apperror.ErrInvalidInput))
		return
	}

	if _, err := h.store.DeleteLogEntry(r.Context(), uid, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeError(w, h.logger, apperror.New(http.StatusNotFound, "entry not found", err))
			return
		}
		writeError(w, h.logger, apperror.Persistence("delete entry", err))
		return
	}
	h.tracker.InvalidateReports(r.Context(), uid)
	w.WriteHeader(http.StatusNoContent)
}
