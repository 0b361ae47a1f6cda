package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/services"
)

type GoalsHandler struct {
	store   Store
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewGoalsHandler(store Store, tracker *services.Tracker, logger *zap.Logger) *GoalsHandler {
	return &GoalsHandler{store: store, tracker: tracker, logger: logger}
}

func (h *GoalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	goals, err := h.store.FetchUserGoals(r.Context(), uid)
	if errors.Is(err, apperror.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"goals": nil, "setup_required": true})
		return
	}
	if err != nil {
		writeError(w, h.logger, apperror.Persistence("fetch goals", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "setup_required": false})
}

// Put replaces the user's goals. A zero goal is stored and never counts as met.
func (h *GoalsHandler) Put(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req goalsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	goals := req.toModel(uid)
	if err := h.store.UpsertUserGoals(r.Context(), &goals); err != nil {
		writeError(w, h.logger, apperror.Persistence("save goals", err))
		return
	}
	h.tracker.InvalidateReports(r.Context(), uid)
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals, "setup_required": false})
}
