package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/services"
)

type ReportHandler struct {
	tracker *services.Tracker
	logger  *zap.Logger
}

func NewReportHandler(tracker *services.Tracker, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{tracker: tracker, logger: logger}
}

type reportResponse struct {
	services.PeriodReport
	SetupRequired bool `json:"setup_required"`
}

// Weekly reports the 7 days from start (default: the 7 days ending today).
func (h *ReportHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, err := dayParam(r, "start", h.tracker.Today().AddDays(-6))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	report, err := h.tracker.WeeklyReport(r.Context(), uid, start)
	h.respond(w, report, err)
}

// Monthly reports a calendar month given as month=YYYY-MM (default: current month).
func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		today := h.tracker.Today()
		month = fmt.Sprintf("%04d-%02d", today.Year, int(today.Month))
	}
	first, last, err := calendar.ParseMonth(month)
	if err != nil {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, "invalid month; expected YYYY-MM", apperror.ErrInvalidInput))
		return
	}
	report, err := h.tracker.MonthlyReport(r.Context(), uid, first, last)
	h.respond(w, report, err)
}

func (h *ReportHandler) respond(w http.ResponseWriter, report services.PeriodReport, err error) {
	missing := errors.Is(err, apperror.ErrMissingProfile)
	if err != nil && !missing {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{PeriodReport: report, SetupRequired: missing})
}
