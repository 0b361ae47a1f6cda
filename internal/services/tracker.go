package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

// HistoryStart bounds whole-history queries.
var HistoryStart = calendar.New(1970, time.January, 1)

const trendDays = 7

// Store is the persistence the tracker reads from and writes streak and
// achievement state to. Missing single rows are reported as apperror.ErrNotFound.
type Store interface {
	FetchLogEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.LogEntry, error)
	FetchWaterEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.WaterEntry, error)
	FetchStreakRecord(ctx context.Context, userID int64) (*models.StreakRecord, error)
	UpsertStreakRecord(ctx context.Context, rec models.StreakRecord) error
	FetchAchievements(ctx context.Context, userID int64) ([]models.AchievementRecord, error)
	InsertAchievement(ctx context.Context, userID int64, id string, earnedAt time.Time) (bool, error)
	FetchUserGoals(ctx context.Context, userID int64) (*models.UserGoals, error)
}

// Notifier receives achievements as they are awarded.
type Notifier interface {
	NotifyAchievements(userID int64, awards []Award)
}

// ReportCache stores serialized period reports per user.
type ReportCache interface {
	Load(ctx context.Context, userID int64, kind, start, end string, dst any) (bool, error)
	Store(ctx context.Context, userID int64, kind, start, end string, v any) error
	Invalidate(ctx context.Context, userID int64) error
}

type Tracker struct {
	store    Store
	clock    *calendar.Normalizer
	logger   *zap.Logger
	notifier Notifier
	cache    ReportCache
	now      func() time.Time
}

type TrackerOption func(*Tracker)

func WithNotifier(n Notifier) TrackerOption { return func(t *Tracker) { t.notifier = n } }

func WithReportCache(c ReportCache) TrackerOption { return func(t *Tracker) { t.cache = c } }

// WithNow overrides the instant stamped on awarded achievements.
func WithNow(now func() time.Time) TrackerOption { return func(t *Tracker) { t.now = now } }

func NewTracker(store Store, clock *calendar.Normalizer, logger *zap.Logger, opts ...TrackerOption) *Tracker {
	if clock == nil {
		clock = calendar.NewNormalizer(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{store: store, clock: clock, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Today() calendar.Day { return t.clock.Today() }

// StreakView is a streak record together with the value to display.
type StreakView struct {
	Record      models.StreakRecord `json:"record"`
	Display     int                 `json:"display"`
	LoggedToday bool                `json:"logged_today"`
	Stale       bool                `json:"stale"`
}

// RefreshStreak advances the user's streak for today and persists the result.
// When the upsert fails the last persisted record is returned, marked stale,
// alongside an error matching apperror.ErrPersistenceUnavailable.
func (t *Tracker) RefreshStreak(ctx context.Context, userID int64, today calendar.Day) (StreakView, error) {
	entries, err := t.store.FetchLogEntries(ctx, userID, today.Prev(), today)
	if err != nil {
		return StreakView{Stale: true}, apperror.Persistence("fetch log entries", err)
	}
	days := AggregateRange(today.Prev(), today, entries, nil, nil)
	loggedYesterday, loggedToday := days[0].HasLog(), days[1].HasLog()

	prev := models.StreakRecord{UserID: userID}
	found := true
	rec, err := t.store.FetchStreakRecord(ctx, userID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		found = false
	case err != nil:
		return StreakView{LoggedToday: loggedToday, Stale: true}, apperror.Persistence("fetch streak", err)
	default:
		prev = *rec
	}

	view := StreakView{Record: prev, Display: DisplayStreak(prev, loggedToday), LoggedToday: loggedToday}
	// The record is created by the first log, not by a visit.
	if !found && !loggedToday {
		return view, nil
	}

	next, changed := AdvanceStreak(prev, today, loggedToday, loggedYesterday)
	if !changed {
		return view, nil
	}
	next.UserID = userID
	next.UpdatedAt = t.now().UTC()
	if err := t.store.UpsertStreakRecord(ctx, next); err != nil {
		t.logger.Warn("streak not persisted, serving last known value",
			zap.Int64("user_id", userID),
			zap.Stringer("day", today),
			zap.Error(err),
		)
		view.Stale = true
		return view, apperror.Persistence("upsert streak", err)
	}

	t.logger.Debug("streak advanced",
		zap.Int64("user_id", userID),
		zap.Stringer("day", today),
		zap.Int("current", next.CurrentStreak),
		zap.Int("max", next.MaxStreak),
	)
	return StreakView{Record: next, Display: DisplayStreak(next, loggedToday), LoggedToday: loggedToday}, nil
}

// EvaluateAndAward inserts every achievement that has newly reached 100% and
// returns only those. Duplicate inserts are absorbed.
func (t *Tracker) EvaluateAndAward(ctx context.Context, userID int64, today calendar.Day) ([]Award, error) {
	counters, existing, err := t.counters(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	candidates := EvaluateAndAward(counters, existing, t.now().UTC())
	if len(candidates) == 0 {
		return []Award{}, nil
	}

	// Re-read right before inserting; another request may have won the race.
	latest, err := t.store.FetchAchievements(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence("fetch achievements", err)
	}
	already := earnedSet(latest)

	awarded := make([]Award, 0, len(candidates))
	for _, a := range candidates {
		if _, ok := already[a.ID]; ok {
			continue
		}
		inserted, err := t.store.InsertAchievement(ctx, userID, string(a.ID), a.EarnedAt)
		if err != nil {
			t.notify(userID, awarded)
			return awarded, apperror.Persistence("insert achievement", err)
		}
		if !inserted {
			t.logger.Debug("achievement already recorded",
				zap.Int64("user_id", userID),
				zap.String("achievement", string(a.ID)),
			)
			continue
		}
		awarded = append(awarded, a)
	}

	if len(awarded) > 0 {
		t.logger.Info("achievements awarded",
			zap.Int64("user_id", userID),
			zap.Int("count", len(awarded)),
		)
	}
	t.notify(userID, awarded)
	return awarded, nil
}

// Progress reports every catalog achievement for display. It never awards.
func (t *Tracker) Progress(ctx context.Context, userID int64, today calendar.Day) ([]AchievementProgress, error) {
	counters, existing, err := t.counters(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return OrderedProgress(ProgressOf(counters, existing)), nil
}

func (t *Tracker) counters(ctx context.Context, userID int64, today calendar.Day) (AchievementCounters, []models.AchievementRecord, error) {
	existing, err := t.store.FetchAchievements(ctx, userID)
	if err != nil {
		return AchievementCounters{}, nil, apperror.Persistence("fetch achievements", err)
	}
	goals, err := t.goals(ctx, userID)
	if err != nil && !errors.Is(err, apperror.ErrMissingProfile) {
		return AchievementCounters{}, nil, err
	}
	entries, err := t.store.FetchLogEntries(ctx, userID, HistoryStart, today)
	if err != nil {
		return AchievementCounters{}, nil, apperror.Persistence("fetch log entries", err)
	}
	water, err := t.store.FetchWaterEntries(ctx, userID, HistoryStart, today)
	if err != nil {
		return AchievementCounters{}, nil, apperror.Persistence("fetch water entries", err)
	}

	current := 0
	rec, err := t.store.FetchStreakRecord(ctx, userID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return AchievementCounters{}, nil, apperror.Persistence("fetch streak", err)
	default:
		current = rec.CurrentStreak
	}

	days := aggregateLoggedDays(entries, water, goals)
	return CountAchievementProgress(days, goals, current), existing, nil
}

// goals returns an error matching apperror.ErrMissingProfile when the user
// has not configured goals yet.
func (t *Tracker) goals(ctx context.Context, userID int64) (*models.UserGoals, error) {
	g, err := t.store.FetchUserGoals(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) || (err == nil && g == nil) {
		t.logger.Debug("goals not configured", zap.Int64("user_id", userID))
		return nil, fmt.Errorf("user %d: %w", userID, apperror.ErrMissingProfile)
	}
	if err != nil {
		return nil, apperror.Persistence("fetch goals", err)
	}
	return g, nil
}

// WeeklyReport builds the report for the 7 days starting at start.
func (t *Tracker) WeeklyReport(ctx context.Context, userID int64, start calendar.Day) (PeriodReport, error) {
	return t.report(ctx, userID, ReportWeekly, start, start.AddDays(weeklyDivisor-1), BuildWeeklyReport)
}

func (t *Tracker) MonthlyReport(ctx context.Context, userID int64, first, last calendar.Day) (PeriodReport, error) {
	return t.report(ctx, userID, ReportMonthly, first, last, BuildMonthlyReport)
}

type reportBuilder func(start, end calendar.Day, entries []models.LogEntry, water []models.WaterEntry, goals *models.UserGoals) PeriodReport

func (t *Tracker) report(ctx context.Context, userID int64, kind ReportKind, start, end calendar.Day, build reportBuilder) (PeriodReport, error) {
	if end.Before(start) {
		return PeriodReport{}, fmt.Errorf("%w: end date precedes start date", apperror.ErrInvalidInput)
	}

	if t.cache != nil {
		var cached PeriodReport
		hit, err := t.cache.Load(ctx, userID, string(kind), start.String(), end.String(), &cached)
		if err != nil {
			t.logger.Warn("report cache read failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	goals, goalsErr := t.goals(ctx, userID)
	if goalsErr != nil && !errors.Is(goalsErr, apperror.ErrMissingProfile) {
		return PeriodReport{}, goalsErr
	}
	entries, err := t.store.FetchLogEntries(ctx, userID, start, end)
	if err != nil {
		return PeriodReport{}, apperror.Persistence("fetch log entries", err)
	}
	water, err := t.store.FetchWaterEntries(ctx, userID, start, end)
	if err != nil {
		return PeriodReport{}, apperror.Persistence("fetch water entries", err)
	}

	r := build(start, end, entries, water, goals)
	if goalsErr != nil {
		return r, goalsErr
	}
	if t.cache != nil {
		if err := t.cache.Store(ctx, userID, string(kind), start.String(), end.String(), r); err != nil {
			t.logger.Warn("report cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return r, nil
}

// InvalidateReports drops cached reports after the user's data changed.
func (t *Tracker) InvalidateReports(ctx context.Context, userID int64) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Invalidate(ctx, userID); err != nil {
		t.logger.Warn("report cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Activity is the outcome of recording a log or water entry.
type Activity struct {
	Streak       StreakView `json:"streak"`
	Achievements []Award    `json:"achievements"`
}

// RecordActivity runs after every write: reports are invalidated, the streak
// is refreshed and achievements are evaluated. A streak persistence failure is
// logged and does not stop the evaluation.
func (t *Tracker) RecordActivity(ctx context.Context, userID int64, today calendar.Day) (Activity, error) {
	t.InvalidateReports(ctx, userID)

	view, err := t.RefreshStreak(ctx, userID, today)
	if err != nil {
		t.logger.Warn("streak refresh failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	awards, err := t.EvaluateAndAward(ctx, userID, today)
	if err != nil {
		return Activity{Streak: view, Achievements: awards}, err
	}
	return Activity{Streak: view, Achievements: awards}, nil
}

type Dashboard struct {
	Date          calendar.Day      `json:"date"`
	Today         DailyTotals       `json:"today"`
	Goals         *models.UserGoals `json:"goals,omitempty"`
	Streak        int               `json:"streak"`
	MaxStreak     int               `json:"max_streak"`
	LoggedToday   bool              `json:"logged_today"`
	StreakStale   bool              `json:"streak_stale"`
	Trend         []DailyTotals     `json:"trend"`
	SetupRequired bool              `json:"setup_required"`
}

// Dashboard refreshes the streak and summarises today and the preceding week.
// Missing goals yield a dashboard with SetupRequired set and an error matching
// apperror.ErrMissingProfile.
func (t *Tracker) Dashboard(ctx context.Context, userID int64, today calendar.Day) (Dashboard, error) {
	view, err := t.RefreshStreak(ctx, userID, today)
	if err != nil {
		t.logger.Warn("dashboard streak degraded", zap.Int64("user_id", userID), zap.Error(err))
		view.Stale = true
	}

	goals, goalsErr := t.goals(ctx, userID)
	if goalsErr != nil && !errors.Is(goalsErr, apperror.ErrMissingProfile) {
		return Dashboard{}, goalsErr
	}

	start := today.AddDays(-(trendDays - 1))
	entries, err := t.store.FetchLogEntries(ctx, userID, start, today)
	if err != nil {
		return Dashboard{}, apperror.Persistence("fetch log entries", err)
	}
	water, err := t.store.FetchWaterEntries(ctx, userID, start, today)
	if err != nil {
		return Dashboard{}, apperror.Persistence("fetch water entries", err)
	}
	trend := AggregateRange(start, today, entries, water, goals)

	d := Dashboard{
		Date:          today,
		Today:         trend[len(trend)-1],
		Goals:         goals,
		Streak:        view.Display,
		MaxStreak:     view.Record.MaxStreak,
		LoggedToday:   view.LoggedToday,
		StreakStale:   view.Stale,
		Trend:         trend,
		SetupRequired: goals == nil,
	}
	return d, goalsErr
}

func (t *Tracker) notify(userID int64, awards []Award) {
	if t.notifier == nil || len(awards) == 0 {
		return
	}
	t.notifier.NotifyAchievements(userID, awards)
}
