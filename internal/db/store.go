package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

// Store is the sqlx-backed persistence for entries, goals, streaks and
// achievements. Queries are written with ? placeholders and rebound per driver.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type StoreOption func(*Store)

// WithNow sets the clock used for created_at and updated_at stamps.
func WithNow(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

func NewStore(conn *sqlx.DB, opts ...StoreOption) *Store {
	s := &Store{db: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const entryColumns = `id, user_id, local_date, meal_type, food_name, calories, protein, carbs, fats, created_at`

func (s *Store) FetchLogEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.LogEntry, error) {
	q := s.db.Rebind(`SELECT ` + entryColumns + ` FROM food_entries
		WHERE user_id = ? AND local_date >= ? AND local_date <= ?
		ORDER BY local_date, created_at, id`)
	entries := []models.LogEntry{}
	if err := s.db.SelectContext(ctx, &entries, q, userID, start, end); err != nil {
		return nil, fmt.Errorf("select food entries: %w", err)
	}
	return entries, nil
}

// ListLogEntries is FetchLogEntries for the API surface.
func (s *Store) ListLogEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.LogEntry, error) {
	return s.FetchLogEntries(ctx, userID, start, end)
}

// InsertLogEntry assigns an ID and creation time when missing and stores e.
func (s *Store) InsertLogEntry(ctx context.Context, e *models.LogEntry) error {
	return insertEntry(ctx, s.db, e, s.now)
}

func insertEntry(ctx context.Context, ex sqlx.ExtContext, e *models.LogEntry, now func() time.Time) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	q := ex.Rebind(`INSERT INTO food_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := ex.ExecContext(ctx, q,
		e.ID, e.UserID, e.LocalDate, e.MealType, e.FoodName,
		e.Calories, e.Protein, e.Carbs, e.Fats, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert food entry: %w", err)
	}
	return nil
}

// DeleteLogEntry removes one of the user's entries and returns its day.
func (s *Store) DeleteLogEntry(ctx context.Context, userID int64, id string) (calendar.Day, error) {
	var d calendar.Day
	q := s.db.Rebind(`SELECT local_date FROM food_entries WHERE id = ? AND user_id = ?`)
	if err := s.db.GetContext(ctx, &d, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.Day{}, apperror.ErrNotFound
		}
		return calendar.Day{}, fmt.Errorf("lookup food entry: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM food_entries WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return calendar.Day{}, fmt.Errorf("delete food entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return calendar.Day{}, apperror.ErrNotFound
	}
	return d, nil
}

func (s *Store) FetchWaterEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.WaterEntry, error) {
	q := s.db.Rebind(`SELECT user_id, local_date, amount_ml, updated_at FROM water_entries
		WHERE user_id = ? AND local_date >= ? AND local_date <= ?
		ORDER BY local_date`)
	water := []models.WaterEntry{}
	if err := s.db.SelectContext(ctx, &water, q, userID, start, end); err != nil {
		return nil, fmt.Errorf("select water entries: %w", err)
	}
	return water, nil
}

// AddWater accumulates amountML onto the user's total for d and returns the new row.
func (s *Store) AddWater(ctx context.Context, userID int64, d calendar.Day, amountML float64) (models.WaterEntry, error) {
	q := s.db.Rebind(`
		INSERT INTO water_entries (user_id, local_date, amount_ml, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, local_date) DO UPDATE
		SET amount_ml = water_entries.amount_ml + excluded.amount_ml,
			updated_at = excluded.updated_at
		RETURNING user_id, local_date, amount_ml, updated_at`)
	var w models.WaterEntry
	if err := s.db.GetContext(ctx, &w, q, userID, d, amountML, s.now().UTC()); err != nil {
		return models.WaterEntry{}, fmt.Errorf("upsert water entry: %w", err)
	}
	return w, nil
}

func (s *Store) FetchStreakRecord(ctx context.Context, userID int64) (*models.StreakRecord, error) {
	q := s.db.Rebind(`SELECT user_id, current_streak, last_active_streak, max_streak, last_update_day, last_log_day, updated_at
		FROM streaks WHERE user_id = ?`)
	var rec models.StreakRecord
	if err := s.db.GetContext(ctx, &rec, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("select streak: %w", err)
	}
	return &rec, nil
}

func (s *Store) UpsertStreakRecord(ctx context.Context, rec models.StreakRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now().UTC()
	}
	q := s.db.Rebind(`
		INSERT INTO streaks (user_id, current_streak, last_active_streak, max_streak, last_update_day, last_log_day, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = excluded.current_streak,
			last_active_streak = excluded.last_active_streak,
			max_streak = excluded.max_streak,
			last_update_day = excluded.last_update_day,
			last_log_day = excluded.last_log_day,
			updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q,
		rec.UserID, rec.CurrentStreak, rec.LastActiveStreak, rec.MaxStreak,
		rec.LastUpdateDay, rec.LastLogDay, rec.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}

func (s *Store) FetchAchievements(ctx context.Context, userID int64) ([]models.AchievementRecord, error) {
	q := s.db.Rebind(`SELECT user_id, achievement_id, earned_at FROM achievements WHERE user_id = ? ORDER BY earned_at, achievement_id`)
	out := []models.AchievementRecord{}
	if err := s.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("select achievements: %w", err)
	}
	return out, nil
}

// InsertAchievement reports false when the achievement was already recorded.
func (s *Store) InsertAchievement(ctx context.Context, userID int64, id string, earnedAt time.Time) (bool, error) {
	q := s.db.Rebind(`INSERT INTO achievements (user_id, achievement_id, earned_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, q, userID, id, earnedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return n > 0, nil
}

func (s *Store) FetchUserGoals(ctx context.Context, userID int64) (*models.UserGoals, error) {
	q := s.db.Rebind(`SELECT user_id, calories, protein, carbs, fats, water_ml, updated_at FROM user_goals WHERE user_id = ?`)
	var g models.UserGoals
	if err := s.db.GetContext(ctx, &g, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("select goals: %w", err)
	}
	return &g, nil
}

func (s *Store) UpsertUserGoals(ctx context.Context, g *models.UserGoals) error {
	return upsertGoals(ctx, s.db, g, s.now)
}

func upsertGoals(ctx context.Context, ex sqlx.ExtContext, g *models.UserGoals, now func() time.Time) error {
	g.UpdatedAt = now().UTC()
	q := ex.Rebind(`
		INSERT INTO user_goals (user_id, calories, protein, carbs, fats, water_ml, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET calories = excluded.calories,
			protein = excluded.protein,
			carbs = excluded.carbs,
			fats = excluded.fats,
			water_ml = excluded.water_ml,
			updated_at = excluded.updated_at`)
	if _, err := ex.ExecContext(ctx, q, g.UserID, g.Calories, g.Protein, g.Carbs, g.Fats, g.WaterML, g.UpdatedAt); err != nil {
		return fmt.Errorf("upsert goals: %w", err)
	}
	return nil
}

// Import writes goals and entries in one transaction. Either may be empty.
func (s *Store) Import(ctx context.Context, userID int64, goals *models.UserGoals, entries []models.LogEntry) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if goals != nil {
		goals.UserID = userID
		if err := upsertGoals(ctx, tx, goals, s.now); err != nil {
			return 0, err
		}
	}
	for i := range entries {
		entries[i].UserID = userID
		if err := insertEntry(ctx, tx, &entries[i], s.now); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(entries), nil
}
