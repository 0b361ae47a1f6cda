package models

import (
	"time"

	"nutristreak/internal/calendar"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

type UserGoals struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Calories  float64   `db:"calories" json:"calories"`
	Protein   float64   `db:"protein" json:"protein"`
	Carbs     float64   `db:"carbs" json:"carbs"`
	Fats      float64   `db:"fats" json:"fats"`
	WaterML   float64   `db:"water_ml" json:"water_ml"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type LogEntry struct {
	ID        string       `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	LocalDate calendar.Day `db:"local_date" json:"local_date"`
	MealType  MealType     `db:"meal_type" json:"meal_type"`
	FoodName  string       `db:"food_name" json:"food_name"`
	Calories  float64      `db:"calories" json:"calories"`
	Protein   float64      `db:"protein" json:"protein"`
	Carbs     *float64     `db:"carbs" json:"carbs,omitempty"`   // nil counts as 0
	Fats      *float64     `db:"fats" json:"fats,omitempty"`     // nil counts as 0
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// WaterEntry holds the accumulated amount for one user and day.
type WaterEntry struct {
	UserID    int64        `db:"user_id" json:"user_id"`
	LocalDate calendar.Day `db:"local_date" json:"local_date"`
	AmountML  float64      `db:"amount_ml" json:"amount_ml"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

type StreakRecord struct {
	UserID           int64        `db:"user_id" json:"user_id"`
	CurrentStreak    int          `db:"current_streak" json:"current_streak"`
	LastActiveStreak int          `db:"last_active_streak" json:"last_active_streak"`
	MaxStreak        int          `db:"max_streak" json:"max_streak"`
	LastUpdateDay    calendar.Day `db:"last_update_day" json:"last_update_day"`
	LastLogDay       calendar.Day `db:"last_log_day" json:"last_log_day"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

type AchievementRecord struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	AchievementID string    `db:"achievement_id" json:"achievement_id"`
	EarnedAt      time.Time `db:"earned_at" json:"earned_at"`
}
