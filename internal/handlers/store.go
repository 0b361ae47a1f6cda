package handlers

import (
	"context"

	"nutristreak/internal/calendar"
	"nutristreak/internal/models"
)

// Store is the write side the handlers need on top of services.Store.
type Store interface {
	InsertLogEntry(ctx context.Context, e *models.LogEntry) error
	ListLogEntries(ctx context.Context, userID int64, start, end calendar.Day) ([]models.LogEntry, error)
	DeleteLogEntry(ctx context.Context, userID int64, id string) (calendar.Day, error)
	AddWater(ctx context.Context, userID int64, d calendar.Day, amountML float64) (models.WaterEntry, error)
	FetchUserGoals(ctx context.Context, userID int64) (*models.UserGoals, error)
	UpsertUserGoals(ctx context.Context, g *models.UserGoals) error
	Import(ctx context.Context, userID int64, goals *models.UserGoals, entries []models.LogEntry) (int, error)
	Ping(ctx context.Context) error
}
