package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	name    string
	sql     map[string]string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Each migration carries one script per driver; Postgres gets native DATE and
// UUID columns while SQLite stores days as YYYY-MM-DD text.
var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: map[string]string{
			DriverPostgres: `
CREATE TABLE IF NOT EXISTS user_goals (
    user_id BIGINT PRIMARY KEY,
    calories DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (calories >= 0),
    protein DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (protein >= 0),
    carbs DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (carbs >= 0),
    fats DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (fats >= 0),
    water_ml DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (water_ml >= 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS food_entries (
    id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL,
    local_date DATE NOT NULL,
    meal_type TEXT NOT NULL,
    food_name TEXT NOT NULL,
    calories DOUBLE PRECISION NOT NULL CHECK (calories >= 0),
    protein DOUBLE PRECISION NOT NULL CHECK (protein >= 0),
    carbs DOUBLE PRECISION CHECK (carbs >= 0),
    fats DOUBLE PRECISION CHECK (fats >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_food_entries_user_date ON food_entries (user_id, local_date);

CREATE TABLE IF NOT EXISTS water_entries (
    user_id BIGINT NOT NULL,
    local_date DATE NOT NULL,
    amount_ml DOUBLE PRECISION NOT NULL CHECK (amount_ml >= 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, local_date)
);

CREATE TABLE IF NOT EXISTS streaks (
    user_id BIGINT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    last_active_streak INTEGER NOT NULL DEFAULT 0 CHECK (last_active_streak >= 0),
    max_streak INTEGER NOT NULL DEFAULT 0 CHECK (max_streak >= 0),
    last_update_day DATE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS achievements (
    user_id BIGINT NOT NULL,
    achievement_id TEXT NOT NULL,
    earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, achievement_id)
);`,
			DriverSQLite: `
CREATE TABLE IF NOT EXISTS user_goals (
    user_id INTEGER PRIMARY KEY,
    calories REAL NOT NULL DEFAULT 0 CHECK (calories >= 0),
    protein REAL NOT NULL DEFAULT 0 CHECK (protein >= 0),
    carbs REAL NOT NULL DEFAULT 0 CHECK (carbs >= 0),
    fats REAL NOT NULL DEFAULT 0 CHECK (fats >= 0),
    water_ml REAL NOT NULL DEFAULT 0 CHECK (water_ml >= 0),
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS food_entries (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    local_date TEXT NOT NULL,
    meal_type TEXT NOT NULL,
    food_name TEXT NOT NULL,
    calories REAL NOT NULL CHECK (calories >= 0),
    protein REAL NOT NULL CHECK (protein >= 0),
    carbs REAL CHECK (carbs >= 0),
    fats REAL CHECK (fats >= 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_food_entries_user_date ON food_entries (user_id, local_date);

CREATE TABLE IF NOT EXISTS water_entries (
    user_id INTEGER NOT NULL,
    local_date TEXT NOT NULL,
    amount_ml REAL NOT NULL CHECK (amount_ml >= 0),
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, local_date)
);

CREATE TABLE IF NOT EXISTS streaks (
    user_id INTEGER PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    last_active_streak INTEGER NOT NULL DEFAULT 0 CHECK (last_active_streak >= 0),
    max_streak INTEGER NOT NULL DEFAULT 0 CHECK (max_streak >= 0),
    last_update_day TEXT,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS achievements (
    user_id INTEGER NOT NULL,
    achievement_id TEXT NOT NULL,
    earned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, achievement_id)
);`,
		},
	},
	{
		version: 2,
		name:    "streak_last_log_day",
		sql: map[string]string{
			DriverPostgres: `ALTER TABLE streaks ADD COLUMN IF NOT EXISTS last_log_day DATE;`,
			DriverSQLite:   `ALTER TABLE streaks ADD COLUMN last_log_day TEXT;`,
		},
	},
}

// LatestVersion is the schema version RunMigrations brings a database to.
func LatestVersion() int { return migrations[len(migrations)-1].version }

// RunMigrations applies every pending migration for the connection's driver,
// each in its own transaction. Applied versions are skipped.
func RunMigrations(ctx context.Context, conn *sqlx.DB) error {
	driver := conn.DriverName()
	if _, err := conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []int
	if err := conn.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		script, ok := m.sql[driver]
		if !ok {
			return fmt.Errorf("migration %d (%s): no script for driver %q", m.version, m.name, driver)
		}
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, script); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), m.version, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
