package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cashbook/internal/core"
)

const (
	settingsFile         = "settings.sqlite"
	migrationScheduleKey = "migration_schedule"
)

// Settings is the key/value settings store. The ledger core only reads it;
// the migration schedule it holds drives the description-usage housekeeping
// job, not the recurrence engine.
type Settings struct {
	db *sql.DB
}

func OpenSettings(dataDir string) (*Settings, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, settingsFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping settings database: %w", err)
	}
	if err := runMigrations(dbPath, "settings"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate settings database: %w", err)
	}

	return &Settings{db: db}, nil
}

func (s *Settings) Close() error {
	return s.db.Close()
}

// MigrationSchedule returns the stored housekeeping schedule. The migration
// seeds a default, so a fresh database still returns a usable value.
func (s *Settings) MigrationSchedule(ctx context.Context) (core.MigrationSchedule, error) {
	var sched core.MigrationSchedule
	var value string

	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, migrationScheduleKey).Scan(&value)
	if err != nil {
		return sched, fmt.Errorf("read migration schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(value), &sched); err != nil {
		return sched, fmt.Errorf("decode migration schedule: %w", err)
	}
	return sched, nil
}

// SetMigrationSchedule replaces the stored housekeeping schedule.
func (s *Settings) SetMigrationSchedule(ctx context.Context, sched core.MigrationSchedule) error {
	value, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("encode migration schedule: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		migrationScheduleKey, string(value))
	if err != nil {
		return fmt.Errorf("write migration schedule: %w", err)
	}
	return nil
}
