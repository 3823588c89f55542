package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS camps (
		camp_id      TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		owner_email  TEXT NOT NULL,
		shared_with  JSONB NOT NULL DEFAULT '[]'::jsonb,
		read_code    TEXT NOT NULL DEFAULT '',
		write_code   TEXT NOT NULL DEFAULT '',
		rooms        TEXT[] NOT NULL DEFAULT '{}',
		is_public    BOOLEAN NOT NULL DEFAULT FALSE,
		public_sites TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_camps_owner ON camps (lower(owner_email))`,
	`CREATE TABLE IF NOT EXISTS rooms (
		room_id        TEXT PRIMARY KEY,
		camp_id        TEXT NOT NULL REFERENCES camps (camp_id),
		number         TEXT NOT NULL,
		capacity       INTEGER NOT NULL CHECK (capacity >= 1),
		available_beds INTEGER NOT NULL CHECK (available_beds >= 0),
		company        TEXT NOT NULL DEFAULT '',
		project        TEXT NOT NULL DEFAULT '',
		workers        TEXT[] NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// room number uniqueness within a camp is enforced by the service under a camp row lock
	`CREATE INDEX IF NOT EXISTS idx_rooms_camp_number ON rooms (camp_id, number)`,
	`CREATE TABLE IF NOT EXISTS workers (
		worker_id           TEXT PRIMARY KEY,
		camp_id             TEXT NOT NULL REFERENCES camps (camp_id),
		name                TEXT NOT NULL,
		surname             TEXT NOT NULL,
		registration_number TEXT NOT NULL,
		project             TEXT NOT NULL DEFAULT '',
		company             TEXT NOT NULL DEFAULT '',
		room_id             TEXT NULL,
		entry_date          TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (camp_id, registration_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workers_room ON workers (room_id)`,
	`CREATE TABLE IF NOT EXISTS personnel (
		personnel_id    TEXT PRIMARY KEY,
		site            TEXT NOT NULL,
		employee_id     TEXT NOT NULL,
		passport_number TEXT NOT NULL DEFAULT '',
		first_name      TEXT NOT NULL,
		last_name       TEXT NOT NULL,
		position        TEXT NOT NULL DEFAULT '',
		company         TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'active',
		hire_date       TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (site, employee_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_personnel_passport ON personnel (site, passport_number)
		WHERE passport_number <> ''`,
	`CREATE TABLE IF NOT EXISTS attendance (
		attendance_id TEXT PRIMARY KEY,
		site          TEXT NOT NULL,
		personnel_id  TEXT NOT NULL REFERENCES personnel (personnel_id) ON DELETE CASCADE,
		date_key      TEXT NOT NULL,
		status        TEXT NOT NULL,
		note          TEXT NOT NULL DEFAULT '',
		recorded_by   TEXT NOT NULL DEFAULT '',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (site, personnel_id, date_key)
	)`,
}
