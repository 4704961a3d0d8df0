package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres through the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the FeedLink schema when absent. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS donors (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donors_created_at ON donors (created_at)`,
	`CREATE TABLE IF NOT EXISTS donees (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		organization_name TEXT NOT NULL,
		organization_type TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		average_people_served INTEGER NOT NULL DEFAULT 0,
		operating_hours_from TEXT NOT NULL DEFAULT '',
		operating_hours_to TEXT NOT NULL DEFAULT '',
		special_requirements TEXT[] NOT NULL DEFAULT '{}',
		registration_number TEXT NOT NULL DEFAULT '',
		location GEOGRAPHY(Point, 4326) NOT NULL,
		status TEXT NOT NULL,
		verification_date TIMESTAMPTZ,
		rejection_reason TEXT NOT NULL DEFAULT '',
		total_donations_received INTEGER NOT NULL DEFAULT 0,
		last_donation_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_donees_email ON donees (lower(email)) WHERE email <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_donees_location ON donees USING GIST (location)`,
	`CREATE INDEX IF NOT EXISTS idx_donees_status ON donees (status)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id UUID PRIMARY KEY,
		donor_id UUID NOT NULL,
		donee_id UUID NOT NULL,
		donor_name TEXT NOT NULL DEFAULT '',
		donor_contact TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		food_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		estimated_people INTEGER NOT NULL CHECK (estimated_people >= 1),
		notes TEXT NOT NULL DEFAULT '',
		confirmation_token TEXT NOT NULL UNIQUE,
		confirmed_by_donee BOOLEAN NOT NULL DEFAULT FALSE,
		scheduled_time TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		rating SMALLINT CHECK (rating BETWEEN 1 AND 5),
		feedback TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (NOT confirmed_by_donee OR status = 'completed')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations (donor_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_status ON donations (status)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_completed_at ON donations (completed_at DESC) WHERE status = 'completed'`,
}
