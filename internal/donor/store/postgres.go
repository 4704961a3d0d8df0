package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feedlink/internal/donor/models"
	"feedlink/pkg/platform/sentinel"
)

// PostgresStore reads and refreshes the donors table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, d *models.Donor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO donors (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		d.ID, d.Name, d.Email, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Donor, error) {
	var d models.Donor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM donors WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Email, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donors WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent donors: %w", err)
	}
	return n, nil
}
