package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"feedlink/internal/donation/models"
	"feedlink/pkg/platform/sentinel"
	"feedlink/pkg/platform/tx"
)

const uniqueViolation = "23505"

const donationColumns = `id, donor_id, donee_id, donor_name, donor_contact, status, food_type, quantity,
	estimated_people, notes, confirmation_token, confirmed_by_donee, scheduled_time, completed_at,
	rating, feedback, created_at, updated_at`

// PostgresStore persists donations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO donations (`+donationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		d.ID, d.DonorID, d.DoneeID, d.DonorName, d.DonorContact, string(d.Status), d.FoodType, d.Quantity,
		d.EstimatedPeople, d.Notes, d.ConfirmationToken, d.ConfirmedByDonee, nullTime(d.ScheduledTime),
		nullTime(d.CompletedAt), nullRating(d.Rating), d.Feedback, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert donation (%s): %w", pgErr.ConstraintName, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donation by id: %w", err)
	}
	return d, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// and writes the mutable columns back. It joins a transaction already carried
// by ctx and otherwise opens its own.
func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	if _, ok := tx.From(ctx); ok {
		return s.execute(ctx, id, validate, mutate)
	}

	var result *models.Donation
	err := tx.NewSQLRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.execute(txCtx, id, validate, mutate)
		if err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) execute(ctx context.Context, id uuid.UUID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	conn := s.conn(ctx)
	row := conn.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1 FOR UPDATE`, id)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock donation: %w", err)
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)

	_, err = conn.ExecContext(ctx, `
		UPDATE donations
		SET status = $2, confirmed_by_donee = $3, completed_at = $4, rating = $5, feedback = $6, updated_at = $7
		WHERE id = $1`,
		d.ID, string(d.Status), d.ConfirmedByDonee, nullTime(d.CompletedAt), nullRating(d.Rating), d.Feedback, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update donation: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error) {
	return s.query(ctx, `SELECT `+donationColumns+` FROM donations WHERE donor_id = $1 ORDER BY created_at DESC`, donorID)
}

func (s *PostgresStore) CountConfirmed(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `confirmed_by_donee`)
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.DonationStatus) (int, error) {
	return s.countWhere(ctx, `status = $1`, string(status))
}

func (s *PostgresStore) CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return s.countWhere(ctx, `status = 'completed' AND completed_at >= $1 AND completed_at < $2`, from, to)
}

func (s *PostgresStore) RecentCompleted(ctx context.Context, n int) ([]*models.Donation, error) {
	return s.query(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE status = 'completed' AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $1`, n)
}

func (s *PostgresStore) countWhere(ctx context.Context, where string, args ...any) (int, error) {
	var n int
	if err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM donations WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Donation, 0)
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (*models.Donation, error) {
	var (
		d                    models.Donation
		status               string
		scheduled, completed sql.NullTime
		rating               sql.NullInt32
	)
	err := row.Scan(&d.ID, &d.DonorID, &d.DoneeID, &d.DonorName, &d.DonorContact, &status, &d.FoodType,
		&d.Quantity, &d.EstimatedPeople, &d.Notes, &d.ConfirmationToken, &d.ConfirmedByDonee, &scheduled,
		&completed, &rating, &d.Feedback, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Status = models.DonationStatus(status)
	if scheduled.Valid {
		t := scheduled.Time.UTC()
		d.ScheduledTime = &t
	}
	if completed.Valid {
		t := completed.Time.UTC()
		d.CompletedAt = &t
	}
	if rating.Valid {
		r := int(rating.Int32)
		d.Rating = &r
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullRating(r *int) sql.NullInt32 {
	if r == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*r), Valid: true}
}
