package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"feedlink/internal/donee/models"
	"feedlink/pkg/platform/sentinel"
	"feedlink/pkg/platform/tx"
)

const uniqueViolation = "23505"

const doneeColumns = `id, name, email, phone, organization_type, organization_name, description, address,
	average_people_served, operating_hours_from, operating_hours_to, special_requirements, registration_number,
	ST_X(location::geometry), ST_Y(location::geometry), status, verification_date, rejection_reason,
	total_donations_received, last_donation_date, created_at, updated_at`

// PostgresStore persists donees in PostgreSQL with a PostGIS geography column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donee store.
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

func (s *PostgresStore) Create(ctx context.Context, d *models.Donee) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO donees (id, name, email, phone, organization_type, organization_name, description, address,
			average_people_served, operating_hours_from, operating_hours_to, special_requirements,
			registration_number, location, status, verification_date, rejection_reason,
			total_donations_received, last_donation_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			ST_SetSRID(ST_MakePoint($14, $15), 4326)::geography,
			$16, $17, $18, $19, $20, $21, $22)`,
		d.ID, d.Name, d.Email, d.Phone, d.OrganizationType, d.OrganizationName, d.Description, d.Address,
		d.AveragePeopleServed, d.OperatingHours.From, d.OperatingHours.To, pq.Array(d.SpecialRequirements),
		d.RegistrationNumber, d.Location.Longitude, d.Location.Latitude, string(d.Status),
		nullTime(d.VerificationDate), d.RejectionReason, d.TotalDonationsReceived, nullTime(d.LastDonationDate),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert donee (%s): %w", pgErr.ConstraintName, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert donee: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Donee, error) {
	d, err := scanDonee(s.conn(ctx).QueryRowContext(ctx, `SELECT `+doneeColumns+` FROM donees WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donee by id: %w", err)
	}
	return d, nil
}

// Execute locks the donee row, runs validate and mutate, and persists the
// mutable columns. It joins a transaction carried by ctx when present.
func (s *PostgresStore) Execute(ctx context.Context, id uuid.UUID, validate func(*models.Donee) error, mutate func(*models.Donee)) (*models.Donee, error) {
	var result *models.Donee
	err := tx.NewSQLRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
		conn := s.conn(txCtx)
		d, err := scanDonee(conn.QueryRowContext(txCtx, `SELECT `+doneeColumns+` FROM donees WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock donee: %w", err)
		}
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)

		_, err = conn.ExecContext(txCtx, `
			UPDATE donees
			SET status = $2, verification_date = $3, rejection_reason = $4,
				total_donations_received = $5, last_donation_date = $6, updated_at = $7
			WHERE id = $1`,
			d.ID, string(d.Status), nullTime(d.VerificationDate), d.RejectionReason,
			d.TotalDonationsReceived, nullTime(d.LastDonationDate), d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update donee: %w", err)
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]*models.Donee, error) {
	var statuses any
	if len(f.Statuses) > 0 {
		statuses = pq.Array(statusStrings(f.Statuses))
	}
	var limit sql.NullInt64
	if f.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(f.Limit), Valid: true}
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+doneeColumns+` FROM donees
		WHERE $1::text[] IS NULL OR status = ANY($1::text[])
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		statuses, limit, max(f.Skip, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list donees: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Donee, 0)
	for rows.Next() {
		d, err := scanDonee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donee: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donees: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM donees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donees: %w", err)
	}
	return n, nil
}

// FindNearby uses ST_DWithin on the GIST-indexed geography column and orders
// by exact geodesic distance.
func (s *PostgresStore) FindNearby(ctx context.Context, q NearbyQuery) ([]models.NearbyDonee, error) {
	var statuses any
	if len(q.Statuses) > 0 {
		statuses = pq.Array(statusStrings(q.Statuses))
	}
	var limit sql.NullInt64
	if q.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(q.Limit), Valid: true}
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		WITH origin AS (SELECT ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography AS point)
		SELECT `+doneeColumns+`, ST_Distance(donees.location, origin.point) AS distance
		FROM donees, origin
		WHERE ($3::text[] IS NULL OR status = ANY($3::text[]))
			AND ST_DWithin(donees.location, origin.point, $4)
		ORDER BY distance ASC, created_at ASC, id
		LIMIT $5`,
		q.Origin.Longitude, q.Origin.Latitude, statuses, q.MaxDistanceMeters, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find nearby donees: %w", err)
	}
	defer rows.Close()

	out := make([]models.NearbyDonee, 0)
	for rows.Next() {
		var distance float64
		d, err := scanDonee(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("scan nearby donee: %w", err)
		}
		out = append(out, models.NearbyDonee{Donee: *d, DistanceMeters: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearby donees: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonee(row rowScanner, extra ...any) (*models.Donee, error) {
	var (
		d                      models.Donee
		status                 string
		verified, lastDonation sql.NullTime
		requirements           pq.StringArray
	)
	dest := []any{
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.OrganizationType, &d.OrganizationName, &d.Description, &d.Address,
		&d.AveragePeopleServed, &d.OperatingHours.From, &d.OperatingHours.To, &requirements, &d.RegistrationNumber,
		&d.Location.Longitude, &d.Location.Latitude, &status, &verified, &d.RejectionReason,
		&d.TotalDonationsReceived, &lastDonation, &d.CreatedAt, &d.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	d.Status = models.Status(status)
	d.SpecialRequirements = []string(requirements)
	if d.SpecialRequirements == nil {
		d.SpecialRequirements = []string{}
	}
	if verified.Valid {
		t := verified.Time.UTC()
		d.VerificationDate = &t
	}
	if lastDonation.Valid {
		t := lastDonation.Time.UTC()
		d.LastDonationDate = &t
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}
