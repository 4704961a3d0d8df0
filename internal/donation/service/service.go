// Package service implements the donation ledger: creation with a fresh
// confirmation token, donor status updates and donee confirmation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feedlink/internal/donation/metrics"
	"feedlink/internal/donation/models"
	"feedlink/internal/donation/token"
	doneemodels "feedlink/internal/donee/models"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/sentinel"
	"feedlink/pkg/requestcontext"
)

const maxTokenAttempts = 3

// Store persists donations. Execute must run validate and mutate atomically
// with respect to other Execute calls on the same id.
type Store interface {
	Create(ctx context.Context, d *models.Donation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error)
	CountConfirmed(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.DonationStatus) (int, error)
	CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error)
	RecentCompleted(ctx context.Context, n int) ([]*models.Donation, error)
}

// DoneeReader resolves the recipient of a new donation.
type DoneeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*doneemodels.Donee, error)
}

// Ledger owns donation records and their transitions.
type Ledger struct {
	store   Store
	donees  DoneeReader
	tokens  *token.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithTokens replaces the token service, e.g. with a deterministic source in tests.
func WithTokens(t *token.Service) Option {
	return func(l *Ledger) {
		l.tokens = t
	}
}

func New(store Store, donees DoneeReader, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		donees: donees,
		tokens: token.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateRequest carries everything needed to open a donation.
type CreateRequest struct {
	DonorID      uuid.UUID
	DoneeID      uuid.UUID
	DonorName    string
	DonorContact string
	Details      models.Details
}

// Create persists a pending donation for a notifiable donee. Nothing is
// written when the donee is missing or has no email.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*models.Donation, error) {
	donee, err := l.donees.FindByID(ctx, req.DoneeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donee")
	}
	if !donee.IsNotifiable() {
		return nil, dErrors.New(dErrors.CodeNotNotifiable, "donee has no email address")
	}

	now := requestcontext.Now(ctx)
	for attempt := 1; ; attempt++ {
		tok, err := l.tokens.Generate()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate confirmation token")
		}
		d, err := models.NewDonation(uuid.New(), req.DonorID, req.DoneeID, req.DonorName, req.DonorContact, req.Details, tok, now)
		if err != nil {
			return nil, err
		}

		err = l.store.Create(ctx, d)
		if err == nil {
			l.metrics.IncrementCreated()
			l.logger.InfoContext(ctx, "donation created",
				"donation_id", d.ID,
				"donor_id", d.DonorID,
				"donee_id", d.DoneeID,
			)
			return d, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donation")
		}
		l.metrics.IncrementTokenCollision()
		l.logger.WarnContext(ctx, "confirmation token collision",
			"attempt", attempt,
		)
		if attempt >= maxTokenAttempts {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate a unique confirmation token")
		}
	}
}

// SetStatusRequest is a donor-initiated status change.
type SetStatusRequest struct {
	DonationID  uuid.UUID
	RequesterID uuid.UUID
	Status      string
	Rating      *int
	Feedback    *string
}

// SetStatus moves a donation on behalf of its donor. It never changes the
// donee confirmation flag.
func (l *Ledger) SetStatus(ctx context.Context, req SetStatusRequest) (*models.Donation, error) {
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateRating(req.Rating); err != nil {
		return nil, err
	}
	update := models.StatusUpdate{
		RequesterID: req.RequesterID,
		Status:      status,
		Rating:      req.Rating,
		Feedback:    req.Feedback,
	}

	now := requestcontext.Now(ctx)
	var from models.DonationStatus
	d, err := l.store.Execute(ctx, req.DonationID,
		func(d *models.Donation) error {
			return d.CanApplyStatus(update)
		},
		func(d *models.Donation) {
			from = d.Status
			d.ApplyStatus(update, now)
		},
	)
	if err != nil {
		return nil, translate(err, "failed to update donation status")
	}

	l.metrics.IncrementTransition(from.String(), status.String())
	l.logger.InfoContext(ctx, "donation status updated",
		"donation_id", d.ID,
		"from", from,
		"to", status,
	)
	return d, nil
}

// Confirm applies the donee's confirmation. newlyConfirmed is false when the
// donation had already been confirmed; the caller must not repeat side effects.
func (l *Ledger) Confirm(ctx context.Context, donationID uuid.UUID, supplied string) (d *models.Donation, newlyConfirmed bool, err error) {
	now := requestcontext.Now(ctx)
	d, err = l.store.Execute(ctx, donationID,
		func(d *models.Donation) error {
			if !l.tokens.Validate(d.ConfirmationToken, supplied) {
				return dErrors.New(dErrors.CodeInvalidToken, "invalid confirmation token")
			}
			return d.CanConfirm()
		},
		func(d *models.Donation) {
			if d.ConfirmedByDonee {
				return
			}
			d.ApplyConfirmation(now)
			newlyConfirmed = true
		},
	)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeInvalidToken):
			l.metrics.IncrementConfirmation("invalid_token")
		case dErrors.HasCode(err, dErrors.CodeConflict):
			l.metrics.IncrementConfirmation("rejected")
		}
		return nil, false, translate(err, "failed to confirm donation")
	}

	if newlyConfirmed {
		l.metrics.IncrementConfirmation("confirmed")
		l.logger.InfoContext(ctx, "donation confirmed by donee",
			"donation_id", d.ID,
			"donee_id", d.DoneeID,
		)
	} else {
		l.metrics.IncrementConfirmation("already_confirmed")
	}
	return d, newlyConfirmed, nil
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	d, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load donation")
	}
	return d, nil
}

// ListByDonor returns the donor's donations, newest first.
func (l *Ledger) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error) {
	out, err := l.store.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return out, nil
}

// CountConfirmed counts donations confirmed by their donee.
func (l *Ledger) CountConfirmed(ctx context.Context) (int, error) {
	n, err := l.store.CountConfirmed(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count confirmed donations")
	}
	return n, nil
}

func (l *Ledger) CountPending(ctx context.Context) (int, error) {
	n, err := l.store.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pending donations")
	}
	return n, nil
}

// CountCompletedBetween counts completions in [from, to).
func (l *Ledger) CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	n, err := l.store.CountCompletedBetween(ctx, from, to)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count completed donations")
	}
	return n, nil
}

// RecentCompleted returns up to n completed donations, latest completion first.
func (l *Ledger) RecentCompleted(ctx context.Context, n int) ([]*models.Donation, error) {
	out, err := l.store.RecentCompleted(ctx, n)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed donations")
	}
	return out, nil
}

// translate keeps domain errors raised inside Execute callbacks and maps
// store sentinels to codes.
func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donation not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "donation is in the wrong state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
