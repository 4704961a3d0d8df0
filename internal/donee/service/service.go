// Package service exposes donee registration, verification and the
// proximity search donors use to pick a recipient.
package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"feedlink/internal/audit"
	"feedlink/internal/donee/models"
	"feedlink/internal/donee/store"
	"feedlink/internal/notify"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/sentinel"
	"feedlink/pkg/requestcontext"
)

// DefaultSearchRadiusMeters applies when a search does not name a radius.
const DefaultSearchRadiusMeters = 10000

type Store interface {
	Create(ctx context.Context, d *models.Donee) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Donee, error)
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.Donee) error, mutate func(*models.Donee)) (*models.Donee, error)
	List(ctx context.Context, f store.ListFilter) ([]*models.Donee, error)
	Count(ctx context.Context) (int, error)
	FindNearby(ctx context.Context, q store.NearbyQuery) ([]models.NearbyDonee, error)
}

// Service manages donees.
type Service struct {
	store         Store
	notifier      notify.Notifier
	audit         audit.Emitter
	logger        *slog.Logger
	defaultRadius float64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier sets the mail sender for verification and rejection notices.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithAudit(e audit.Emitter) Option {
	return func(s *Service) {
		s.audit = e
	}
}

// WithDefaultRadius overrides DefaultSearchRadiusMeters.
func WithDefaultRadius(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.defaultRadius = meters
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		audit:         audit.Discard{},
		logger:        slog.Default(),
		defaultRadius: DefaultSearchRadiusMeters,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(s.logger)
	}
	return s
}

// Register validates a sign-up and stores the organization as pending.
func (s *Service) Register(ctx context.Context, r models.Registration) (*models.Donee, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	d := models.NewDonee(uuid.New(), r, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a donee with this email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register donee")
	}

	s.logger.InfoContext(ctx, "donee registered",
		"donee_id", d.ID,
		"organization_type", d.OrganizationType,
	)
	s.audit.Emit(ctx, audit.Event{Type: audit.EventDoneeRegistered, DoneeID: d.ID.String()})
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Donee, error) {
	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load donee")
	}
	return d, nil
}

// ListRequest filters the admin listing. An empty Status lists all donees.
type ListRequest struct {
	Status string
	Limit  int
	Skip   int
}

// List returns donees newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]*models.Donee, error) {
	if req.Limit < 0 || req.Skip < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit and skip must not be negative")
	}
	filter := store.ListFilter{Limit: req.Limit, Skip: req.Skip}
	if strings.TrimSpace(req.Status) != "" {
		status, err := models.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Statuses = []models.Status{status}
	}
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donees")
	}
	return out, nil
}

// Count returns the number of registered donees.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donees")
	}
	return n, nil
}

// UpdateStatus sets the verification state and mails the organization.
// Mail failures are logged and never fail the update.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, rawStatus string) (*models.Donee, error) {
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, id,
		func(*models.Donee) error { return nil },
		func(d *models.Donee) { d.ApplyStatus(status, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to update donee status")
	}

	s.logger.InfoContext(ctx, "donee status updated",
		"donee_id", d.ID,
		"status", status,
	)
	s.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDoneeStatusChanged,
		DoneeID:    d.ID.String(),
		Attributes: map[string]string{"status": string(status)},
	})

	switch status {
	case models.StatusVerified:
		s.mail(ctx, d, func() error {
			return s.notifier.SendDoneeVerified(ctx, notify.DoneeVerification{
				DoneeName:        d.Name,
				DoneeEmail:       d.Email,
				OrganizationName: d.OrganizationName,
			})
		})
	case models.StatusSuspended:
		s.mail(ctx, d, func() error {
			return s.notifier.SendDoneeRejected(ctx, notify.DoneeRejection{
				DoneeName:        d.Name,
				DoneeEmail:       d.Email,
				OrganizationName: d.OrganizationName,
				Reason:           d.RejectionReason,
			})
		})
	}
	return d, nil
}

// Reject suspends the donee with a reason and mails it.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Donee, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "rejection reason is required")
	}
	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, id,
		func(*models.Donee) error { return nil },
		func(d *models.Donee) { d.ApplyRejection(reason, now) },
	)
	if err != nil {
		return nil, translate(err, "failed to reject donee")
	}

	s.logger.InfoContext(ctx, "donee rejected", "donee_id", d.ID)
	s.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDoneeRejected,
		DoneeID:    d.ID.String(),
		Attributes: map[string]string{"reason": reason},
	})
	s.mail(ctx, d, func() error {
		return s.notifier.SendDoneeRejected(ctx, notify.DoneeRejection{
			DoneeName:        d.Name,
			DoneeEmail:       d.Email,
			OrganizationName: d.OrganizationName,
			Reason:           reason,
		})
	})
	return d, nil
}

// RecordDonation credits a confirmed donation to the donee. Only the
// confirmation flow calls this.
func (s *Service) RecordDonation(ctx context.Context, id uuid.UUID, at time.Time) error {
	d, err := s.store.Execute(ctx, id,
		func(*models.Donee) error { return nil },
		func(d *models.Donee) { d.ApplyDonationReceived(at) },
	)
	if err != nil {
		return translate(err, "failed to record donation")
	}
	s.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDoneeDonationCredit,
		DoneeID:    d.ID.String(),
		Attributes: map[string]string{"total": strconv.Itoa(d.TotalDonationsReceived)},
	})
	return nil
}

// FindNearby returns verified donees within maxDistanceMeters of the point,
// nearest first. maxDistanceMeters of zero uses the default radius; limit <= 0
// is unbounded.
func (s *Service) FindNearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64, limit int) ([]models.NearbyDonee, error) {
	if !models.ValidCoordinates(longitude, latitude) {
		return nil, dErrors.New(dErrors.CodeInvalidQuery, "longitude must be within [-180,180] and latitude within [-90,90]")
	}
	if math.IsNaN(maxDistanceMeters) || math.IsInf(maxDistanceMeters, 0) || maxDistanceMeters < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidQuery, "max distance must be a finite, non-negative number")
	}
	if maxDistanceMeters == 0 {
		maxDistanceMeters = s.defaultRadius
	}

	found, err := s.store.FindNearby(ctx, store.NearbyQuery{
		Origin:            models.Location{Longitude: longitude, Latitude: latitude},
		MaxDistanceMeters: maxDistanceMeters,
		Limit:             limit,
		Statuses:          []models.Status{models.StatusVerified},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search donees")
	}

	out := slices.DeleteFunc(found, func(d models.NearbyDonee) bool {
		return d.Status != models.StatusVerified
	})
	slices.SortStableFunc(out, func(a, b models.NearbyDonee) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) mail(ctx context.Context, d *models.Donee, send func() error) {
	if !d.IsNotifiable() {
		s.logger.WarnContext(ctx, "donee has no email, notice not sent", "donee_id", d.ID)
		return
	}
	if err := send(); err != nil {
		s.logger.ErrorContext(ctx, "failed to send donee notice",
			"donee_id", d.ID,
			"error", err,
		)
	}
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donee not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
