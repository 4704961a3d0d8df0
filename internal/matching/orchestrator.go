// Package matching connects donors to donees: it opens a donation, mails the
// donee a confirmation link and applies the donee's confirmation.
package matching

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feedlink/internal/audit"
	"feedlink/internal/donation/metrics"
	"feedlink/internal/donation/models"
	"feedlink/internal/donation/service"
	doneemodels "feedlink/internal/donee/models"
	donormodels "feedlink/internal/donor/models"
	"feedlink/internal/notify"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/sentinel"
	"feedlink/pkg/platform/tx"
	"feedlink/pkg/requestcontext"
)

var tracer = otel.Tracer("feedlink/matching")

// DefaultContact replaces an empty donor contact in the donee mail.
const DefaultContact = "Not provided"

// Ledger is the slice of the donation ledger the orchestrator drives.
type Ledger interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Donation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	SetStatus(ctx context.Context, req service.SetStatusRequest) (*models.Donation, error)
	Confirm(ctx context.Context, donationID uuid.UUID, token string) (*models.Donation, bool, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error)
}

type DonorDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*donormodels.Donor, error)
}

type Donees interface {
	Get(ctx context.Context, id uuid.UUID) (*doneemodels.Donee, error)
	RecordDonation(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Orchestrator runs the request and confirmation flows.
type Orchestrator struct {
	ledger   Ledger
	donors   DonorDirectory
	donees   Donees
	notifier notify.Notifier
	tx       tx.Runner
	baseURL  string
	audit    audit.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithAudit(e audit.Emitter) Option {
	return func(o *Orchestrator) {
		o.audit = e
	}
}

// WithTxRunner makes confirmation and the donee credit one transaction.
func WithTxRunner(r tx.Runner) Option {
	return func(o *Orchestrator) {
		o.tx = r
	}
}

// New builds an orchestrator. baseURL prefixes confirmation links.
func New(ledger Ledger, donors DonorDirectory, donees Donees, notifier notify.Notifier, baseURL string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:   ledger,
		donors:   donors,
		donees:   donees,
		notifier: notifier,
		tx:       tx.NoopRunner{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		audit:    audit.Discard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DonationRequest is a donor's request to give food to a donee.
type DonationRequest struct {
	DonorID uuid.UUID
	DoneeID uuid.UUID
	Contact string
	Details models.Details
}

// Result reports a created donation. NotifyErr is set when the donation was
// persisted but the donee could not be mailed; the donation stays pending.
type Result struct {
	Donation  *models.Donation
	Notified  bool
	NotifyErr error
}

// RequestDonation resolves both parties, opens a pending donation and mails
// the donee. A mail failure never rolls the donation back.
func (o *Orchestrator) RequestDonation(ctx context.Context, req DonationRequest) (*Result, error) {
	start := time.Now()
	defer o.metrics.ObserveRequestDonation(start)

	ctx, span := tracer.Start(ctx, "Matching.RequestDonation", trace.WithAttributes(
		attribute.String("donor_id", req.DonorID.String()),
		attribute.String("donee_id", req.DoneeID.String()),
	))
	defer span.End()

	donor, err := o.donors.FindByID(ctx, req.DonorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "donor not found")
		} else {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
		}
		recordError(span, err)
		return nil, err
	}
	donee, err := o.donees.Get(ctx, req.DoneeID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if !donee.IsNotifiable() {
		err := dErrors.New(dErrors.CodeNotNotifiable, "donee has no email address")
		recordError(span, err)
		return nil, err
	}

	contact := strings.TrimSpace(req.Contact)
	if contact == "" {
		contact = DefaultContact
	}
	d, err := o.ledger.Create(ctx, service.CreateRequest{
		DonorID:      donor.ID,
		DoneeID:      donee.ID,
		DonorName:    donor.Name,
		DonorContact: contact,
		Details:      req.Details,
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("donation_id", d.ID.String()))
	o.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDonationRequested,
		ActorID:    donor.ID.String(),
		DonationID: d.ID.String(),
		DoneeID:    donee.ID.String(),
	})

	result := &Result{Donation: d}
	if err := o.dispatch(ctx, d, donee); err != nil {
		result.NotifyErr = dErrors.Wrap(err, dErrors.CodeDependencyFailure, "donation saved but the donee could not be notified")
		span.AddEvent("notification failed")
		o.logger.ErrorContext(ctx, "donation notification failed",
			"donation_id", d.ID,
			"donee_id", donee.ID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		o.audit.Emit(ctx, audit.Event{
			Type:       audit.EventNotificationFailed,
			DonationID: d.ID.String(),
			DoneeID:    donee.ID.String(),
			Attributes: map[string]string{"error": err.Error()},
		})
		return result, nil
	}

	result.Notified = true
	o.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDonationNotified,
		DonationID: d.ID.String(),
		DoneeID:    donee.ID.String(),
	})
	return result, nil
}

// ConfirmDonation applies the donee's confirmation and credits the donee in
// the same transaction. The credit happens at most once per donation.
func (o *Orchestrator) ConfirmDonation(ctx context.Context, donationID uuid.UUID, token string) (*models.Donation, bool, error) {
	start := time.Now()
	defer o.metrics.ObserveConfirmDonation(start)

	ctx, span := tracer.Start(ctx, "Matching.ConfirmDonation", trace.WithAttributes(
		attribute.String("donation_id", donationID.String()),
	))
	defer span.End()

	var (
		confirmed *models.Donation
		newly     bool
	)
	err := o.tx.RunInTx(ctx, func(txCtx context.Context) error {
		d, n, err := o.ledger.Confirm(txCtx, donationID, token)
		if err != nil {
			return err
		}
		if n {
			// the donee is credited at confirmation time, even when the donor
			// completed the donation earlier
			if err := o.donees.RecordDonation(txCtx, d.DoneeID, requestcontext.Now(txCtx)); err != nil {
				return err
			}
		}
		confirmed, newly = d, n
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("newly_confirmed", newly))
	if newly {
		o.audit.Emit(ctx, audit.Event{
			Type:       audit.EventDonationConfirmed,
			DonationID: confirmed.ID.String(),
			DoneeID:    confirmed.DoneeID.String(),
		})
	}
	return confirmed, newly, nil
}

// UpdateStatus applies a donor's status change.
func (o *Orchestrator) UpdateStatus(ctx context.Context, req service.SetStatusRequest) (*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "Matching.UpdateStatus", trace.WithAttributes(
		attribute.String("donation_id", req.DonationID.String()),
		attribute.String("status", req.Status),
	))
	defer span.End()

	d, err := o.ledger.SetStatus(ctx, req)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	o.audit.Emit(ctx, audit.Event{
		Type:       audit.EventDonationStatusSet,
		ActorID:    req.RequesterID.String(),
		DonationID: d.ID.String(),
		DoneeID:    d.DoneeID.String(),
		Attributes: map[string]string{"status": d.Status.String()},
	})
	return d, nil
}

// ResendNotification mails the original confirmation link again. Only
// pending donations qualify.
func (o *Orchestrator) ResendNotification(ctx context.Context, donationID uuid.UUID) (*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "Matching.ResendNotification", trace.WithAttributes(
		attribute.String("donation_id", donationID.String()),
	))
	defer span.End()

	d, err := o.ledger.Get(ctx, donationID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if d.Status != models.StatusPending {
		err := dErrors.New(dErrors.CodeConflict, "only pending donations can be re-sent")
		recordError(span, err)
		return nil, err
	}
	donee, err := o.donees.Get(ctx, d.DoneeID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if !donee.IsNotifiable() {
		err := dErrors.New(dErrors.CodeNotNotifiable, "donee has no email address")
		recordError(span, err)
		return nil, err
	}
	if err := o.dispatch(ctx, d, donee); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeDependencyFailure, "failed to re-send donation notification")
		recordError(span, err)
		return nil, err
	}
	o.audit.Emit(ctx, audit.Event{
		Type:       audit.EventNotificationResent,
		DonationID: d.ID.String(),
		DoneeID:    donee.ID.String(),
	})
	return d, nil
}

// ListByDonor returns the donor's donations, newest first.
func (o *Orchestrator) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*models.Donation, error) {
	return o.ledger.ListByDonor(ctx, donorID)
}

// ConfirmURL builds the link mailed to the donee.
func (o *Orchestrator) ConfirmURL(d *models.Donation) string {
	return o.baseURL + "/donations/" + d.ID.String() + "/confirm?token=" + url.QueryEscape(d.ConfirmationToken)
}

func (o *Orchestrator) dispatch(ctx context.Context, d *models.Donation, donee *doneemodels.Donee) error {
	err := o.notifier.SendDonationRequest(ctx, notify.DonationRequest{
		DonationID:       d.ID.String(),
		DoneeName:        donee.Name,
		DoneeEmail:       donee.Email,
		OrganizationName: donee.OrganizationName,
		DonorName:        d.DonorName,
		DonorContact:     d.DonorContact,
		FoodType:         d.FoodType,
		Quantity:         d.Quantity,
		EstimatedPeople:  d.EstimatedPeople,
		ScheduledTime:    d.ScheduledTime,
		Notes:            d.Notes,
		ConfirmURL:       o.ConfirmURL(d),
	})
	o.metrics.IncrementNotification(err == nil)
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}
