package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "feedlink/pkg/domain-errors"
)

const (
	DefaultFoodType        = "Food donation"
	DefaultQuantity        = "Not specified"
	DefaultEstimatedPeople = 1
)

// Donation is the aggregate root of the ledger.
//
// Invariants:
//   - ConfirmedByDonee implies Status == completed
//   - ConfirmedByDonee flips to true at most once
//   - CompletedAt is set exactly when Status first becomes completed
//   - DonorName and DonorContact are snapshots and never change
//   - ConfirmationToken is generated once and never rotated
type Donation struct {
	ID                uuid.UUID      `json:"id"`
	DonorID           uuid.UUID      `json:"donorId"`
	DoneeID           uuid.UUID      `json:"doneeId"`
	DonorName         string         `json:"donorName"`
	DonorContact      string         `json:"donorContact"`
	Status            DonationStatus `json:"status"`
	FoodType          string         `json:"foodType"`
	Quantity          string         `json:"quantity"`
	EstimatedPeople   int            `json:"estimatedPeople"`
	Notes             string         `json:"notes,omitempty"`
	ConfirmationToken string         `json:"-"`
	ConfirmedByDonee  bool           `json:"confirmedByDonee"`
	ScheduledTime     *time.Time     `json:"scheduledTime,omitempty"`
	CompletedAt       *time.Time     `json:"completedAt,omitempty"`
	Rating            *int           `json:"rating,omitempty"`
	Feedback          string         `json:"feedback,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Details are the optional, donor-supplied descriptive fields of a donation.
type Details struct {
	FoodType        string
	Quantity        string
	EstimatedPeople int
	ScheduledTime   *time.Time
	Notes           string
}

// WithDefaults fills unset fields. EstimatedPeople of zero means unspecified.
func (d Details) WithDefaults() Details {
	if strings.TrimSpace(d.FoodType) == "" {
		d.FoodType = DefaultFoodType
	}
	if strings.TrimSpace(d.Quantity) == "" {
		d.Quantity = DefaultQuantity
	}
	if d.EstimatedPeople == 0 {
		d.EstimatedPeople = DefaultEstimatedPeople
	}
	return d
}

// Validate checks the details after defaults are applied.
func (d Details) Validate() error {
	if d.EstimatedPeople < 1 {
		return dErrors.New(dErrors.CodeBadRequest, "estimatedPeople must be at least 1")
	}
	return nil
}

// NewDonation builds a pending donation with defaults applied.
func NewDonation(donationID, donorID, doneeID uuid.UUID, donorName, donorContact string, details Details, token string, now time.Time) (*Donation, error) {
	if donorID == uuid.Nil || doneeID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor and donee are required")
	}
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "confirmation token missing")
	}
	details = details.WithDefaults()
	if err := details.Validate(); err != nil {
		return nil, err
	}
	return &Donation{
		ID:                donationID,
		DonorID:           donorID,
		DoneeID:           doneeID,
		DonorName:         donorName,
		DonorContact:      donorContact,
		Status:            StatusPending,
		FoodType:          details.FoodType,
		Quantity:          details.Quantity,
		EstimatedPeople:   details.EstimatedPeople,
		Notes:             details.Notes,
		ConfirmationToken: token,
		ScheduledTime:     details.ScheduledTime,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// StatusUpdate is a donor's request to move a donation.
type StatusUpdate struct {
	RequesterID uuid.UUID
	Status      DonationStatus
	Rating      *int
	Feedback    *string
}

// ValidateRating checks the 1..5 range when a rating is present.
func ValidateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return dErrors.New(dErrors.CodeBadRequest, "rating must be between 1 and 5")
	}
	return nil
}

// CanApplyStatus checks ownership and transition legality.
// Use with ApplyStatus in Execute callbacks.
func (d *Donation) CanApplyStatus(u StatusUpdate) error {
	if d.DonorID != u.RequesterID {
		return dErrors.New(dErrors.CodeForbidden, "only the donor may update this donation")
	}
	if !d.Status.CanTransitionTo(u.Status) {
		return dErrors.New(dErrors.CodeConflict, "cannot move donation from "+d.Status.String()+" to "+u.Status.String())
	}
	return nil
}

// ApplyStatus moves the donation and attaches rating and feedback.
// Must only be called after CanApplyStatus returns nil.
func (d *Donation) ApplyStatus(u StatusUpdate, now time.Time) {
	if u.Status == StatusCompleted && d.Status != StatusCompleted {
		d.CompletedAt = &now
	}
	d.Status = u.Status
	if u.Rating != nil {
		r := *u.Rating
		d.Rating = &r
	}
	if u.Feedback != nil {
		d.Feedback = *u.Feedback
	}
	d.UpdatedAt = now
}

// CanConfirm rejects confirmation of a cancelled donation.
// An already-confirmed donation is accepted; the caller treats it as idempotent.
func (d *Donation) CanConfirm() error {
	if d.ConfirmedByDonee {
		return nil
	}
	if d.Status == StatusCancelled {
		return dErrors.New(dErrors.CodeConflict, "donation was cancelled")
	}
	return nil
}

// ApplyConfirmation records the donee's confirmation. CompletedAt keeps its
// value when the donor already completed the donation.
func (d *Donation) ApplyConfirmation(now time.Time) {
	d.ConfirmedByDonee = true
	if d.Status != StatusCompleted || d.CompletedAt == nil {
		d.CompletedAt = &now
	}
	d.Status = StatusCompleted
	d.UpdatedAt = now
}

// Clone returns a deep copy so callers cannot alias stored pointers.
func (d *Donation) Clone() *Donation {
	if d == nil {
		return nil
	}
	c := *d
	if d.ScheduledTime != nil {
		t := *d.ScheduledTime
		c.ScheduledTime = &t
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		c.CompletedAt = &t
	}
	if d.Rating != nil {
		r := *d.Rating
		c.Rating = &r
	}
	return &c
}
