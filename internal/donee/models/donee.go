package models

import (
	"math"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "feedlink/pkg/domain-errors"
	platformstrings "feedlink/pkg/platform/strings"
)

// Status is the verification state of a donee organization.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates an admin-supplied status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusVerified, StatusSuspended:
		return s, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "status must be one of pending, verified, suspended")
}

// OrganizationTypes lists the accepted organization categories.
var OrganizationTypes = []string{
	"NGO", "Orphanage", "Old Age Home", "School", "Hospital",
	"Community Center", "Religious Organization", "Other",
}

const maxDescriptionLength = 1000

// Location is a WGS84 point, longitude first.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// ValidCoordinates reports whether the pair is a finite point on the globe.
func ValidCoordinates(longitude, latitude float64) bool {
	if math.IsNaN(longitude) || math.IsNaN(latitude) {
		return false
	}
	return longitude >= -180 && longitude <= 180 && latitude >= -90 && latitude <= 90
}

// OperatingHours is a free-form daily opening window, e.g. "09:00" to "17:00".
type OperatingHours struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Donee is a recipient organization.
//
// TotalDonationsReceived and LastDonationDate change only when a donation is
// confirmed by the donee.
type Donee struct {
	ID                     uuid.UUID      `json:"id"`
	Name                   string         `json:"name"`
	Email                  string         `json:"email,omitempty"`
	Phone                  string         `json:"phone"`
	OrganizationType       string         `json:"organizationType"`
	OrganizationName       string         `json:"organizationName"`
	Description            string         `json:"description"`
	Address                string         `json:"address"`
	AveragePeopleServed    int            `json:"averagePeopleServed"`
	OperatingHours         OperatingHours `json:"operatingHours"`
	SpecialRequirements    []string       `json:"specialRequirements"`
	RegistrationNumber     string         `json:"registrationNumber,omitempty"`
	Location               Location       `json:"location"`
	Status                 Status         `json:"status"`
	VerificationDate       *time.Time     `json:"verificationDate,omitempty"`
	RejectionReason        string         `json:"rejectionReason,omitempty"`
	TotalDonationsReceived int            `json:"totalDonationsReceived"`
	LastDonationDate       *time.Time     `json:"lastDonationDate,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

// NearbyDonee is a proximity search hit.
type NearbyDonee struct {
	Donee
	DistanceMeters float64 `json:"distanceMeters"`
}

// IsNotifiable reports whether the donee can receive donation mail.
func (d *Donee) IsNotifiable() bool {
	return strings.TrimSpace(d.Email) != ""
}

// ApplyStatus sets the verification state. Verifying stamps VerificationDate.
func (d *Donee) ApplyStatus(status Status, now time.Time) {
	d.Status = status
	if status == StatusVerified {
		d.VerificationDate = &now
		d.RejectionReason = ""
	}
	d.UpdatedAt = now
}

// ApplyRejection suspends the donee with a reason.
func (d *Donee) ApplyRejection(reason string, now time.Time) {
	d.Status = StatusSuspended
	d.RejectionReason = reason
	d.UpdatedAt = now
}

// ApplyDonationReceived bumps the confirmed-donation counters.
func (d *Donee) ApplyDonationReceived(at time.Time) {
	d.TotalDonationsReceived++
	d.LastDonationDate = &at
	d.UpdatedAt = at
}

// Clone returns a deep copy.
func (d *Donee) Clone() *Donee {
	if d == nil {
		return nil
	}
	c := *d
	c.SpecialRequirements = slices.Clone(d.SpecialRequirements)
	if d.VerificationDate != nil {
		t := *d.VerificationDate
		c.VerificationDate = &t
	}
	if d.LastDonationDate != nil {
		t := *d.LastDonationDate
		c.LastDonationDate = &t
	}
	return &c
}

// Registration is the self-service sign-up payload of an organization.
type Registration struct {
	Name                string
	Email               string
	Phone               string
	OrganizationType    string
	OrganizationName    string
	Description         string
	Address             string
	AveragePeopleServed int
	OperatingHours      OperatingHours
	SpecialRequirements []string
	RegistrationNumber  string
	Location            Location
}

// Normalize trims fields and lowercases the email.
func (r *Registration) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.OrganizationType = strings.TrimSpace(r.OrganizationType)
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	r.Description = strings.TrimSpace(r.Description)
	r.Address = strings.TrimSpace(r.Address)
	r.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
	r.SpecialRequirements = platformstrings.DedupeFold(r.SpecialRequirements)
}

// Validate checks required fields and coordinates. Call Normalize first.
func (r *Registration) Validate() error {
	required := []struct{ field, value string }{
		{"name", r.Name},
		{"email", r.Email},
		{"phone", r.Phone},
		{"organizationName", r.OrganizationName},
		{"description", r.Description},
		{"address", r.Address},
		{"operatingHours.from", r.OperatingHours.From},
		{"operatingHours.to", r.OperatingHours.To},
	}
	for _, f := range required {
		if f.value == "" {
			return dErrors.New(dErrors.CodeBadRequest, f.field+" is required")
		}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "email is not a valid address")
	}
	if !slices.Contains(OrganizationTypes, r.OrganizationType) {
		return dErrors.New(dErrors.CodeBadRequest, "organizationType must be one of "+strings.Join(OrganizationTypes, ", "))
	}
	if len(r.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeBadRequest, "description must be 1000 characters or less")
	}
	if r.AveragePeopleServed < 1 {
		return dErrors.New(dErrors.CodeBadRequest, "averagePeopleServed must be at least 1")
	}
	if !ValidCoordinates(r.Location.Longitude, r.Location.Latitude) {
		return dErrors.New(dErrors.CodeBadRequest, "location must be a valid longitude/latitude pair")
	}
	return nil
}

// NewDonee builds a pending donee from a validated registration.
func NewDonee(id uuid.UUID, r Registration, now time.Time) *Donee {
	reqs := r.SpecialRequirements
	if reqs == nil {
		reqs = []string{}
	}
	return &Donee{
		ID:                  id,
		Name:                r.Name,
		Email:               r.Email,
		Phone:               r.Phone,
		OrganizationType:    r.OrganizationType,
		OrganizationName:    r.OrganizationName,
		Description:         r.Description,
		Address:             r.Address,
		AveragePeopleServed: r.AveragePeopleServed,
		OperatingHours:      r.OperatingHours,
		SpecialRequirements: reqs,
		RegistrationNumber:  r.RegistrationNumber,
		Location:            r.Location,
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
