package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "feedlink/pkg/domain-errors"
	mailutil "feedlink/pkg/email"
)

// Donor is the read model of an authenticated user who gives food. Records
// are created by the identity service; FeedLink only reads them.
type Donor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDonor builds a donor record. A blank name falls back to one derived
// from the email address; a donor needs one or the other.
func NewDonor(id uuid.UUID, name, email string, now time.Time) (*Donor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = mailutil.DisplayName(email)
	}
	if id == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor name is required")
	}
	return &Donor{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
	}, nil
}
