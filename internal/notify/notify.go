// Package notify delivers FeedLink mail to donees.
//
// A Notifier is built once at startup and injected into the services that
// send mail. Delivery is best effort: callers decide whether a failure matters.
package notify

import (
	"context"
	"time"
)

// DonationRequest is the payload of the "new donation" mail. ConfirmURL
// embeds the donation's confirmation token.
type DonationRequest struct {
	DonationID       string
	DoneeName        string
	DoneeEmail       string
	OrganizationName string
	DonorName        string
	DonorContact     string
	FoodType         string
	Quantity         string
	EstimatedPeople  int
	ScheduledTime    *time.Time
	Notes            string
	ConfirmURL       string
}

// DoneeVerification tells an organization it can now receive donations.
type DoneeVerification struct {
	DoneeName        string
	DoneeEmail       string
	OrganizationName string
}

// DoneeRejection tells an organization it was rejected or suspended.
type DoneeRejection struct {
	DoneeName        string
	DoneeEmail       string
	OrganizationName string
	Reason           string
}

// Notifier sends donee-facing mail.
type Notifier interface {
	SendDonationRequest(ctx context.Context, msg DonationRequest) error
	SendDoneeVerified(ctx context.Context, msg DoneeVerification) error
	SendDoneeRejected(ctx context.Context, msg DoneeRejection) error
}

// Message is a rendered mail ready for a transport.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}
