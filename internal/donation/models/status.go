package models

import (
	"strings"

	dErrors "feedlink/pkg/domain-errors"
)

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	StatusPending    DonationStatus = "pending"
	StatusInProgress DonationStatus = "in-progress"
	StatusCancelled  DonationStatus = "cancelled"
	StatusCompleted  DonationStatus = "completed"
)

// ParseStatus validates a caller-supplied status string.
func ParseStatus(raw string) (DonationStatus, error) {
	s := DonationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "status must be one of pending, in-progress, completed, cancelled")
	}
	return s, nil
}

func (s DonationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s DonationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s.
// Re-asserting the current status is always allowed.
//
//	pending     -> in-progress | completed | cancelled
//	in-progress -> completed | cancelled
//	completed, cancelled: terminal
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

func (s DonationStatus) String() string {
	return string(s)
}
