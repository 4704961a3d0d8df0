// Package audit records donation lifecycle events.
//
// Services emit events through a Publisher, which never blocks the request:
// events go onto a bounded channel drained by a background worker that writes
// to a Sink (in-memory or Kafka). When the buffer is full events are dropped
// and counted.
package audit

import (
	"context"
	"time"
)

// EventType names a lifecycle action.
type EventType string

const (
	EventDonationRequested   EventType = "donation_requested"
	EventDonationNotified    EventType = "donation_notified"
	EventNotificationFailed  EventType = "donation_notification_failed"
	EventDonationConfirmed   EventType = "donation_confirmed"
	EventDonationStatusSet   EventType = "donation_status_changed"
	EventNotificationResent  EventType = "donation_notification_resent"
	EventDoneeRegistered     EventType = "donee_registered"
	EventDoneeStatusChanged  EventType = "donee_status_changed"
	EventDoneeRejected       EventType = "donee_rejected"
	EventDoneeDonationCredit EventType = "donee_donation_recorded"
)

// Event is a transport-agnostic audit record.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Client     string            `json:"client,omitempty"`
	Bot        bool              `json:"bot,omitempty"`
	DonationID string            `json:"donation_id,omitempty"`
	DoneeID    string            `json:"donee_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Key partitions events so one donation's history stays ordered.
func (e Event) Key() string {
	if e.DonationID != "" {
		return e.DonationID
	}
	return e.DoneeID
}

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the narrow interface services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Discard drops every event. Used when auditing is not wired.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}
