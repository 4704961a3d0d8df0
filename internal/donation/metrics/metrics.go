package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the donation lifecycle.
type Metrics struct {
	DonationsCreated    prometheus.Counter
	Confirmations       *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	TokenCollisions     prometheus.Counter
	RequestDonationTime prometheus.Histogram
	ConfirmDonationTime prometheus.Histogram
}

// New registers the donation metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DonationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedlink_donations_created_total",
			Help: "Donations persisted in pending state",
		}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_donation_confirmations_total",
			Help: "Donee confirmation attempts by outcome",
		}, []string{"outcome"}), // confirmed, already_confirmed, invalid_token, rejected
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_donation_status_transitions_total",
			Help: "Donor status updates by source and target status",
		}, []string{"from", "to"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_donation_notifications_total",
			Help: "Donation request mails by result",
		}, []string{"result"}), // sent, failed
		TokenCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedlink_donation_token_collisions_total",
			Help: "Confirmation tokens regenerated after a uniqueness collision",
		}),
		RequestDonationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedlink_request_donation_duration_seconds",
			Help:    "Duration of RequestDonation including notification dispatch",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ConfirmDonationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedlink_confirm_donation_duration_seconds",
			Help:    "Duration of ConfirmDonation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.DonationsCreated.Inc()
	}
}

func (m *Metrics) IncrementConfirmation(outcome string) {
	if m != nil {
		m.Confirmations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementNotification(sent bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !sent {
		result = "failed"
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementTokenCollision() {
	if m != nil {
		m.TokenCollisions.Inc()
	}
}

// ObserveRequestDonation records time since start.
func (m *Metrics) ObserveRequestDonation(start time.Time) {
	if m != nil {
		m.RequestDonationTime.Observe(time.Since(start).Seconds())
	}
}

// ObserveConfirmDonation records time since start.
func (m *Metrics) ObserveConfirmDonation(start time.Time) {
	if m != nil {
		m.ConfirmDonationTime.Observe(time.Since(start).Seconds())
	}
}
