package audit

import (
	"context"
	"slices"
	"sync"
)

// InMemorySink keeps events in process. Used in development and tests.
type InMemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByDonation returns the events for one donation in append order.
func (s *InMemorySink) ListByDonation(_ context.Context, donationID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.DonationID == donationID {
			out = append(out, e)
		}
	}
	return out
}

// ListRecent returns up to limit events, newest first.
func (s *InMemorySink) ListRecent(_ context.Context, limit int) []Event {
	s.mu.RLock()
	out := slices.Clone(s.events)
	s.mu.RUnlock()
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
