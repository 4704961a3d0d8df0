package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedlink/internal/donation/models"
	"feedlink/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded donation store. Records are cloned on the way
// in and out so callers never share pointers with the map.
type InMemory struct {
	mu        sync.RWMutex
	donations map[uuid.UUID]*models.Donation
	byToken   map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		donations: make(map[uuid.UUID]*models.Donation),
		byToken:   make(map[string]uuid.UUID),
	}
}

// Create stores a new donation. Duplicate ids or tokens return sentinel.ErrConflict.
func (s *InMemory) Create(_ context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byToken[d.ConfirmationToken]; ok {
		return sentinel.ErrConflict
	}
	s.donations[d.ID] = d.Clone()
	s.byToken[d.ConfirmationToken] = d.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Execute runs validate then mutate on the donation while holding the write
// lock. A validate error aborts without changes and is returned as is.
func (s *InMemory) Execute(_ context.Context, id uuid.UUID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.donations[id] = working
	return working.Clone(), nil
}

// ListByDonor returns the donor's donations, newest first.
func (s *InMemory) ListByDonor(_ context.Context, donorID uuid.UUID) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donation, 0)
	for _, d := range s.donations {
		if d.DonorID == donorID {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Donation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CountConfirmed(_ context.Context) (int, error) {
	return s.count(func(d *models.Donation) bool { return d.ConfirmedByDonee }), nil
}

func (s *InMemory) CountByStatus(_ context.Context, status models.DonationStatus) (int, error) {
	return s.count(func(d *models.Donation) bool { return d.Status == status }), nil
}

// CountCompletedBetween counts completed donations with from <= completedAt < to.
func (s *InMemory) CountCompletedBetween(_ context.Context, from, to time.Time) (int, error) {
	return s.count(func(d *models.Donation) bool {
		return d.Status == models.StatusCompleted && d.CompletedAt != nil &&
			!d.CompletedAt.Before(from) && d.CompletedAt.Before(to)
	}), nil
}

// RecentCompleted returns up to n completed donations by completedAt, newest first.
func (s *InMemory) RecentCompleted(_ context.Context, n int) ([]*models.Donation, error) {
	s.mu.RLock()
	out := make([]*models.Donation, 0)
	for _, d := range s.donations {
		if d.Status == models.StatusCompleted && d.CompletedAt != nil {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Donation) int {
		return b.CompletedAt.Compare(*a.CompletedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *InMemory) count(match func(*models.Donation) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.donations {
		if match(d) {
			n++
		}
	}
	return n
}
