package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedlink/internal/donor/models"
	"feedlink/pkg/platform/sentinel"
)

// InMemory is a map-backed donor directory.
type InMemory struct {
	mu     sync.RWMutex
	donors map[uuid.UUID]models.Donor
}

func NewInMemory() *InMemory {
	return &InMemory{donors: make(map[uuid.UUID]models.Donor)}
}

// Upsert inserts the donor or refreshes name and email of an existing one.
// CreatedAt of an existing record is kept.
func (s *InMemory) Upsert(_ context.Context, d *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.donors[d.ID]; ok {
		existing.Name = d.Name
		existing.Email = d.Email
		s.donors[d.ID] = existing
		return nil
	}
	s.donors[d.ID] = *d
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.donors), nil
}

// CountSince counts donors created at or after since.
func (s *InMemory) CountSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.donors {
		if !d.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
