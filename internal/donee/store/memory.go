package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"feedlink/internal/donee/models"
	"feedlink/pkg/platform/sentinel"
)

// InMemory keeps donees in a map and answers proximity queries by scanning.
type InMemory struct {
	mu      sync.RWMutex
	donees  map[uuid.UUID]*models.Donee
	byEmail map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		donees:  make(map[uuid.UUID]*models.Donee),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a donee. A taken email returns sentinel.ErrConflict.
func (s *InMemory) Create(_ context.Context, d *models.Donee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donees[d.ID]; ok {
		return sentinel.ErrConflict
	}
	key := strings.ToLower(d.Email)
	if key != "" {
		if _, ok := s.byEmail[key]; ok {
			return sentinel.ErrConflict
		}
		s.byEmail[key] = d.ID
	}
	s.donees[d.ID] = d.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Donee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donees[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Execute runs validate then mutate under the write lock.
func (s *InMemory) Execute(_ context.Context, id uuid.UUID, validate func(*models.Donee) error, mutate func(*models.Donee)) (*models.Donee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donees[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.donees[id] = working
	return working.Clone(), nil
}

// List returns donees newest first, paged by Skip and Limit.
func (s *InMemory) List(_ context.Context, f ListFilter) ([]*models.Donee, error) {
	s.mu.RLock()
	out := make([]*models.Donee, 0)
	for _, d := range s.donees {
		if len(f.Statuses) == 0 || slices.Contains(f.Statuses, d.Status) {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *models.Donee) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if f.Skip > 0 {
		if f.Skip >= len(out) {
			return []*models.Donee{}, nil
		}
		out = out[f.Skip:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.donees), nil
}

// FindNearby scans all donees, keeps those within range and in an accepted
// status, and orders by distance. Ties keep registration order.
func (s *InMemory) FindNearby(_ context.Context, q NearbyQuery) ([]models.NearbyDonee, error) {
	s.mu.RLock()
	out := make([]models.NearbyDonee, 0)
	for _, d := range s.donees {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, d.Status) {
			continue
		}
		dist := models.HaversineMeters(q.Origin, d.Location)
		if dist > q.MaxDistanceMeters {
			continue
		}
		out = append(out, models.NearbyDonee{Donee: *d.Clone(), DistanceMeters: dist})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.NearbyDonee) int {
		if c := cmp.Compare(a.DistanceMeters, b.DistanceMeters); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
