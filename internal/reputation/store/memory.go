package store

import (
	"context"
	"sync"

	"tessera/internal/reputation/models"
	"tessera/pkg/domain"
)

type weightKey struct {
	Identity domain.Address
	Action   domain.ActionID
}

// InMemoryStore keeps profiles and weights in maps guarded by a RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.Address]models.Profile
	weights  map[weightKey]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[domain.Address]models.Profile),
		weights:  make(map[weightKey]int64),
	}
}

func (s *InMemoryStore) GetProfile(ctx context.Context, identity domain.Address) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[identity]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return profile.Clone(), nil
}

func (s *InMemoryStore) SaveProfile(ctx context.Context, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.Identity] = profile.Clone()
	return nil
}

func (s *InMemoryStore) GetWeight(ctx context.Context, identity domain.Address, action domain.ActionID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.weights[weightKey{Identity: identity, Action: action}], nil
}

func (s *InMemoryStore) SetWeight(ctx context.Context, identity domain.Address, action domain.ActionID, weight int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights[weightKey{Identity: identity, Action: action}] = weight
	return nil
}
