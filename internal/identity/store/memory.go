package store

import (
	"context"
	"sync"

	"tessera/internal/identity/models"
	"tessera/pkg/domain"
)

// InMemoryStore keeps identities in a map guarded by a RWMutex. Suitable for
// tests and single-node deployments.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[domain.Address]models.Identity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[domain.Address]models.Identity),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[identity.Key]; exists {
		return ErrDuplicateKey
	}
	s.identities[identity.Key] = identity.Clone()
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key domain.Address) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[key]
	if !ok {
		return models.Identity{}, ErrNotFound
	}
	return identity.Clone(), nil
}

func (s *InMemoryStore) Update(ctx context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.identities[identity.Key]; !exists {
		return ErrNotFound
	}
	s.identities[identity.Key] = identity.Clone()
	return nil
}
