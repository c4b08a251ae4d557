package store

import (
	"context"
	"sync"

	"tessera/internal/prooffunds/models"
	"tessera/pkg/domain"
)

// InMemoryStore keeps proofs in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	proofs map[domain.ProofID]models.Proof
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		proofs: make(map[domain.ProofID]models.Proof),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, proof models.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proofs[proof.ID] = proof.Clone()
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id domain.ProofID) (models.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proof, ok := s.proofs[id]
	if !ok {
		return models.Proof{}, ErrNotFound
	}
	return proof.Clone(), nil
}

func (s *InMemoryStore) MarkUsed(ctx context.Context, id domain.ProofID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proof, ok := s.proofs[id]
	if !ok {
		return ErrNotFound
	}
	if proof.Used {
		return ErrAlreadyUsed
	}
	proof.Used = true
	s.proofs[id] = proof
	return nil
}
