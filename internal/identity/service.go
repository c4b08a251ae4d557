// Package identity implements the DID registry: the single source of truth
// for which addresses may act on behalf of which identity. Every other
// component authorizes callers through this registry, never through raw
// address comparison.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tessera/internal/events"
	"tessera/internal/identity/metrics"
	"tessera/internal/identity/models"
	"tessera/internal/identity/store"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// Store is the persistence boundary the service writes through.
type Store = store.Store

type Service struct {
	store     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher

	// mu serializes record mutations. Each mutator reloads the record,
	// changes it, and writes it back; without the lock two concurrent
	// delegate changes could overwrite each other.
	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(st Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	svc := &Service{store: st}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates the identity record for key. Registration is open: any
// caller may claim an unregistered key, and a second registration for the
// same key fails regardless of caller.
func (s *Service) Register(ctx context.Context, key, controller domain.Address, document string) error {
	if key.IsZero() || controller.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "identity key and controller are required")
	}

	now := requestcontext.Now(ctx)
	identity := models.Identity{
		Key:        key,
		Controller: controller,
		Delegates:  map[domain.Address]bool{},
		Document:   document,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		return err
	}

	s.metrics.IncrementRegistered()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "identity registered", "key", key, "controller", controller)
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:  events.KindIdentityUpdated,
		Key:   key.String(),
		Actor: controller,
	})
}

// SetDocument overwrites the DID document. Controller or delegate only.
func (s *Service) SetDocument(ctx context.Context, caller, key domain.Address, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authorizedIdentity(ctx, key, caller)
	if err != nil {
		return err
	}

	identity.Document = document
	identity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, identity); err != nil {
		return err
	}

	return events.Emit(ctx, s.publisher, events.Event{
		Kind:  events.KindIdentityUpdated,
		Key:   key.String(),
		Actor: caller,
	})
}

// AddDelegate grants delegate authority over key. Callable by the controller
// or any existing delegate; an existing delegate adding further delegates is
// accepted behavior, which means the controller's trust extends transitively
// through its delegate set. Adding a delegate twice is a no-op success.
func (s *Service) AddDelegate(ctx context.Context, caller, key, delegate domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authorizedIdentity(ctx, key, caller)
	if err != nil {
		return err
	}
	if delegate.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "delegate address is required")
	}
	if identity.Delegates[delegate] {
		return nil
	}

	identity.Delegates[delegate] = true
	identity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, identity); err != nil {
		return err
	}

	s.metrics.IncrementDelegateChanges()
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindIdentityUpdated,
		Key:    key.String(),
		Actor:  caller,
		Detail: "delegate added: " + delegate.String(),
	})
}

// RemoveDelegate revokes delegate authority. Removing an absent delegate is
// a no-op success.
func (s *Service) RemoveDelegate(ctx context.Context, caller, key, delegate domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, err := s.authorizedIdentity(ctx, key, caller)
	if err != nil {
		return err
	}
	if !identity.Delegates[delegate] {
		return nil
	}

	delete(identity.Delegates, delegate)
	identity.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, identity); err != nil {
		return err
	}

	s.metrics.IncrementDelegateChanges()
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindIdentityUpdated,
		Key:    key.String(),
		Actor:  caller,
		Detail: "delegate removed: " + delegate.String(),
	})
}

// IsOwnerOrDelegate reports whether candidate may act for key. Always a fresh
// read against current state; a missing identity is simply false, never an
// error.
func (s *Service) IsOwnerOrDelegate(ctx context.Context, key, candidate domain.Address) (bool, error) {
	identity, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ObserveAuthorization(false)
			return false, nil
		}
		return false, err
	}

	allowed := identity.IsOwnerOrDelegate(candidate)
	s.metrics.ObserveAuthorization(allowed)
	return allowed, nil
}

// Resolve returns the identity record for key.
func (s *Service) Resolve(ctx context.Context, key domain.Address) (models.Identity, error) {
	return s.store.Get(ctx, key)
}

func (s *Service) authorizedIdentity(ctx context.Context, key, caller domain.Address) (models.Identity, error) {
	identity, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized: caller is not the owner or delegate")
		}
		return models.Identity{}, err
	}
	if !identity.IsOwnerOrDelegate(caller) {
		return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized: caller is not the owner or delegate")
	}
	return identity, nil
}
