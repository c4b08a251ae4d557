// Package prooffunds implements the proof-of-funds registry: an owner
// custodies assets and issues single-use, time-bounded attestations that
// the funds exist. Using a proof consumes the attestation, never the funds.
package prooffunds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/escrow"
	"tessera/internal/events"
	"tessera/internal/identity/guard"
	"tessera/internal/prooffunds/metrics"
	"tessera/internal/prooffunds/models"
	"tessera/internal/prooffunds/store"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// Store is the persistence boundary for proofs.
type Store = store.Store

// Config fixes the registry's addresses. Owner is both the identity whose
// delegates may deposit and create proofs, and the only address allowed to
// withdraw.
type Config struct {
	Custody domain.Address
	Owner   domain.Address
}

// Service custodies a divisible asset (native or fungible, selected by the
// mover) and issues proofs against the custodied balance.
type Service struct {
	cfg    Config
	guard  *guard.Guard
	mover  escrow.AssetMover
	proofs Store

	mu      sync.Mutex
	custody *big.Int

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
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

func New(cfg Config, g *guard.Guard, mover escrow.AssetMover, proofs Store, opts ...Option) (*Service, error) {
	if cfg.Custody.IsZero() || cfg.Owner.IsZero() {
		return nil, fmt.Errorf("custody and owner addresses are required")
	}
	if g == nil || mover == nil || proofs == nil {
		return nil, fmt.Errorf("guard, mover, and proof store are required")
	}

	svc := &Service{
		cfg:     cfg,
		guard:   g,
		mover:   mover,
		proofs:  proofs,
		custody: new(big.Int),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Custody returns the currently custodied balance.
func (s *Service) Custody() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAmount(s.custody)
}

// Deposit pulls funds from the owner's account into custody. The caller must
// be authorized for the owner identity.
func (s *Service) Deposit(ctx context.Context, caller domain.Address, amount *big.Int) error {
	if err := s.guard.RequireAuthorized(ctx, s.cfg.Owner, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	received, err := s.mover.DepositFrom(ctx, s.cfg.Owner, amount)
	if err != nil {
		return err
	}
	s.custody.Add(s.custody, received)

	s.metrics.IncrementDeposits()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "funds deposited",
			"caller", caller, "amount", received.String(), "custody", s.custody.String())
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofDeposited,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Amount: received,
	})
}

// CreateProof issues a proof that amount is custodied, expiring after
// duration. The caller must be authorized for the owner identity; the proof
// does not reserve the funds it attests to.
func (s *Service) CreateProof(ctx context.Context, caller domain.Address, amount *big.Int, duration time.Duration) (domain.ProofID, error) {
	if err := s.guard.RequireAuthorized(ctx, s.cfg.Owner, caller); err != nil {
		return "", err
	}
	if !domain.IsPositive(amount) {
		return "", dErrors.New(dErrors.CodeBadRequest, "proof amount must be positive")
	}
	if duration <= 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "proof duration must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.Cmp(s.custody) > 0 {
		return "", dErrors.New(dErrors.CodeInsufficientFunds, "Insufficient funds in contract")
	}

	proof := models.Proof{
		ID:     domain.ProofID(uuid.NewString()),
		Owner:  s.cfg.Owner,
		Amount: domain.CloneAmount(amount),
		Expiry: requestcontext.Now(ctx).Add(duration),
	}
	if err := s.proofs.Create(ctx, proof); err != nil {
		return "", err
	}

	s.metrics.IncrementProofsCreated()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "proof created",
			"proof", proof.ID, "amount", amount.String(), "expiry", proof.Expiry)
	}
	if err := events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofCreated,
		Key:    proof.ID.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(amount),
	}); err != nil {
		return "", err
	}
	return proof.ID, nil
}

// UseProof consumes the proof. Callable by anyone holding the ID; a proof at
// or past its deadline is expired, and a consumed proof never verifies
// again. No funds move.
func (s *Service) UseProof(ctx context.Context, caller domain.Address, id domain.ProofID) (models.Proof, error) {
	proof, err := s.proofs.Get(ctx, id)
	if err != nil {
		return models.Proof{}, err
	}

	if !requestcontext.Now(ctx).Before(proof.Expiry) {
		s.metrics.ObserveProofUse("expired")
		return models.Proof{}, dErrors.New(dErrors.CodeExpired, "Proof has expired")
	}
	if proof.Used {
		s.metrics.ObserveProofUse("already_used")
		return models.Proof{}, dErrors.New(dErrors.CodeAlreadyUsed, "Proof has already been used")
	}

	// The store's conditional flip is the single-use authority; a racing
	// use that slipped past the check above loses here.
	if err := s.proofs.MarkUsed(ctx, id); err != nil {
		if errors.Is(err, store.ErrAlreadyUsed) {
			s.metrics.ObserveProofUse("already_used")
		}
		return models.Proof{}, err
	}
	proof.Used = true

	s.metrics.ObserveProofUse("ok")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "proof used", "proof", id, "caller", caller)
	}
	if err := events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofUsed,
		Key:    id.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(proof.Amount),
	}); err != nil {
		return models.Proof{}, err
	}
	return proof, nil
}

// Proof returns the stored proof without consuming it.
func (s *Service) Proof(ctx context.Context, id domain.ProofID) (models.Proof, error) {
	return s.proofs.Get(ctx, id)
}

// Withdraw pays custodied funds back to the owner. Owner only, by static
// address: delegates may issue proofs but never extract the funds behind
// them.
func (s *Service) Withdraw(ctx context.Context, caller domain.Address, amount *big.Int) error {
	if caller != s.cfg.Owner {
		return guard.ErrUnauthorized
	}
	if !domain.IsPositive(amount) {
		return dErrors.New(dErrors.CodeBadRequest, "withdraw amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.Cmp(s.custody) > 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "Insufficient funds in contract")
	}
	if err := s.mover.PayOut(ctx, s.cfg.Owner, amount); err != nil {
		return err
	}
	s.custody.Sub(s.custody, amount)

	s.metrics.IncrementWithdrawals()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "funds withdrawn",
			"amount", amount.String(), "custody", s.custody.String())
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofWithdrawn,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(amount),
	})
}

// IsNotFound reports whether err is a proof-store miss.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
