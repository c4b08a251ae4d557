package prooffunds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/events"
	"tessera/internal/identity/guard"
	"tessera/internal/prooffunds/metrics"
	"tessera/internal/prooffunds/models"
	"tessera/internal/prooffunds/store"
	"tessera/internal/token"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

// TokenService is the non-fungible variant of the registry: custody is a set
// of deposited tokens, and proofs attest to holding one specific token.
type TokenService struct {
	cfg    Config
	guard  *guard.Guard
	tokens *token.NonFungible
	proofs Store

	mu        sync.Mutex
	deposited map[domain.TokenID]bool

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
}

type TokenOption func(*TokenService)

func WithTokenLogger(logger *slog.Logger) TokenOption {
	return func(s *TokenService) { s.logger = logger }
}

func WithTokenMetrics(m *metrics.Metrics) TokenOption {
	return func(s *TokenService) { s.metrics = m }
}

func WithTokenPublisher(p events.Publisher) TokenOption {
	return func(s *TokenService) { s.publisher = p }
}

func NewTokenService(cfg Config, g *guard.Guard, tokens *token.NonFungible, proofs Store, opts ...TokenOption) (*TokenService, error) {
	if cfg.Custody.IsZero() || cfg.Owner.IsZero() {
		return nil, fmt.Errorf("custody and owner addresses are required")
	}
	if g == nil || tokens == nil || proofs == nil {
		return nil, fmt.Errorf("guard, token collection, and proof store are required")
	}

	svc := &TokenService{
		cfg:       cfg,
		guard:     g,
		tokens:    tokens,
		proofs:    proofs,
		deposited: make(map[domain.TokenID]bool),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsDeposited reports whether tokenID is currently custodied.
func (s *TokenService) IsDeposited(tokenID domain.TokenID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deposited[tokenID]
}

// DepositToken pulls the token from the owner into custody. The owner must
// have approved the custody address for the token beforehand.
func (s *TokenService) DepositToken(ctx context.Context, caller domain.Address, tokenID domain.TokenID) error {
	if err := s.guard.RequireAuthorized(ctx, s.cfg.Owner, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.TransferFrom(ctx, s.cfg.Custody, s.cfg.Owner, s.cfg.Custody, tokenID); err != nil {
		return err
	}
	s.deposited[tokenID] = true

	s.metrics.IncrementDeposits()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "token deposited", "caller", caller, "token", tokenID)
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofDeposited,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Detail: fmt.Sprintf("token %d", tokenID),
	})
}

// CreateProof issues a proof that tokenID is custodied, expiring after
// duration.
func (s *TokenService) CreateProof(ctx context.Context, caller domain.Address, tokenID domain.TokenID, duration time.Duration) (domain.ProofID, error) {
	if err := s.guard.RequireAuthorized(ctx, s.cfg.Owner, caller); err != nil {
		return "", err
	}
	if duration <= 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "proof duration must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deposited[tokenID] {
		return "", dErrors.New(dErrors.CodeInsufficientFunds, "Insufficient funds in contract")
	}

	proof := models.Proof{
		ID:      domain.ProofID(uuid.NewString()),
		Owner:   s.cfg.Owner,
		Amount:  domain.NewAmount(1),
		TokenID: tokenID,
		Expiry:  requestcontext.Now(ctx).Add(duration),
	}
	if err := s.proofs.Create(ctx, proof); err != nil {
		return "", err
	}

	s.metrics.IncrementProofsCreated()
	if err := events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofCreated,
		Key:    proof.ID.String(),
		Actor:  caller,
		Detail: fmt.Sprintf("token %d", tokenID),
	}); err != nil {
		return "", err
	}
	return proof.ID, nil
}

// UseProof consumes the proof. Same single-use and deadline rules as the
// divisible variant.
func (s *TokenService) UseProof(ctx context.Context, caller domain.Address, id domain.ProofID) (models.Proof, error) {
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

	if err := s.proofs.MarkUsed(ctx, id); err != nil {
		if errors.Is(err, store.ErrAlreadyUsed) {
			s.metrics.ObserveProofUse("already_used")
		}
		return models.Proof{}, err
	}
	proof.Used = true

	s.metrics.ObserveProofUse("ok")
	if err := events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofUsed,
		Key:    id.String(),
		Actor:  caller,
		Detail: fmt.Sprintf("token %d", proof.TokenID),
	}); err != nil {
		return models.Proof{}, err
	}
	return proof, nil
}

// WithdrawToken returns a custodied token to the owner. Owner only, by
// static address.
func (s *TokenService) WithdrawToken(ctx context.Context, caller domain.Address, tokenID domain.TokenID) error {
	if caller != s.cfg.Owner {
		return guard.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deposited[tokenID] {
		return dErrors.New(dErrors.CodeInsufficientFunds, "Insufficient funds in contract")
	}
	if err := s.tokens.TransferFrom(ctx, s.cfg.Custody, s.cfg.Custody, s.cfg.Owner, tokenID); err != nil {
		return err
	}
	delete(s.deposited, tokenID)

	s.metrics.IncrementWithdrawals()
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindProofWithdrawn,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Detail: fmt.Sprintf("token %d", tokenID),
	})
}
