// Package billing implements the fee collector: a flat fee paid in native
// value, tracked per payer, withdrawable by the payer and sweepable by the
// collector's owner. Fee payments must match the configured fee exactly;
// there is no change-making.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"tessera/internal/billing/metrics"
	"tessera/internal/events"
	"tessera/internal/identity/guard"
	"tessera/internal/token"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// ErrNotOwner carries the collector's rejection reason for owner-gated
// operations.
var ErrNotOwner = dErrors.New(dErrors.CodeUnauthorized, "Only DID owner can perform this action")

// Config fixes the collector's addresses and starting fee.
type Config struct {
	// Custody is the collector's own ledger account holding collected fees.
	Custody domain.Address
	// Owner is the identity whose controller and delegates administer the
	// fee, and the payout target of WithdrawAll.
	Owner domain.Address
	// InitialFee is the fee charged until the first adjustment.
	InitialFee *big.Int
}

// Service is the fee collector.
type Service struct {
	cfg      Config
	registry guard.Registry
	ledger   *token.NativeLedger

	mu             sync.Mutex
	fee            *big.Int
	balances       map[domain.Address]*big.Int
	totalCollected *big.Int

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

func New(cfg Config, registry guard.Registry, ledger *token.NativeLedger, opts ...Option) (*Service, error) {
	if cfg.Custody.IsZero() || cfg.Owner.IsZero() {
		return nil, fmt.Errorf("custody and owner addresses are required")
	}
	if !domain.IsPositive(cfg.InitialFee) {
		return nil, fmt.Errorf("initial fee must be positive")
	}
	if registry == nil || ledger == nil {
		return nil, fmt.Errorf("identity registry and ledger are required")
	}

	svc := &Service{
		cfg:            cfg,
		registry:       registry,
		ledger:         ledger,
		fee:            domain.CloneAmount(cfg.InitialFee),
		balances:       make(map[domain.Address]*big.Int),
		totalCollected: new(big.Int),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Fee returns the currently charged fee.
func (s *Service) Fee() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAmount(s.fee)
}

// UserBalance returns the withdrawable balance accumulated by addr.
func (s *Service) UserBalance(addr domain.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAmount(s.balances[addr])
}

// TotalCollected returns the lifetime sum of collected fees. Withdrawals do
// not reduce it.
func (s *Service) TotalCollected() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAmount(s.totalCollected)
}

// AdjustFee changes the fee. The caller must be authorized for the owner
// identity; a zero or negative fee is rejected before the authorization so
// misconfiguration surfaces regardless of caller.
func (s *Service) AdjustFee(ctx context.Context, caller domain.Address, newFee *big.Int) error {
	if !domain.IsPositive(newFee) {
		return dErrors.New(dErrors.CodeBadRequest, "Fee must be greater than zero")
	}
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fee = domain.CloneAmount(newFee)
	s.metrics.IncrementFeeAdjustments()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "fee adjusted", "fee", newFee.String(), "caller", caller)
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindFeesAdjusted,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(newFee),
	})
}

// CollectFee charges the caller the current fee. value must equal the fee
// exactly; the payment moves into custody and is credited to the caller's
// withdrawable balance.
func (s *Service) CollectFee(ctx context.Context, caller domain.Address, value *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil || value.Cmp(s.fee) != 0 {
		return dErrors.New(dErrors.CodeBadRequest, "Fee not met")
	}
	if err := s.ledger.Move(ctx, caller, s.cfg.Custody, value); err != nil {
		return err
	}

	balance, ok := s.balances[caller]
	if !ok {
		balance = new(big.Int)
		s.balances[caller] = balance
	}
	balance.Add(balance, value)
	s.totalCollected.Add(s.totalCollected, value)

	s.metrics.IncrementFeesCollected()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "fee collected", "payer", caller, "amount", value.String())
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindFeeCollected,
		Key:    caller.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(value),
	})
}

// Withdraw pays the caller's accumulated balance to recipient and zeroes it.
func (s *Service) Withdraw(ctx context.Context, caller, recipient domain.Address) error {
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "recipient address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[caller]
	if !domain.IsPositive(balance) {
		return dErrors.New(dErrors.CodeInvalidState, "No balance to withdraw")
	}
	if err := s.ledger.Move(ctx, s.cfg.Custody, recipient, balance); err != nil {
		return err
	}

	paid := domain.CloneAmount(balance)
	delete(s.balances, caller)

	s.metrics.IncrementWithdrawals("user")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "balance withdrawn",
			"caller", caller, "recipient", recipient, "amount", paid.String())
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindWithdrawn,
		Key:    caller.String(),
		Actor:  caller,
		Amount: paid,
	})
}

// WithdrawAll sweeps the full custody to the owner and zeroes every user
// balance. Owner-authorized only.
func (s *Service) WithdrawAll(ctx context.Context, caller domain.Address) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.ledger.BalanceOf(ctx, s.cfg.Custody)
	if !domain.IsPositive(total) {
		return dErrors.New(dErrors.CodeInvalidState, "No balance to withdraw")
	}
	if err := s.ledger.Move(ctx, s.cfg.Custody, s.cfg.Owner, total); err != nil {
		return err
	}

	// The sweep empties custody, so per-user claims are no longer backed.
	s.balances = make(map[domain.Address]*big.Int)

	s.metrics.IncrementWithdrawals("owner")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "custody swept", "amount", total.String())
	}
	return events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.KindWithdrawn,
		Key:    s.cfg.Owner.String(),
		Actor:  caller,
		Amount: total,
	})
}

func (s *Service) requireOwner(ctx context.Context, caller domain.Address) error {
	ok, err := s.registry.IsOwnerOrDelegate(ctx, s.cfg.Owner, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authorization lookup failed")
	}
	if !ok {
		return ErrNotOwner
	}
	return nil
}
