// Package escrow implements the three-party custody state machine: one
// deposit for one (depositor, beneficiary, arbiter) triple, moving
// empty → funded → released|refunded. Deposit authorization goes through the
// identity guard so depositors can act through delegates; release and refund
// are gated on the fixed arbiter address so the referee cannot be swapped in
// via delegation.
package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tessera/internal/escrow/metrics"
	"tessera/internal/events"
	"tessera/internal/identity/guard"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Outcome names a terminal settlement for reputation recording.
type Outcome string

const (
	OutcomeReleased Outcome = "released"
	OutcomeRefunded Outcome = "refunded"
)

// OutcomeRecorder receives settlement outcomes. The reputation ledger
// implements it; the escrow never imports reputation directly.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, depositor, beneficiary domain.Address, outcome Outcome) error
}

// Config fixes the parties of one escrow instance. All three are immutable
// after construction.
type Config struct {
	// Custody is the escrow's own ledger address holding the deposit.
	Custody     domain.Address
	Depositor   domain.Address
	Beneficiary domain.Address
	Arbiter     domain.Address
}

// Escrow is one instance of the custody state machine over a single asset.
type Escrow struct {
	cfg   Config
	guard *guard.Guard
	mover AssetMover

	mu      sync.Mutex
	status  Status
	balance *big.Int

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
	recorder  OutcomeRecorder
	tracer    trace.Tracer
}

type Option func(*Escrow)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Escrow) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Escrow) { e.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Escrow) { e.publisher = p }
}

// WithRecorder wires settlement outcomes into a reputation ledger, turning
// this instance into a reputable escrow.
func WithRecorder(r OutcomeRecorder) Option {
	return func(e *Escrow) { e.recorder = r }
}

func New(cfg Config, g *guard.Guard, mover AssetMover, opts ...Option) (*Escrow, error) {
	if cfg.Custody.IsZero() || cfg.Depositor.IsZero() || cfg.Beneficiary.IsZero() || cfg.Arbiter.IsZero() {
		return nil, fmt.Errorf("escrow parties and custody address are required")
	}
	if g == nil {
		return nil, fmt.Errorf("authorization guard is required")
	}
	if mover == nil {
		return nil, fmt.Errorf("asset mover is required")
	}

	e := &Escrow{
		cfg:     cfg,
		guard:   g,
		mover:   mover,
		status:  StatusEmpty,
		balance: new(big.Int),
		tracer:  otel.Tracer("tessera/escrow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Escrow) Depositor() domain.Address   { return e.cfg.Depositor }
func (e *Escrow) Beneficiary() domain.Address { return e.cfg.Beneficiary }
func (e *Escrow) Arbiter() domain.Address     { return e.cfg.Arbiter }
func (e *Escrow) Custody() domain.Address     { return e.cfg.Custody }

// Status returns the current lifecycle state.
func (e *Escrow) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Balance returns the custodied amount.
func (e *Escrow) Balance(ctx context.Context) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneAmount(e.balance)
}

// Deposit pulls the asset into custody. Valid only while empty; the caller
// must be authorized for the depositor identity. For non-fungible escrows
// amount is ignored, the instance's fixed token is pulled.
func (e *Escrow) Deposit(ctx context.Context, caller domain.Address, amount *big.Int) error {
	if err := e.guard.RequireAuthorized(ctx, e.cfg.Depositor, caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusEmpty {
		return dErrors.New(dErrors.CodeInvalidState, "escrow already funded")
	}

	received, err := e.mover.DepositFrom(ctx, e.cfg.Depositor, amount)
	if err != nil {
		return err
	}

	e.balance = received
	e.status = StatusFunded
	e.metrics.IncrementDeposits()
	if e.logger != nil {
		e.logger.InfoContext(ctx, "escrow funded",
			"depositor", e.cfg.Depositor, "amount", received.String())
	}
	return events.Emit(ctx, e.publisher, events.Event{
		Kind:   events.KindEscrowDeposited,
		Key:    e.cfg.Custody.String(),
		Actor:  e.cfg.Depositor,
		Amount: domain.CloneAmount(received),
	})
}

// Release pays the full balance to the beneficiary. Arbiter only, funded
// only, terminal.
func (e *Escrow) Release(ctx context.Context, caller domain.Address) error {
	return e.settle(ctx, caller, OutcomeReleased)
}

// Refund returns the full balance to the depositor. Arbiter only, funded
// only, terminal.
func (e *Escrow) Refund(ctx context.Context, caller domain.Address) error {
	return e.settle(ctx, caller, OutcomeRefunded)
}

func (e *Escrow) settle(ctx context.Context, caller domain.Address, outcome Outcome) error {
	ctx, span := e.tracer.Start(ctx, "escrow.settle")
	defer span.End()

	// The arbiter is a static address, deliberately not resolved through the
	// identity registry: a delegate must never be able to become the referee.
	if caller != e.cfg.Arbiter {
		return guard.ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusFunded {
		return dErrors.Newf(dErrors.CodeInvalidState, "escrow is %s, not funded", e.status)
	}

	recipient := e.cfg.Beneficiary
	kind := events.KindEscrowReleased
	next := StatusReleased
	if outcome == OutcomeRefunded {
		recipient = e.cfg.Depositor
		kind = events.KindEscrowRefunded
		next = StatusRefunded
	}

	paid := e.balance
	if err := e.mover.PayOut(ctx, recipient, paid); err != nil {
		return err
	}

	e.balance = new(big.Int)
	e.status = next
	e.metrics.IncrementSettlements(string(outcome))
	if e.logger != nil {
		e.logger.InfoContext(ctx, "escrow settled",
			"outcome", outcome, "recipient", recipient, "amount", paid.String())
	}

	// Funds have moved and the status is terminal. Event publication and
	// the reputation side effect must not turn a completed settlement into
	// a caller-visible failure, so their errors are logged, not returned.
	if err := events.Emit(ctx, e.publisher, events.Event{
		Kind:   kind,
		Key:    e.cfg.Custody.String(),
		Actor:  caller,
		Amount: domain.CloneAmount(paid),
	}); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "settlement event publish failed", "outcome", outcome, "error", err)
	}

	if e.recorder != nil {
		if err := e.recorder.RecordOutcome(ctx, e.cfg.Depositor, e.cfg.Beneficiary, outcome); err != nil && e.logger != nil {
			e.logger.ErrorContext(ctx, "reputation update failed after settlement", "outcome", outcome, "error", err)
		}
	}
	return nil
}
