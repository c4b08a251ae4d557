package reputation

import (
	"context"
	"fmt"
	"math/big"

	"tessera/internal/escrow"
	"tessera/pkg/domain"
)

// Facade bundles the score ledger with one escrow per asset kind so a single
// surface drives the reputable escrow flow: funds settle first, then the
// ledger records the outcome through the escrows' recorder hook.
type Facade struct {
	ledger      *Service
	native      *escrow.Escrow
	fungible    *escrow.Escrow
	nonFungible *escrow.Escrow
}

// NewFacade wires the ledger to the three escrow instances. Each escrow is
// expected to carry WithRecorder(ledger) so settlements move scores; the
// facade does not re-apply them.
func NewFacade(ledger *Service, native, fungible, nonFungible *escrow.Escrow) (*Facade, error) {
	if ledger == nil {
		return nil, fmt.Errorf("reputation ledger is required")
	}
	if native == nil || fungible == nil || nonFungible == nil {
		return nil, fmt.Errorf("all three escrow instances are required")
	}
	return &Facade{
		ledger:      ledger,
		native:      native,
		fungible:    fungible,
		nonFungible: nonFungible,
	}, nil
}

// Ledger exposes the underlying score service.
func (f *Facade) Ledger() *Service { return f.ledger }

func (f *Facade) Native() *escrow.Escrow      { return f.native }
func (f *Facade) Fungible() *escrow.Escrow    { return f.fungible }
func (f *Facade) NonFungible() *escrow.Escrow { return f.nonFungible }

// InitiateEscrow funds the native escrow.
func (f *Facade) InitiateEscrow(ctx context.Context, caller domain.Address, amount *big.Int) error {
	return f.native.Deposit(ctx, caller, amount)
}

// ReleaseEscrow settles the native escrow to the beneficiary.
func (f *Facade) ReleaseEscrow(ctx context.Context, caller domain.Address) error {
	return f.native.Release(ctx, caller)
}

// RefundEscrow settles the native escrow back to the depositor.
func (f *Facade) RefundEscrow(ctx context.Context, caller domain.Address) error {
	return f.native.Refund(ctx, caller)
}

// InitiateEscrowFungible funds the fungible-asset escrow. The depositor must
// have approved the escrow's custody address beforehand.
func (f *Facade) InitiateEscrowFungible(ctx context.Context, caller domain.Address, amount *big.Int) error {
	return f.fungible.Deposit(ctx, caller, amount)
}

func (f *Facade) ReleaseEscrowFungible(ctx context.Context, caller domain.Address) error {
	return f.fungible.Release(ctx, caller)
}

func (f *Facade) RefundEscrowFungible(ctx context.Context, caller domain.Address) error {
	return f.fungible.Refund(ctx, caller)
}

// InitiateEscrowNonFungible pulls the escrow's fixed token into custody.
func (f *Facade) InitiateEscrowNonFungible(ctx context.Context, caller domain.Address) error {
	return f.nonFungible.Deposit(ctx, caller, nil)
}

func (f *Facade) ReleaseEscrowNonFungible(ctx context.Context, caller domain.Address) error {
	return f.nonFungible.Release(ctx, caller)
}

func (f *Facade) RefundEscrowNonFungible(ctx context.Context, caller domain.Address) error {
	return f.nonFungible.Refund(ctx, caller)
}
