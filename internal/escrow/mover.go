package escrow

import (
	"context"
	"math/big"

	"tessera/internal/token"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// AssetMover abstracts the transfer mechanics that differ between native,
// fungible, and non-fungible escrows. The state machine is identical across
// the three; only how value enters and leaves custody changes.
//
// DepositFrom returns the custodied balance the deposit established, so the
// engine records exactly what was received rather than what was requested.
type AssetMover interface {
	DepositFrom(ctx context.Context, from domain.Address, amount *big.Int) (*big.Int, error)
	PayOut(ctx context.Context, to domain.Address, amount *big.Int) error
}

// nativeMover pulls and pays native value through the account ledger.
type nativeMover struct {
	ledger  *token.NativeLedger
	custody domain.Address
}

// NewNativeMover moves native value in and out of the escrow's custody
// account.
func NewNativeMover(ledger *token.NativeLedger, custody domain.Address) AssetMover {
	return &nativeMover{ledger: ledger, custody: custody}
}

func (m *nativeMover) DepositFrom(ctx context.Context, from domain.Address, amount *big.Int) (*big.Int, error) {
	if !domain.IsPositive(amount) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "deposit amount must be positive")
	}
	if err := m.ledger.Move(ctx, from, m.custody, amount); err != nil {
		return nil, err
	}
	return domain.CloneAmount(amount), nil
}

func (m *nativeMover) PayOut(ctx context.Context, to domain.Address, amount *big.Int) error {
	return m.ledger.Move(ctx, m.custody, to, amount)
}

// fungibleMover pulls previously-approved fungible tokens into custody.
type fungibleMover struct {
	token   *token.Fungible
	custody domain.Address
}

// NewFungibleMover moves fungible tokens; deposits require the depositor to
// have approved the custody address beforehand.
func NewFungibleMover(tok *token.Fungible, custody domain.Address) AssetMover {
	return &fungibleMover{token: tok, custody: custody}
}

func (m *fungibleMover) DepositFrom(ctx context.Context, from domain.Address, amount *big.Int) (*big.Int, error) {
	if !domain.IsPositive(amount) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "deposit amount must be positive")
	}
	if err := m.token.TransferFrom(ctx, m.custody, from, m.custody, amount); err != nil {
		return nil, err
	}
	return domain.CloneAmount(amount), nil
}

func (m *fungibleMover) PayOut(ctx context.Context, to domain.Address, amount *big.Int) error {
	return m.token.Transfer(ctx, m.custody, to, amount)
}

// nonFungibleMover custodies one specific token. Balance is 1 while funded.
type nonFungibleMover struct {
	token   *token.NonFungible
	tokenID domain.TokenID
	custody domain.Address
}

// NewNonFungibleMover moves one fixed token; deposits require prior approval
// of the custody address for that token.
func NewNonFungibleMover(tok *token.NonFungible, tokenID domain.TokenID, custody domain.Address) AssetMover {
	return &nonFungibleMover{token: tok, tokenID: tokenID, custody: custody}
}

func (m *nonFungibleMover) DepositFrom(ctx context.Context, from domain.Address, _ *big.Int) (*big.Int, error) {
	if err := m.token.TransferFrom(ctx, m.custody, from, m.custody, m.tokenID); err != nil {
		return nil, err
	}
	return domain.NewAmount(1), nil
}

func (m *nonFungibleMover) PayOut(ctx context.Context, to domain.Address, _ *big.Int) error {
	return m.token.TransferFrom(ctx, m.custody, m.custody, to, m.tokenID)
}
