// Package token provides the in-process asset ledgers the escrow and
// proof-of-funds engines move value through. They implement the external
// collaborator interfaces (fungible transferFrom/balanceOf, non-fungible
// transferFrom/ownerOf, native balance moves) with the standard guard
// semantics: transfers fail, they never silently truncate.
package token

import (
	"context"
	"math/big"
	"sync"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Fungible is an erc-20-shaped asset ledger: balances plus owner→spender
// allowances. Invariant: sum(balances) == totalSupply.
type Fungible struct {
	mu          sync.RWMutex
	balances    map[domain.Address]*big.Int
	allowances  map[domain.Address]map[domain.Address]*big.Int
	totalSupply *big.Int
}

// NewFungible mints the initial supply to the issuer.
func NewFungible(issuer domain.Address, initialSupply *big.Int) *Fungible {
	f := &Fungible{
		balances:    make(map[domain.Address]*big.Int),
		allowances:  make(map[domain.Address]map[domain.Address]*big.Int),
		totalSupply: domain.CloneAmount(initialSupply),
	}
	f.balances[issuer] = domain.CloneAmount(initialSupply)
	return f
}

func (f *Fungible) BalanceOf(ctx context.Context, addr domain.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.CloneAmount(f.balances[addr])
}

func (f *Fungible) TotalSupply() *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.CloneAmount(f.totalSupply)
}

// Transfer moves amount from the caller's balance.
func (f *Fungible) Transfer(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return dErrors.New(dErrors.CodeBadRequest, "transfer amount must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.move(from, to, amount)
}

// Approve sets the spender's allowance over owner's balance, overwriting any
// previous allowance.
func (f *Fungible) Approve(ctx context.Context, owner, spender domain.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.allowances[owner] == nil {
		f.allowances[owner] = make(map[domain.Address]*big.Int)
	}
	f.allowances[owner][spender] = domain.CloneAmount(amount)
	return nil
}

// Allowance returns the remaining approved amount.
func (f *Fungible) Allowance(ctx context.Context, owner, spender domain.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.CloneAmount(f.allowances[owner][spender])
}

// TransferFrom spends spender's allowance to move amount out of from.
func (f *Fungible) TransferFrom(ctx context.Context, spender, from, to domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return dErrors.New(dErrors.CodeBadRequest, "transfer amount must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	allowance := f.allowances[from][spender]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeTransferFailed, "insufficient allowance")
	}
	if err := f.move(from, to, amount); err != nil {
		return err
	}
	f.allowances[from][spender] = new(big.Int).Sub(allowance, amount)
	return nil
}

// move requires f.mu held.
func (f *Fungible) move(from, to domain.Address, amount *big.Int) error {
	balance := f.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeTransferFailed, "insufficient balance")
	}
	f.balances[from] = new(big.Int).Sub(balance, amount)
	if f.balances[to] == nil {
		f.balances[to] = new(big.Int)
	}
	f.balances[to] = new(big.Int).Add(f.balances[to], amount)
	return nil
}
