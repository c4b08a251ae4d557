package token

import (
	"context"
	"math/big"
	"sync"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// NativeLedger models native-value account balances so custody components
// and tests can assert conservation. On a real ledger these moves are host
// semantics; here they are explicit.
type NativeLedger struct {
	mu       sync.RWMutex
	balances map[domain.Address]*big.Int
}

func NewNativeLedger() *NativeLedger {
	return &NativeLedger{balances: make(map[domain.Address]*big.Int)}
}

// Credit funds an account out of thin air. Test and genesis setup only.
func (l *NativeLedger) Credit(addr domain.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[addr] == nil {
		l.balances[addr] = new(big.Int)
	}
	l.balances[addr] = new(big.Int).Add(l.balances[addr], amount)
}

func (l *NativeLedger) BalanceOf(ctx context.Context, addr domain.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneAmount(l.balances[addr])
}

// Move transfers amount between accounts, failing on insufficient funds.
func (l *NativeLedger) Move(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	if !domain.IsPositive(amount) {
		return dErrors.New(dErrors.CodeBadRequest, "transfer amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeTransferFailed, "insufficient balance")
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	if l.balances[to] == nil {
		l.balances[to] = new(big.Int)
	}
	l.balances[to] = new(big.Int).Add(l.balances[to], amount)
	return nil
}
