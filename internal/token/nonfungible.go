package token

import (
	"context"
	"sync"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// NonFungible is an erc-721-shaped ownership ledger: tokenID→owner plus
// per-token transfer approvals.
type NonFungible struct {
	mu       sync.RWMutex
	owners   map[domain.TokenID]domain.Address
	approved map[domain.TokenID]domain.Address
}

func NewNonFungible() *NonFungible {
	return &NonFungible{
		owners:   make(map[domain.TokenID]domain.Address),
		approved: make(map[domain.TokenID]domain.Address),
	}
}

// Mint assigns a fresh token to owner.
func (n *NonFungible) Mint(ctx context.Context, owner domain.Address, tokenID domain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.owners[tokenID]; exists {
		return dErrors.New(dErrors.CodeAlreadyExists, "token already minted")
	}
	n.owners[tokenID] = owner
	return nil
}

// OwnerOf returns the current owner, or the zero address for unminted tokens.
func (n *NonFungible) OwnerOf(ctx context.Context, tokenID domain.TokenID) domain.Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.owners[tokenID]
}

// Approve lets spender transfer the token once. Owner only.
func (n *NonFungible) Approve(ctx context.Context, caller, spender domain.Address, tokenID domain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.owners[tokenID] != caller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the token owner can approve")
	}
	n.approved[tokenID] = spender
	return nil
}

// TransferFrom moves the token from its owner to to. The caller must be the
// owner or the approved spender; approval clears on transfer.
func (n *NonFungible) TransferFrom(ctx context.Context, caller, from, to domain.Address, tokenID domain.TokenID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	owner, exists := n.owners[tokenID]
	if !exists || owner != from {
		return dErrors.New(dErrors.CodeTransferFailed, "token not owned by sender")
	}
	if caller != owner && n.approved[tokenID] != caller {
		return dErrors.New(dErrors.CodeTransferFailed, "caller not approved for token")
	}
	n.owners[tokenID] = to
	delete(n.approved, tokenID)
	return nil
}
