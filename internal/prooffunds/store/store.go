// Package store persists proof-of-funds attestations. Proofs are append-only
// apart from the single used-flag flip; nothing here deletes them.
package store

import (
	"context"

	"tessera/internal/prooffunds/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// ErrNotFound keeps store-level misses consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "proof not found")

// ErrAlreadyUsed is returned by MarkUsed when the flag was already set. The
// store is the authority for the single-use rule: two callers racing to
// consume one proof must see exactly one success.
var ErrAlreadyUsed = dErrors.New(dErrors.CodeAlreadyUsed, "Proof has already been used")

// Store is the persistence boundary for proofs.
type Store interface {
	// Create inserts a new proof record.
	Create(ctx context.Context, proof models.Proof) error

	// Get returns the proof for id; ErrNotFound when absent.
	Get(ctx context.Context, id domain.ProofID) (models.Proof, error)

	// MarkUsed flips the used flag atomically; ErrNotFound when absent,
	// ErrAlreadyUsed when the flag was set before the call.
	MarkUsed(ctx context.Context, id domain.ProofID) error
}
