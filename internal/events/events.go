// Package events defines the durable, ordered signal log the ledger core
// emits: every state change that an external observer may rely on becomes an
// Event. Sinks are append-only; events are records, not callbacks.
package events

import (
	"context"
	"math/big"
	"time"

	"tessera/pkg/domain"
)

// Kind names an observable state change.
type Kind string

const (
	KindIdentityUpdated Kind = "identity.updated"

	KindEscrowDeposited Kind = "escrow.deposited"
	KindEscrowReleased  Kind = "escrow.released"
	KindEscrowRefunded  Kind = "escrow.refunded"

	KindProofDeposited Kind = "proof.deposited"
	KindProofCreated   Kind = "proof.created"
	KindProofUsed      Kind = "proof.used"
	KindProofWithdrawn Kind = "proof.withdrawn"

	KindScoreUpdated Kind = "reputation.score_updated"

	KindFeesAdjusted Kind = "billing.fees_adjusted"
	KindFeeCollected Kind = "billing.fee_collected"
	KindWithdrawn    Kind = "billing.withdrawn"
)

// Event is one observable state change. Key identifies the entity the event
// is about (identity key, proof ID, escrow party); Actor is who caused it.
type Event struct {
	ID     string          `json:"id"`
	Kind   Kind            `json:"kind"`
	Key    string          `json:"key"`
	Actor  domain.Address  `json:"actor"`
	Amount *big.Int        `json:"amount,omitempty"`
	Detail string          `json:"detail,omitempty"`
	At     time.Time       `json:"at"`
}

// Publisher accepts events for durable recording.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Emit publishes through p, tolerating a nil publisher so services can treat
// event wiring as optional.
func Emit(ctx context.Context, p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	return p.Emit(ctx, event)
}
