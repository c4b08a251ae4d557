package models

import (
	"math/big"
	"time"

	"tessera/pkg/domain"
)

// Proof is a single-use, time-bounded attestation that funds were custodied
// at creation time. Proofs are records, not reservations: using one moves no
// funds, and expiry is evaluated at use time against the stored deadline.
type Proof struct {
	ID     domain.ProofID `json:"id"`
	Owner  domain.Address `json:"owner"`
	Amount *big.Int       `json:"amount"`
	// TokenID is set instead of Amount for non-fungible proofs.
	TokenID domain.TokenID `json:"token_id,omitempty"`
	Expiry  time.Time      `json:"expiry"`
	Used    bool           `json:"used"`
}

// Clone returns a copy with its own amount so store snapshots stay isolated.
func (p Proof) Clone() Proof {
	out := p
	out.Amount = domain.CloneAmount(p.Amount)
	return out
}
