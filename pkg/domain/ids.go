// Package domain holds the shared identifier and value types used across the
// ledger core. Keeping them in one leaf package lets stores, services, and
// transports agree on types without import cycles.
package domain

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Address identifies a ledger account. Addresses are opaque strings; the
// registry does not care whether they are hex key hashes or did fragments.
type Address string

// ZeroAddress is the absent-account sentinel.
const ZeroAddress Address = ""

func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) String() string { return string(a) }

// TokenID identifies a single non-fungible token within a collection.
type TokenID uint64

// ActionID names a weighted reputation action. Computed as the SHA3-256 of
// the action label so callers agree on a stable 32-byte key.
type ActionID [32]byte

// ProductHash keys a per-product reputation score.
type ProductHash [32]byte

// ProofID identifies a proof-of-funds attestation.
type ProofID string

func (p ProofID) String() string { return string(p) }

// Hash32 returns the SHA3-256 digest of a label, the canonical way action and
// product identifiers are derived from human-readable names.
func Hash32(label string) [32]byte {
	return sha3.Sum256([]byte(label))
}

// ActionIDOf derives the ActionID for a named action.
func ActionIDOf(label string) ActionID { return ActionID(Hash32(label)) }

// ProductHashOf derives the ProductHash for a named product.
func ProductHashOf(label string) ProductHash { return ProductHash(Hash32(label)) }

func (a ActionID) String() string    { return hex.EncodeToString(a[:]) }
func (p ProductHash) String() string { return hex.EncodeToString(p[:]) }

// ParseProductHash decodes the 64-char hex form produced by String.
func ParseProductHash(s string) (ProductHash, error) {
	var p ProductHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("decode product hash: %w", err)
	}
	if len(raw) != len(p) {
		return p, fmt.Errorf("product hash must be %d bytes, got %d", len(p), len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

// Amount helpers. Asset amounts use big.Int because 18-decimal fungible
// assets overflow uint64 at realistic supplies.

// NewAmount returns an amount from a non-negative int64.
func NewAmount(v int64) *big.Int { return big.NewInt(v) }

// ZeroAmount returns a fresh zero amount.
func ZeroAmount() *big.Int { return new(big.Int) }

// CloneAmount copies an amount, treating nil as zero.
func CloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// IsPositive reports whether v is strictly greater than zero.
func IsPositive(v *big.Int) bool { return v != nil && v.Sign() > 0 }
