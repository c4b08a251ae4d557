package models

import (
	"time"

	"tessera/pkg/domain"
)

// Profile is the per-identity reputation record. Scores are non-negative;
// decay is applied lazily against LastUpdate, never by a background task.
type Profile struct {
	Identity      domain.Address
	ConsumerScore int64
	ProviderScore int64
	LastUpdate    time.Time
	ProductScores map[domain.ProductHash]int64
}

// Clone returns a deep copy so store snapshots stay isolated.
func (p Profile) Clone() Profile {
	out := p
	out.ProductScores = make(map[domain.ProductHash]int64, len(p.ProductScores))
	for k, v := range p.ProductScores {
		out.ProductScores[k] = v
	}
	return out
}

// NewProfile returns the lazily-created zero profile for an identity.
func NewProfile(identity domain.Address) Profile {
	return Profile{
		Identity:      identity,
		ProductScores: make(map[domain.ProductHash]int64),
	}
}
