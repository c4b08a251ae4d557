// Package store persists reputation profiles and action weights. Profiles
// are created lazily on first write or read, so a miss is not an error at
// the service layer.
package store

import (
	"context"

	"tessera/internal/reputation/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// ErrNotFound keeps store-level misses consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "reputation profile not found")

// Store is the persistence boundary for reputation state.
type Store interface {
	// GetProfile returns the profile for identity; ErrNotFound when absent.
	GetProfile(ctx context.Context, identity domain.Address) (models.Profile, error)

	// SaveProfile inserts or overwrites a profile.
	SaveProfile(ctx context.Context, profile models.Profile) error

	// GetWeight returns the weight configured for an action on one
	// identity, zero when unset.
	GetWeight(ctx context.Context, identity domain.Address, action domain.ActionID) (int64, error)

	// SetWeight configures the score delta applied when the action moves
	// the identity's score.
	SetWeight(ctx context.Context, identity domain.Address, action domain.ActionID, weight int64) error
}
