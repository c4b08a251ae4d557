// Package store persists identity records. Stores are interface-driven so
// the registry service can run against memory in tests and Postgres in
// production without rewiring.
package store

import (
	"context"

	"tessera/internal/identity/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

var (
	// ErrNotFound keeps store-level misses consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "identity not found")

	// ErrDuplicateKey signals a second registration for an existing key.
	ErrDuplicateKey = dErrors.New(dErrors.CodeAlreadyExists, "Identity already exists")
)

// Store is the persistence boundary for identity records.
type Store interface {
	// Create inserts a new identity; ErrDuplicateKey when the key is taken.
	Create(ctx context.Context, identity models.Identity) error

	// Get returns the identity for key; ErrNotFound when absent.
	Get(ctx context.Context, key domain.Address) (models.Identity, error)

	// Update overwrites an existing identity; ErrNotFound when absent.
	Update(ctx context.Context, identity models.Identity) error
}
