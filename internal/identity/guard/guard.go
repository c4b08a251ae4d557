// Package guard wraps the registry's owner-or-delegate lookup into the single
// authorization predicate every funds-moving component calls before mutating
// state. The check is always a fresh registry read; nothing is cached.
package guard

import (
	"context"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

// Registry is the lookup surface the guard consults.
type Registry interface {
	IsOwnerOrDelegate(ctx context.Context, key, candidate domain.Address) (bool, error)
}

// ErrUnauthorized carries the canonical rejection reason.
var ErrUnauthorized = dErrors.New(dErrors.CodeUnauthorized, "Unauthorized: caller is not the owner or delegate")

// Guard is a reusable authorization policy over one registry.
type Guard struct {
	registry Registry
}

func New(registry Registry) *Guard {
	return &Guard{registry: registry}
}

// RequireAuthorized fails with ErrUnauthorized unless caller is the
// controller or a delegate of principal.
func (g *Guard) RequireAuthorized(ctx context.Context, principal, caller domain.Address) error {
	ok, err := g.registry.IsOwnerOrDelegate(ctx, principal, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authorization lookup failed")
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
