package guard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/identity/guard"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

type fakeRegistry struct {
	allowed map[string]bool
	err     error
}

func (f *fakeRegistry) IsOwnerOrDelegate(_ context.Context, key, candidate domain.Address) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[key.String()+"/"+candidate.String()], nil
}

func TestRequireAuthorized(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized caller passes", func(t *testing.T) {
		g := guard.New(&fakeRegistry{allowed: map[string]bool{"0xkey/0xcaller": true}})
		require.NoError(t, g.RequireAuthorized(ctx, "0xkey", "0xcaller"))
	})

	t.Run("unauthorized caller rejected with canonical reason", func(t *testing.T) {
		g := guard.New(&fakeRegistry{})
		err := g.RequireAuthorized(ctx, "0xkey", "0xcaller")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Equal(t, "Unauthorized: caller is not the owner or delegate", dErrors.MessageOf(err))
	})

	t.Run("registry failure surfaces as internal", func(t *testing.T) {
		g := guard.New(&fakeRegistry{err: errors.New("store down")})
		err := g.RequireAuthorized(ctx, "0xkey", "0xcaller")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	})
}
