package reputation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tessera/internal/escrow"
	"tessera/internal/identity"
	"tessera/internal/identity/guard"
	identitystore "tessera/internal/identity/store"
	"tessera/internal/reputation"
	"tessera/internal/reputation/store"
	"tessera/internal/token"
	"tessera/pkg/domain"
	"tessera/pkg/testutil"
)

func TestFacadeEscrowFlow(t *testing.T) {
	const (
		depositor   = domain.Address("0xdepositor")
		beneficiary = domain.Address("0xbeneficiary")
		arbiter     = domain.Address("0xarbiter")
	)

	registry, err := identity.New(identitystore.NewInMemoryStore())
	require.NoError(t, err)
	g := guard.New(registry)
	require.NoError(t, registry.Register(testutil.Ctx(depositor), depositor, depositor, "did:d"))

	ledger := token.NewNativeLedger()
	ledger.Credit(depositor, domain.NewAmount(500))
	fungible := token.NewFungible(depositor, domain.NewAmount(500))
	nonFungible := token.NewNonFungible()
	require.NoError(t, nonFungible.Mint(testutil.Ctx(depositor), depositor, 7))

	scores, err := reputation.New(store.NewInMemoryStore(), registry, owner)
	require.NoError(t, err)
	require.NoError(t, scores.SetActionWeight(testutil.Ctx(owner), owner, depositor, reputation.ActionEscrowReleased, 5))
	require.NoError(t, scores.SetActionWeight(testutil.Ctx(owner), owner, beneficiary, reputation.ActionEscrowReleased, 5))

	newEscrow := func(custody domain.Address, mover escrow.AssetMover) *escrow.Escrow {
		e, err := escrow.New(escrow.Config{
			Custody:     custody,
			Depositor:   depositor,
			Beneficiary: beneficiary,
			Arbiter:     arbiter,
		}, g, mover, escrow.WithRecorder(scores))
		require.NoError(t, err)
		return e
	}
	facade, err := reputation.NewFacade(scores,
		newEscrow("0xesc-native", escrow.NewNativeMover(ledger, "0xesc-native")),
		newEscrow("0xesc-fungible", escrow.NewFungibleMover(fungible, "0xesc-fungible")),
		newEscrow("0xesc-nft", escrow.NewNonFungibleMover(nonFungible, 7, "0xesc-nft")),
	)
	require.NoError(t, err)

	ctx := testutil.Ctx(depositor)
	require.NoError(t, facade.InitiateEscrow(ctx, depositor, domain.NewAmount(100)))
	require.NoError(t, facade.ReleaseEscrow(ctx, arbiter))
	require.Equal(t, int64(100), ledger.BalanceOf(ctx, beneficiary).Int64())

	profile, err := facade.Ledger().CompleteProfile(ctx, depositor)
	require.NoError(t, err)
	require.Equal(t, int64(5), profile.ConsumerScore)

	profile, err = facade.Ledger().CompleteProfile(ctx, beneficiary)
	require.NoError(t, err)
	require.Equal(t, int64(5), profile.ProviderScore)

	// Fungible refund returns the tokens without moving scores: the refund
	// action has no configured weight.
	require.NoError(t, fungible.Approve(ctx, depositor, "0xesc-fungible", domain.NewAmount(200)))
	require.NoError(t, facade.InitiateEscrowFungible(ctx, depositor, domain.NewAmount(200)))
	require.NoError(t, facade.RefundEscrowFungible(ctx, arbiter))
	require.Equal(t, int64(500), fungible.BalanceOf(ctx, depositor).Int64())

	profile, err = facade.Ledger().CompleteProfile(ctx, depositor)
	require.NoError(t, err)
	require.Equal(t, int64(5), profile.ConsumerScore)

	// Non-fungible flow custodies the fixed token and releases it to the
	// beneficiary.
	require.NoError(t, nonFungible.Approve(ctx, depositor, "0xesc-nft", 7))
	require.NoError(t, facade.InitiateEscrowNonFungible(ctx, depositor))
	require.NoError(t, facade.ReleaseEscrowNonFungible(ctx, arbiter))
	require.Equal(t, beneficiary, nonFungible.OwnerOf(ctx, 7))
}
