package billing_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"tessera/internal/billing"
	"tessera/internal/events"
	"tessera/internal/identity"
	identitystore "tessera/internal/identity/store"
	"tessera/internal/token"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/testutil"
)

const (
	custody  = domain.Address("0xfees")
	owner    = domain.Address("0xowner")
	delegate = domain.Address("0xdelegate")
	payer    = domain.Address("0xpayer")
	other    = domain.Address("0xother")
)

type ServiceSuite struct {
	suite.Suite
	ledger  *token.NativeLedger
	sink    *events.MemorySink
	service *billing.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctx := testutil.Ctx(owner)

	registry, err := identity.New(identitystore.NewInMemoryStore())
	s.Require().NoError(err)
	s.Require().NoError(registry.Register(ctx, owner, owner, "did:owner"))
	s.Require().NoError(registry.AddDelegate(ctx, owner, owner, delegate))

	s.ledger = token.NewNativeLedger()
	s.ledger.Credit(payer, domain.NewAmount(1000))
	s.sink = events.NewMemorySink()

	service, err := billing.New(
		billing.Config{Custody: custody, Owner: owner, InitialFee: domain.NewAmount(10)},
		registry,
		s.ledger,
		billing.WithPublisher(s.sink),
	)
	s.Require().NoError(err)
	s.service = service
}

func (s *ServiceSuite) TestAdjustFee() {
	s.Run("owner raises the fee", func() {
		s.Require().NoError(s.service.AdjustFee(testutil.Ctx(owner), owner, domain.NewAmount(25)))
		s.Equal(int64(25), s.service.Fee().Int64())
		s.Len(s.sink.ByKind(events.KindFeesAdjusted), 1)
	})

	s.Run("delegate of the owner may adjust", func() {
		s.Require().NoError(s.service.AdjustFee(testutil.Ctx(delegate), delegate, domain.NewAmount(30)))
		s.Equal(int64(30), s.service.Fee().Int64())
	})

	s.Run("outsider is rejected with the owner reason", func() {
		err := s.service.AdjustFee(testutil.Ctx(payer), payer, domain.NewAmount(1))
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		s.Equal("Only DID owner can perform this action", dErrors.MessageOf(err))
	})

	s.Run("zero fee is rejected regardless of caller", func() {
		err := s.service.AdjustFee(testutil.Ctx(owner), owner, domain.ZeroAmount())
		s.Require().Error(err)
		s.Equal("Fee must be greater than zero", dErrors.MessageOf(err))
	})
}

func (s *ServiceSuite) TestCollectFee() {
	ctx := testutil.Ctx(payer)

	s.Run("exact payment is collected", func() {
		s.Require().NoError(s.service.CollectFee(ctx, payer, domain.NewAmount(10)))
		s.Equal(int64(10), s.service.UserBalance(payer).Int64())
		s.Equal(int64(10), s.service.TotalCollected().Int64())
		s.Equal(int64(10), s.ledger.BalanceOf(ctx, custody).Int64())
		s.Len(s.sink.ByKind(events.KindFeeCollected), 1)
	})

	s.Run("underpayment is rejected", func() {
		err := s.service.CollectFee(ctx, payer, domain.NewAmount(9))
		s.Require().Error(err)
		s.Equal("Fee not met", dErrors.MessageOf(err))
	})

	s.Run("overpayment is rejected too", func() {
		err := s.service.CollectFee(ctx, payer, domain.NewAmount(11))
		s.Require().Error(err)
		s.Equal("Fee not met", dErrors.MessageOf(err))
	})

	s.Run("repeat payments accumulate", func() {
		s.Require().NoError(s.service.CollectFee(ctx, payer, domain.NewAmount(10)))
		s.Equal(int64(20), s.service.UserBalance(payer).Int64())
		s.Equal(int64(20), s.service.TotalCollected().Int64())
	})
}

func (s *ServiceSuite) TestWithdraw() {
	ctx := testutil.Ctx(payer)
	s.Require().NoError(s.service.CollectFee(ctx, payer, domain.NewAmount(10)))

	s.Run("caller without balance is rejected", func() {
		err := s.service.Withdraw(testutil.Ctx(other), other, other)
		s.Require().Error(err)
		s.Equal("No balance to withdraw", dErrors.MessageOf(err))
	})

	s.Run("payer withdraws to a chosen recipient", func() {
		s.Require().NoError(s.service.Withdraw(ctx, payer, other))
		s.Zero(s.service.UserBalance(payer).Int64())
		s.Equal(int64(10), s.ledger.BalanceOf(ctx, other).Int64())
		s.Zero(s.ledger.BalanceOf(ctx, custody).Int64())
	})

	s.Run("a second withdraw finds nothing", func() {
		err := s.service.Withdraw(ctx, payer, other)
		s.Require().Error(err)
		s.Equal("No balance to withdraw", dErrors.MessageOf(err))
	})

	s.Run("total collected is unaffected by withdrawals", func() {
		s.Equal(int64(10), s.service.TotalCollected().Int64())
	})
}

func (s *ServiceSuite) TestWithdrawAll() {
	ctx := testutil.Ctx(payer)
	s.Require().NoError(s.service.CollectFee(ctx, payer, domain.NewAmount(10)))
	s.Require().NoError(s.service.CollectFee(ctx, payer, domain.NewAmount(10)))

	s.Run("non-owner cannot sweep", func() {
		err := s.service.WithdrawAll(ctx, payer)
		s.Require().Error(err)
		s.Equal("Only DID owner can perform this action", dErrors.MessageOf(err))
	})

	s.Run("owner sweeps custody and voids user claims", func() {
		s.Require().NoError(s.service.WithdrawAll(testutil.Ctx(owner), owner))
		s.Equal(int64(20), s.ledger.BalanceOf(ctx, owner).Int64())
		s.Zero(s.ledger.BalanceOf(ctx, custody).Int64())
		s.Zero(s.service.UserBalance(payer).Int64())
	})

	s.Run("sweeping an empty custody is rejected", func() {
		err := s.service.WithdrawAll(testutil.Ctx(owner), owner)
		s.Require().Error(err)
		s.Equal("No balance to withdraw", dErrors.MessageOf(err))
	})
}
