package prooffunds_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tessera/internal/escrow"
	"tessera/internal/events"
	"tessera/internal/identity"
	"tessera/internal/identity/guard"
	identitystore "tessera/internal/identity/store"
	"tessera/internal/prooffunds"
	proofstore "tessera/internal/prooffunds/store"
	"tessera/internal/token"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/testutil"
)

const (
	custody  = domain.Address("0xpofcustody")
	owner    = domain.Address("0xowner")
	delegate = domain.Address("0xdelegate")
	outsider = domain.Address("0xoutsider")
	verifier = domain.Address("0xverifier")
)

type ServiceSuite struct {
	suite.Suite
	ledger  *token.NativeLedger
	sink    *events.MemorySink
	service *prooffunds.Service
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
	s.ledger.Credit(owner, domain.NewAmount(1000))
	s.sink = events.NewMemorySink()

	service, err := prooffunds.New(
		prooffunds.Config{Custody: custody, Owner: owner},
		guard.New(registry),
		escrow.NewNativeMover(s.ledger, custody),
		proofstore.NewInMemoryStore(),
		prooffunds.WithPublisher(s.sink),
	)
	s.Require().NoError(err)
	s.service = service
}

func (s *ServiceSuite) TestDeposit() {
	ctx := testutil.Ctx(owner)

	s.Run("owner deposits into custody", func() {
		s.Require().NoError(s.service.Deposit(ctx, owner, domain.NewAmount(300)))
		s.Equal(int64(300), s.service.Custody().Int64())
		s.Equal(int64(700), s.ledger.BalanceOf(ctx, owner).Int64())
		s.Len(s.sink.ByKind(events.KindProofDeposited), 1)
	})

	s.Run("delegate deposits on the owner's behalf", func() {
		s.Require().NoError(s.service.Deposit(testutil.Ctx(delegate), delegate, domain.NewAmount(100)))
		s.Equal(int64(400), s.service.Custody().Int64())
	})

	s.Run("outsider is rejected", func() {
		err := s.service.Deposit(testutil.Ctx(outsider), outsider, domain.NewAmount(1))
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestCreateProof() {
	ctx := testutil.Ctx(owner)
	s.Require().NoError(s.service.Deposit(ctx, owner, domain.NewAmount(300)))

	s.Run("proof covers custodied funds", func() {
		id, err := s.service.CreateProof(ctx, owner, domain.NewAmount(250), time.Hour)
		s.Require().NoError(err)
		s.NotEmpty(id)

		proof, err := s.service.Proof(ctx, id)
		s.Require().NoError(err)
		s.Equal(owner, proof.Owner)
		s.Equal(int64(250), proof.Amount.Int64())
		s.Equal(testutil.FixedClock.Add(time.Hour), proof.Expiry)
		s.False(proof.Used)
	})

	s.Run("proof beyond custody is rejected", func() {
		_, err := s.service.CreateProof(ctx, owner, domain.NewAmount(301), time.Hour)
		s.Require().Error(err)
		s.Equal(dErrors.CodeInsufficientFunds, dErrors.CodeOf(err))
		s.Equal("Insufficient funds in contract", dErrors.MessageOf(err))
	})

	s.Run("proofs do not reserve funds", func() {
		// Two proofs for the full custody amount are both valid.
		_, err := s.service.CreateProof(ctx, owner, domain.NewAmount(300), time.Hour)
		s.Require().NoError(err)
		_, err = s.service.CreateProof(ctx, owner, domain.NewAmount(300), time.Hour)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestUseProof() {
	ctx := testutil.Ctx(owner)
	s.Require().NoError(s.service.Deposit(ctx, owner, domain.NewAmount(300)))
	id, err := s.service.CreateProof(ctx, owner, domain.NewAmount(100), time.Hour)
	s.Require().NoError(err)

	s.Run("anyone may use a live proof", func() {
		proof, err := s.service.UseProof(testutil.CtxAt(verifier, testutil.FixedClock.Add(time.Hour-time.Second)), verifier, id)
		s.Require().NoError(err)
		s.True(proof.Used)
		s.Len(s.sink.ByKind(events.KindProofUsed), 1)
	})

	s.Run("a proof is single use", func() {
		_, err := s.service.UseProof(testutil.Ctx(verifier), verifier, id)
		s.Require().Error(err)
		s.Equal(dErrors.CodeAlreadyUsed, dErrors.CodeOf(err))
		s.Equal("Proof has already been used", dErrors.MessageOf(err))
	})

	s.Run("the deadline itself is expired", func() {
		expiring, err := s.service.CreateProof(ctx, owner, domain.NewAmount(1), time.Hour)
		s.Require().NoError(err)

		_, err = s.service.UseProof(testutil.CtxAt(verifier, testutil.FixedClock.Add(time.Hour)), verifier, expiring)
		s.Require().Error(err)
		s.Equal(dErrors.CodeExpired, dErrors.CodeOf(err))
		s.Equal("Proof has expired", dErrors.MessageOf(err))
	})

	s.Run("expiry outranks the used flag", func() {
		_, err := s.service.UseProof(testutil.CtxAt(verifier, testutil.FixedClock.Add(2*time.Hour)), verifier, id)
		s.Require().Error(err)
		s.Equal(dErrors.CodeExpired, dErrors.CodeOf(err))
	})

	s.Run("unknown proof is a miss", func() {
		_, err := s.service.UseProof(testutil.Ctx(verifier), verifier, "no-such-proof")
		s.Require().Error(err)
		s.True(prooffunds.IsNotFound(err))
	})
}

func (s *ServiceSuite) TestWithdraw() {
	ctx := testutil.Ctx(owner)
	s.Require().NoError(s.service.Deposit(ctx, owner, domain.NewAmount(300)))

	s.Run("delegate cannot withdraw", func() {
		err := s.service.Withdraw(testutil.Ctx(delegate), delegate, domain.NewAmount(1))
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	s.Run("over-withdraw is rejected", func() {
		err := s.service.Withdraw(ctx, owner, domain.NewAmount(301))
		s.Require().Error(err)
		s.Equal("Insufficient funds in contract", dErrors.MessageOf(err))
	})

	s.Run("owner withdraws back to their account", func() {
		s.Require().NoError(s.service.Withdraw(ctx, owner, domain.NewAmount(200)))
		s.Equal(int64(100), s.service.Custody().Int64())
		s.Equal(int64(900), s.ledger.BalanceOf(ctx, owner).Int64())
		s.Len(s.sink.ByKind(events.KindProofWithdrawn), 1)
	})
}

type TokenServiceSuite struct {
	suite.Suite
	tokens  *token.NonFungible
	service *prooffunds.TokenService
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	ctx := testutil.Ctx(owner)

	registry, err := identity.New(identitystore.NewInMemoryStore())
	s.Require().NoError(err)
	s.Require().NoError(registry.Register(ctx, owner, owner, "did:owner"))

	s.tokens = token.NewNonFungible()
	s.Require().NoError(s.tokens.Mint(ctx, owner, 7))
	s.Require().NoError(s.tokens.Approve(ctx, owner, custody, 7))

	service, err := prooffunds.NewTokenService(
		prooffunds.Config{Custody: custody, Owner: owner},
		guard.New(registry),
		s.tokens,
		proofstore.NewInMemoryStore(),
	)
	s.Require().NoError(err)
	s.service = service
}

func (s *TokenServiceSuite) TestTokenProofLifecycle() {
	ctx := testutil.Ctx(owner)

	s.Run("proof for an undeposited token is rejected", func() {
		_, err := s.service.CreateProof(ctx, owner, 7, time.Hour)
		s.Require().Error(err)
		s.Equal("Insufficient funds in contract", dErrors.MessageOf(err))
	})

	s.Run("deposit moves the token into custody", func() {
		s.Require().NoError(s.service.DepositToken(ctx, owner, 7))
		s.True(s.service.IsDeposited(7))
		s.Equal(custody, s.tokens.OwnerOf(ctx, 7))
	})

	s.Run("proof issues and consumes for the custodied token", func() {
		id, err := s.service.CreateProof(ctx, owner, 7, time.Hour)
		s.Require().NoError(err)

		proof, err := s.service.UseProof(ctx, verifier, id)
		s.Require().NoError(err)
		s.Equal(domain.TokenID(7), proof.TokenID)

		_, err = s.service.UseProof(ctx, verifier, id)
		s.Require().Error(err)
		s.Equal(dErrors.CodeAlreadyUsed, dErrors.CodeOf(err))
	})

	s.Run("withdraw returns the token to the owner", func() {
		s.Require().NoError(s.service.WithdrawToken(ctx, owner, 7))
		s.False(s.service.IsDeposited(7))
		s.Equal(owner, s.tokens.OwnerOf(ctx, 7))
	})
}
