package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tessera/internal/billing"
	"tessera/internal/escrow"
	"tessera/internal/identity"
	"tessera/internal/identity/guard"
	identitystore "tessera/internal/identity/store"
	"tessera/internal/prooffunds"
	proofstore "tessera/internal/prooffunds/store"
	"tessera/internal/reputation"
	reputationstore "tessera/internal/reputation/store"
	"tessera/internal/token"
	httptransport "tessera/internal/transport/http"
	"tessera/pkg/domain"
)

const (
	owner       = domain.Address("0xowner")
	depositor   = domain.Address("0xdepositor")
	beneficiary = domain.Address("0xbeneficiary")
	arbiter     = domain.Address("0xarbiter")
	delegate    = domain.Address("0xdelegate")
)

var signingKey = []byte("test-signing-key")

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	ledger *token.NativeLedger
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	registry, err := identity.New(identitystore.NewInMemoryStore())
	s.Require().NoError(err)
	g := guard.New(registry)

	s.ledger = token.NewNativeLedger()
	fungible := token.NewFungible(depositor, domain.NewAmount(5000))
	nonFungible := token.NewNonFungible()

	scores, err := reputation.New(reputationstore.NewInMemoryStore(), registry, owner)
	s.Require().NoError(err)

	newEscrow := func(custody domain.Address, mover escrow.AssetMover) *escrow.Escrow {
		e, err := escrow.New(escrow.Config{
			Custody:     custody,
			Depositor:   depositor,
			Beneficiary: beneficiary,
			Arbiter:     arbiter,
		}, g, mover, escrow.WithRecorder(scores))
		s.Require().NoError(err)
		return e
	}
	facade, err := reputation.NewFacade(scores,
		newEscrow("0xesc-native", escrow.NewNativeMover(s.ledger, "0xesc-native")),
		newEscrow("0xesc-fungible", escrow.NewFungibleMover(fungible, "0xesc-fungible")),
		newEscrow("0xesc-nft", escrow.NewNonFungibleMover(nonFungible, 1, "0xesc-nft")),
	)
	s.Require().NoError(err)

	proofs, err := prooffunds.New(
		prooffunds.Config{Custody: "0xpof", Owner: owner},
		g,
		escrow.NewNativeMover(s.ledger, "0xpof"),
		proofstore.NewInMemoryStore(),
	)
	s.Require().NoError(err)

	collector, err := billing.New(
		billing.Config{Custody: "0xfees", Owner: owner, InitialFee: domain.NewAmount(10)},
		registry,
		s.ledger,
	)
	s.Require().NoError(err)

	router := httptransport.NewRouter(httptransport.Deps{
		Identity:      registry,
		Escrows:       facade,
		Reputation:    scores,
		Proofs:        proofs,
		Billing:       collector,
		JWTSigningKey: signingKey,
		Owner:         owner,
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)

	s.ledger.Credit(owner, domain.NewAmount(1000))
	s.ledger.Credit(depositor, domain.NewAmount(1000))
}

func (s *RouterSuite) do(method, path string, caller domain.Address, body any) *http.Response {
	s.T().Helper()

	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if !caller.IsZero() {
		req.Header.Set("X-Caller-Address", caller.String())
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) doAdmin(method, path string, body any) *http.Response {
	s.T().Helper()

	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.adminToken(owner.String()))
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) adminToken(subject string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(signingKey)
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) bodyMap(resp *http.Response) map[string]any {
	s.T().Helper()
	defer resp.Body.Close()

	var out map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *RouterSuite) register(key domain.Address) {
	resp := s.do(http.MethodPost, "/identity/register", key, map[string]string{
		"key": key.String(), "controller": key.String(), "document": "did:" + key.String(),
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestIdentityEndpoints() {
	s.register(depositor)

	s.Run("duplicate registration is a conflict", func() {
		resp := s.do(http.MethodPost, "/identity/register", depositor, map[string]string{
			"key": depositor.String(), "controller": depositor.String(),
		})
		s.Equal(http.StatusConflict, resp.StatusCode)
		s.Equal("Identity already exists", s.bodyMap(resp)["error"])
	})

	s.Run("resolve returns the record", func() {
		resp := s.do(http.MethodGet, "/identity/"+depositor.String(), depositor, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		body := s.bodyMap(resp)
		s.Equal(depositor.String(), body["controller"])
	})

	s.Run("delegate add and check", func() {
		resp := s.do(http.MethodPost, "/identity/"+depositor.String()+"/delegates", depositor,
			map[string]string{"delegate": delegate.String()})
		s.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = s.do(http.MethodGet, "/identity/"+depositor.String()+"/authorized/"+delegate.String(), depositor, nil)
		s.Equal(true, s.bodyMap(resp)["authorized"])
	})

	s.Run("outsider cannot mutate the record", func() {
		resp := s.do(http.MethodPut, "/identity/"+depositor.String()+"/document", arbiter,
			map[string]string{"document": "did:hijacked"})
		s.Equal(http.StatusForbidden, resp.StatusCode)
		s.Equal("Unauthorized: caller is not the owner or delegate", s.bodyMap(resp)["error"])
	})

	s.Run("missing caller header is rejected", func() {
		resp := s.do(http.MethodPost, "/identity/register", "", map[string]string{"key": "0xnew", "controller": "0xnew"})
		s.Equal(http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})
}

func (s *RouterSuite) TestAdminEndpoints() {
	s.Run("owner token configures a weight", func() {
		resp := s.doAdmin(http.MethodPut, "/reputation/weights", map[string]any{"identity": depositor.String(), "action": "ESCROW_RELEASED", "weight": 5})
		s.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	s.Run("missing token is rejected", func() {
		resp := s.do(http.MethodPut, "/reputation/weights", owner, map[string]any{"identity": depositor.String(), "action": "X", "weight": 1})
		s.Equal(http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})

	s.Run("token for another subject is rejected", func() {
		var buf bytes.Buffer
		s.Require().NoError(json.NewEncoder(&buf).Encode(map[string]any{"identity": depositor.String(), "action": "X", "weight": 1}))
		req, err := http.NewRequest(http.MethodPut, s.server.URL+"/reputation/weights", &buf)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+s.adminToken("0xsomeoneelse"))
		resp, err := s.server.Client().Do(req)
		s.Require().NoError(err)
		s.Equal(http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})
}

// TestReputableEscrowFlow drives the full lifecycle over the wire: identities
// register, a delegate funds the escrow, the arbiter releases, and the
// parties' scores move by the configured weight.
func (s *RouterSuite) TestReputableEscrowFlow() {
	for _, key := range []domain.Address{depositor, beneficiary, arbiter} {
		s.register(key)
	}

	resp := s.do(http.MethodPost, "/identity/"+depositor.String()+"/delegates", depositor,
		map[string]string{"delegate": delegate.String()})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	for _, identity := range []domain.Address{depositor, beneficiary} {
		resp = s.doAdmin(http.MethodPut, "/reputation/weights",
			map[string]any{"identity": identity.String(), "action": "ESCROW_RELEASED", "weight": 5})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	s.Run("delegate deposits 100 on the depositor's behalf", func() {
		resp := s.do(http.MethodPost, "/escrow/native/deposit", delegate, map[string]string{"amount": "100"})
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		body := s.bodyMap(resp)
		s.Equal("funded", body["status"])
		s.Equal("100", body["balance"])
	})

	s.Run("non-arbiter cannot release", func() {
		resp := s.do(http.MethodPost, "/escrow/native/release", depositor, nil)
		s.Equal(http.StatusForbidden, resp.StatusCode)
		s.Equal("Unauthorized: caller is not the owner or delegate", s.bodyMap(resp)["error"])
	})

	s.Run("arbiter releases to the beneficiary", func() {
		resp := s.do(http.MethodPost, "/escrow/native/release", arbiter, nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		body := s.bodyMap(resp)
		s.Equal("released", body["status"])
		s.Equal("0", body["balance"])

		require.Equal(s.T(), int64(100), s.ledger.BalanceOf(context.Background(), beneficiary).Int64())
	})

	s.Run("scores reflect the configured weight", func() {
		resp := s.do(http.MethodGet, "/reputation/"+depositor.String(), depositor, nil)
		s.Equal(float64(5), s.bodyMap(resp)["consumer_score"])

		resp = s.do(http.MethodGet, "/reputation/"+beneficiary.String(), beneficiary, nil)
		s.Equal(float64(5), s.bodyMap(resp)["provider_score"])
	})

	s.Run("settled escrow refuses further operations", func() {
		resp := s.do(http.MethodPost, "/escrow/native/refund", arbiter, nil)
		s.Equal(http.StatusConflict, resp.StatusCode)
		resp.Body.Close()
	})
}

func (s *RouterSuite) TestProofEndpoints() {
	s.register(owner)

	resp := s.do(http.MethodPost, "/proofs/deposit", owner, map[string]string{"amount": "300"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/proofs", owner, map[string]any{"amount": "250", "duration_seconds": 3600})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	id := s.bodyMap(resp)["id"].(string)

	s.Run("over-custody proof is rejected", func() {
		resp := s.do(http.MethodPost, "/proofs", owner, map[string]any{"amount": "301", "duration_seconds": 3600})
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
		s.Equal("Insufficient funds in contract", s.bodyMap(resp)["error"])
	})

	s.Run("proof is usable exactly once", func() {
		resp := s.do(http.MethodPost, "/proofs/"+id+"/use", arbiter, nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = s.do(http.MethodPost, "/proofs/"+id+"/use", arbiter, nil)
		s.Equal(http.StatusConflict, resp.StatusCode)
		s.Equal("Proof has already been used", s.bodyMap(resp)["error"])
	})
}

func (s *RouterSuite) TestBillingEndpoints() {
	s.register(owner)

	s.Run("collect requires the exact fee", func() {
		resp := s.do(http.MethodPost, "/billing/collect", depositor, map[string]string{"value": "9"})
		s.Equal(http.StatusBadRequest, resp.StatusCode)
		s.Equal("Fee not met", s.bodyMap(resp)["error"])

		resp = s.do(http.MethodPost, "/billing/collect", depositor, map[string]string{"value": "10"})
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("10", s.bodyMap(resp)["balance"])
	})

	s.Run("owner adjusts the fee", func() {
		resp := s.do(http.MethodPut, "/billing/fee", owner, map[string]string{"fee": "25"})
		s.Equal(http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = s.do(http.MethodGet, "/billing/fee", depositor, nil)
		s.Equal("25", s.bodyMap(resp)["fee"])
	})

	s.Run("owner sweeps custody through the admin surface", func() {
		resp := s.doAdmin(http.MethodPost, "/billing/withdraw-all", nil)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("10", s.bodyMap(resp)["total_collected"])
	})
}
