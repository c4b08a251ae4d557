// Package httptransport is the thin HTTP layer over the ledger services.
// Handlers decode, delegate, and encode; all authorization semantics live in
// the services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tessera/internal/billing"
	"tessera/internal/prooffunds"
	"tessera/internal/reputation"
	"tessera/pkg/domain"
)

// Deps carries the wired services the router exposes.
type Deps struct {
	Logger      *slog.Logger
	Identity    IdentityService
	Escrows     *reputation.Facade
	Reputation  *reputation.Service
	Proofs      *prooffunds.Service
	TokenProofs *prooffunds.TokenService
	Billing     *billing.Service

	// JWTSigningKey and Owner gate the admin endpoints.
	JWTSigningKey []byte
	Owner         domain.Address
}

// NewRouter wires every endpoint. Mutating endpoints require a caller
// identity; admin endpoints additionally require the owner's bearer token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withRequestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	identityH := &identityHandler{service: deps.Identity, logger: deps.Logger}
	escrowH := &escrowHandler{facade: deps.Escrows, logger: deps.Logger}
	reputationH := &reputationHandler{ledger: deps.Reputation, logger: deps.Logger}
	proofH := &proofHandler{funds: deps.Proofs, tokens: deps.TokenProofs, logger: deps.Logger}
	billingH := &billingHandler{collector: deps.Billing, logger: deps.Logger}

	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		identityH.mount(r)
		escrowH.mount(r)
		reputationH.mount(r)
		proofH.mount(r)
		billingH.mount(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin(deps.JWTSigningKey, deps.Owner))
		reputationH.mountAdmin(r)
		billingH.mountAdmin(r)
	})

	return r
}
