package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tessera/internal/reputation"
	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

type reputationHandler struct {
	ledger *reputation.Service
	logger *slog.Logger
}

func (h *reputationHandler) mount(r chi.Router) {
	r.Post("/reputation/{identity}/score", h.handleUpdateScore)
	r.Put("/reputation/{identity}/products/{product}", h.handleUpdateProductScore)
	r.Get("/reputation/{identity}", h.handleProfile)
	r.Get("/reputation/{identity}/products/{product}", h.handleProductScore)
}

// mountAdmin holds the owner-gated weight configuration.
func (h *reputationHandler) mountAdmin(r chi.Router) {
	r.Put("/reputation/weights", h.handleSetWeight)
}

type weightRequest struct {
	// Action is the human-readable action label; the ledger keys weights by
	// its hash, scoped to one identity.
	Identity string `json:"identity"`
	Action   string `json:"action"`
	Weight   int64  `json:"weight"`
}

func (h *reputationHandler) handleSetWeight(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[weightRequest](w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	action := domain.ActionIDOf(req.Action)
	if err := h.ledger.SetActionWeight(r.Context(), caller, domain.Address(req.Identity), action, req.Weight); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": req.Identity, "action": action.String(), "weight": req.Weight})
}

type scoreRequest struct {
	IsProvider bool   `json:"is_provider"`
	Action     string `json:"action"`
	Positive   bool   `json:"positive"`
}

func (h *reputationHandler) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[scoreRequest](w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	identity := domain.Address(chi.URLParam(r, "identity"))
	if err := h.ledger.UpdateScore(r.Context(), caller, identity, req.IsProvider, domain.ActionIDOf(req.Action), req.Positive); err != nil {
		writeError(w, err)
		return
	}
	h.writeProfile(w, r, identity)
}

type productScoreRequest struct {
	Score int64 `json:"score"`
}

func (h *reputationHandler) handleUpdateProductScore(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[productScoreRequest](w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	identity := domain.Address(chi.URLParam(r, "identity"))
	product := domain.ProductHashOf(chi.URLParam(r, "product"))
	if err := h.ledger.UpdateProductScore(r.Context(), caller, identity, product, req.Score); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": identity.String(), "score": req.Score})
}

type profileResponse struct {
	Identity      string    `json:"identity"`
	ConsumerScore int64     `json:"consumer_score"`
	ProviderScore int64     `json:"provider_score"`
	LastUpdate    time.Time `json:"last_update"`
}

func (h *reputationHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	h.writeProfile(w, r, domain.Address(chi.URLParam(r, "identity")))
}

func (h *reputationHandler) writeProfile(w http.ResponseWriter, r *http.Request, identity domain.Address) {
	profile, err := h.ledger.CompleteProfile(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Identity:      identity.String(),
		ConsumerScore: profile.ConsumerScore,
		ProviderScore: profile.ProviderScore,
		LastUpdate:    profile.LastUpdate,
	})
}

func (h *reputationHandler) handleProductScore(w http.ResponseWriter, r *http.Request) {
	identity := domain.Address(chi.URLParam(r, "identity"))
	product := domain.ProductHashOf(chi.URLParam(r, "product"))
	score, err := h.ledger.ProductScore(r.Context(), identity, product)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": identity.String(), "score": score})
}
