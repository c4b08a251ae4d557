package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tessera/internal/prooffunds"
	"tessera/internal/prooffunds/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

type proofHandler struct {
	funds  *prooffunds.Service
	tokens *prooffunds.TokenService
	logger *slog.Logger
}

func (h *proofHandler) mount(r chi.Router) {
	r.Post("/proofs/deposit", h.handleDeposit)
	r.Post("/proofs", h.handleCreate)
	r.Get("/proofs/{id}", h.handleGet)
	r.Post("/proofs/{id}/use", h.handleUse)
	r.Post("/proofs/withdraw", h.handleWithdraw)

	r.Post("/proofs/tokens/deposit", h.handleDepositToken)
	r.Post("/proofs/tokens", h.handleCreateToken)
	r.Post("/proofs/tokens/{id}/use", h.handleUseToken)
	r.Post("/proofs/tokens/withdraw", h.handleWithdrawToken)
}

type proofResponse struct {
	ID      string         `json:"id"`
	Owner   string         `json:"owner"`
	Amount  string         `json:"amount"`
	TokenID domain.TokenID `json:"token_id,omitempty"`
	Expiry  time.Time      `json:"expiry"`
	Used    bool           `json:"used"`
}

func toProofResponse(p models.Proof) proofResponse {
	return proofResponse{
		ID:      p.ID.String(),
		Owner:   p.Owner.String(),
		Amount:  p.Amount.String(),
		TokenID: p.TokenID,
		Expiry:  p.Expiry,
		Used:    p.Used,
	}
}

type fundsRequest struct {
	Amount string `json:"amount"`
}

func (h *proofHandler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[fundsRequest](w, r)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := h.funds.Deposit(r.Context(), requestcontext.Caller(r.Context()), amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"custody": h.funds.Custody().String()})
}

type createProofRequest struct {
	Amount          string `json:"amount"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (h *proofHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[createProofRequest](w, r)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	id, err := h.funds.CreateProof(r.Context(), requestcontext.Caller(r.Context()), amount, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (h *proofHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	proof, err := h.funds.Proof(r.Context(), domain.ProofID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProofResponse(proof))
}

func (h *proofHandler) handleUse(w http.ResponseWriter, r *http.Request) {
	proof, err := h.funds.UseProof(r.Context(), requestcontext.Caller(r.Context()), domain.ProofID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProofResponse(proof))
}

func (h *proofHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[fundsRequest](w, r)
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if err := h.funds.Withdraw(r.Context(), requestcontext.Caller(r.Context()), amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"custody": h.funds.Custody().String()})
}

type tokenRequest struct {
	TokenID domain.TokenID `json:"token_id"`
}

func (h *proofHandler) requireTokens(w http.ResponseWriter) bool {
	if h.tokens == nil {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "token proofs are not configured"))
		return false
	}
	return true
}

func (h *proofHandler) handleDepositToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireTokens(w) {
		return
	}
	req, ok := decode[tokenRequest](w, r)
	if !ok {
		return
	}
	if err := h.tokens.DepositToken(r.Context(), requestcontext.Caller(r.Context()), req.TokenID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_id": req.TokenID})
}

type createTokenProofRequest struct {
	TokenID         domain.TokenID `json:"token_id"`
	DurationSeconds int64          `json:"duration_seconds"`
}

func (h *proofHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireTokens(w) {
		return
	}
	req, ok := decode[createTokenProofRequest](w, r)
	if !ok {
		return
	}
	id, err := h.tokens.CreateProof(r.Context(), requestcontext.Caller(r.Context()), req.TokenID, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (h *proofHandler) handleUseToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireTokens(w) {
		return
	}
	proof, err := h.tokens.UseProof(r.Context(), requestcontext.Caller(r.Context()), domain.ProofID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProofResponse(proof))
}

func (h *proofHandler) handleWithdrawToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireTokens(w) {
		return
	}
	req, ok := decode[tokenRequest](w, r)
	if !ok {
		return
	}
	if err := h.tokens.WithdrawToken(r.Context(), requestcontext.Caller(r.Context()), req.TokenID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_id": req.TokenID})
}
