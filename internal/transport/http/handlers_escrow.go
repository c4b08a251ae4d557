package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/escrow"
	"tessera/internal/reputation"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/requestcontext"
)

type escrowHandler struct {
	facade *reputation.Facade
	logger *slog.Logger
}

func (h *escrowHandler) mount(r chi.Router) {
	r.Post("/escrow/{kind}/deposit", h.handleDeposit)
	r.Post("/escrow/{kind}/release", h.handleRelease)
	r.Post("/escrow/{kind}/refund", h.handleRefund)
	r.Get("/escrow/{kind}", h.handleStatus)
}

func (h *escrowHandler) instance(w http.ResponseWriter, r *http.Request) (*escrow.Escrow, bool) {
	switch chi.URLParam(r, "kind") {
	case "native":
		return h.facade.Native(), true
	case "fungible":
		return h.facade.Fungible(), true
	case "nonfungible":
		return h.facade.NonFungible(), true
	}
	writeError(w, dErrors.New(dErrors.CodeNotFound, "unknown escrow kind"))
	return nil, false
}

type depositRequest struct {
	// Amount is a decimal string; ignored for the non-fungible escrow.
	Amount string `json:"amount"`
}

func (h *escrowHandler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	e, ok := h.instance(w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())

	var err error
	switch chi.URLParam(r, "kind") {
	case "nonfungible":
		err = e.Deposit(r.Context(), caller, nil)
	default:
		req, ok := decode[depositRequest](w, r)
		if !ok {
			return
		}
		amount, ok := parseAmount(w, req.Amount)
		if !ok {
			return
		}
		err = e.Deposit(r.Context(), caller, amount)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeState(w, r, e)
}

func (h *escrowHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	e, ok := h.instance(w, r)
	if !ok {
		return
	}
	if err := e.Release(r.Context(), requestcontext.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	h.writeState(w, r, e)
}

func (h *escrowHandler) handleRefund(w http.ResponseWriter, r *http.Request) {
	e, ok := h.instance(w, r)
	if !ok {
		return
	}
	if err := e.Refund(r.Context(), requestcontext.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	h.writeState(w, r, e)
}

func (h *escrowHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := h.instance(w, r)
	if !ok {
		return
	}
	h.writeState(w, r, e)
}

type escrowState struct {
	Status      string `json:"status"`
	Balance     string `json:"balance"`
	Depositor   string `json:"depositor"`
	Beneficiary string `json:"beneficiary"`
	Arbiter     string `json:"arbiter"`
}

func (h *escrowHandler) writeState(w http.ResponseWriter, r *http.Request, e *escrow.Escrow) {
	writeJSON(w, http.StatusOK, escrowState{
		Status:      e.Status().String(),
		Balance:     e.Balance(r.Context()).String(),
		Depositor:   e.Depositor().String(),
		Beneficiary: e.Beneficiary().String(),
		Arbiter:     e.Arbiter().String(),
	})
}
