package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/billing"
	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

type billingHandler struct {
	collector *billing.Service
	logger    *slog.Logger
}

func (h *billingHandler) mount(r chi.Router) {
	r.Get("/billing/fee", h.handleFee)
	r.Put("/billing/fee", h.handleAdjustFee)
	r.Post("/billing/collect", h.handleCollect)
	r.Post("/billing/withdraw", h.handleWithdraw)
	r.Get("/billing/balance/{addr}", h.handleBalance)
	r.Get("/billing/total", h.handleTotal)
}

func (h *billingHandler) mountAdmin(r chi.Router) {
	r.Post("/billing/withdraw-all", h.handleWithdrawAll)
}

func (h *billingHandler) handleFee(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"fee": h.collector.Fee().String()})
}

type feeRequest struct {
	Fee string `json:"fee"`
}

func (h *billingHandler) handleAdjustFee(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[feeRequest](w, r)
	if !ok {
		return
	}
	fee, ok := parseAmount(w, req.Fee)
	if !ok {
		return
	}
	if err := h.collector.AdjustFee(r.Context(), requestcontext.Caller(r.Context()), fee); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fee": fee.String()})
}

type collectRequest struct {
	Value string `json:"value"`
}

func (h *billingHandler) handleCollect(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[collectRequest](w, r)
	if !ok {
		return
	}
	value, ok := parseAmount(w, req.Value)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	if err := h.collector.CollectFee(r.Context(), caller, value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": h.collector.UserBalance(caller).String()})
}

type withdrawRequest struct {
	Recipient string `json:"recipient"`
}

func (h *billingHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[withdrawRequest](w, r)
	if !ok {
		return
	}
	if err := h.collector.Withdraw(r.Context(), requestcontext.Caller(r.Context()), domain.Address(req.Recipient)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recipient": req.Recipient})
}

func (h *billingHandler) handleWithdrawAll(w http.ResponseWriter, r *http.Request) {
	if err := h.collector.WithdrawAll(r.Context(), requestcontext.Caller(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total_collected": h.collector.TotalCollected().String()})
}

func (h *billingHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(chi.URLParam(r, "addr"))
	writeJSON(w, http.StatusOK, map[string]string{"balance": h.collector.UserBalance(addr).String()})
}

func (h *billingHandler) handleTotal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"total_collected": h.collector.TotalCollected().String()})
}
