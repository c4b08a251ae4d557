package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/identity/models"
	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

// IdentityService is the registry surface the transport needs.
type IdentityService interface {
	Register(ctx context.Context, key, controller domain.Address, document string) error
	SetDocument(ctx context.Context, caller, key domain.Address, document string) error
	AddDelegate(ctx context.Context, caller, key, delegate domain.Address) error
	RemoveDelegate(ctx context.Context, caller, key, delegate domain.Address) error
	IsOwnerOrDelegate(ctx context.Context, key, candidate domain.Address) (bool, error)
	Resolve(ctx context.Context, key domain.Address) (models.Identity, error)
}

type identityHandler struct {
	service IdentityService
	logger  *slog.Logger
}

func (h *identityHandler) mount(r chi.Router) {
	r.Post("/identity/register", h.handleRegister)
	r.Put("/identity/{key}/document", h.handleSetDocument)
	r.Post("/identity/{key}/delegates", h.handleAddDelegate)
	r.Delete("/identity/{key}/delegates/{delegate}", h.handleRemoveDelegate)
	r.Get("/identity/{key}", h.handleResolve)
	r.Get("/identity/{key}/authorized/{candidate}", h.handleAuthorized)
}

type registerRequest struct {
	Key        string `json:"key"`
	Controller string `json:"controller"`
	Document   string `json:"document"`
}

func (h *identityHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[registerRequest](w, r)
	if !ok {
		return
	}
	if err := h.service.Register(r.Context(), domain.Address(req.Key), domain.Address(req.Controller), req.Document); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": req.Key})
}

type documentRequest struct {
	Document string `json:"document"`
}

func (h *identityHandler) handleSetDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[documentRequest](w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	key := domain.Address(chi.URLParam(r, "key"))
	if err := h.service.SetDocument(r.Context(), caller, key, req.Document); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.String()})
}

type delegateRequest struct {
	Delegate string `json:"delegate"`
}

func (h *identityHandler) handleAddDelegate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[delegateRequest](w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(r.Context())
	key := domain.Address(chi.URLParam(r, "key"))
	if err := h.service.AddDelegate(r.Context(), caller, key, domain.Address(req.Delegate)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.String(), "delegate": req.Delegate})
}

func (h *identityHandler) handleRemoveDelegate(w http.ResponseWriter, r *http.Request) {
	caller := requestcontext.Caller(r.Context())
	key := domain.Address(chi.URLParam(r, "key"))
	delegate := domain.Address(chi.URLParam(r, "delegate"))
	if err := h.service.RemoveDelegate(r.Context(), caller, key, delegate); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.String(), "delegate": delegate.String()})
}

type identityResponse struct {
	Key        string   `json:"key"`
	Controller string   `json:"controller"`
	Delegates  []string `json:"delegates"`
	Document   string   `json:"document"`
}

func (h *identityHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Resolve(r.Context(), domain.Address(chi.URLParam(r, "key")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityResponse{
		Key:        identity.Key.String(),
		Controller: identity.Controller.String(),
		Delegates:  identity.DelegateList(),
		Document:   identity.Document,
	})
}

func (h *identityHandler) handleAuthorized(w http.ResponseWriter, r *http.Request) {
	key := domain.Address(chi.URLParam(r, "key"))
	candidate := domain.Address(chi.URLParam(r, "candidate"))
	authorized, err := h.service.IsOwnerOrDelegate(r.Context(), key, candidate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": authorized})
}
