// Package handler is the thin HTTP layer over the binding and admin
// services. It decodes requests, resolves the caller from context, and
// translates coded errors into the JSON error envelope. No business logic.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bindery/internal/binding/models"
	"bindery/internal/binding/service"
	rolesservice "bindery/internal/roles/service"
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
	"bindery/pkg/requestcontext"
)

type Handler struct {
	bindings *service.BindingService
	admin    *rolesservice.AdminService
	logger   *slog.Logger
}

func New(bindings *service.BindingService, admin *rolesservice.AdminService, logger *slog.Logger) *Handler {
	return &Handler{bindings: bindings, admin: admin, logger: logger}
}

// Register mounts all authenticated routes. Health and metrics endpoints
// live outside the auth chain and are mounted by main.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bindings/proposals", h.propose)
	r.Delete("/bindings/proposals/{platform}", h.cancel)
	r.Post("/bindings/accept", h.accept)

	r.Put("/admin/owner", h.transferOwner)
	r.Get("/admin/owner", h.getOwner)
	r.Post("/admin/managers", h.addManager)
	r.Delete("/admin/managers/{accountID}", h.removeManager)
	r.Get("/admin/managers/{accountID}", h.isManager)

	r.Get("/accounts", h.listAccounts)
	r.Get("/accounts/count", h.countAccounts)
	r.Get("/accounts/{accountID}", h.getAccount)
	r.Get("/accounts/{accountID}/proposals/{platform}", h.getProposal)
	r.Get("/accounts/{accountID}/handles/{platform}", h.getHandle)
	r.Get("/platforms/{platform}/handles/{handle}", h.lookupAccount)
}

func (h *Handler) propose(w http.ResponseWriter, r *http.Request) {
	var req models.ProposeBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	caller := requestcontext.CallerID(r.Context())
	proposal, err := h.bindings.Propose(r.Context(), caller, platform, req.Handle, req.Deposit)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusCreated, proposal)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	platform, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	caller := requestcontext.CallerID(r.Context())
	if err := h.bindings.Cancel(r.Context(), caller, platform); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	var req models.AcceptBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	accountID, err := models.ParseAccountID(req.AccountID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	caller := requestcontext.CallerID(r.Context())
	binding, err := h.bindings.Accept(r.Context(), caller, accountID, platform, req.ProposalCreatedAt)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, binding)
}

func (h *Handler) transferOwner(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.decodeAccountBody(w, r)
	if !ok {
		return
	}
	caller := requestcontext.CallerID(r.Context())
	if err := h.admin.TransferOwner(r.Context(), caller, accountID); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.admin.Owner(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]id.AccountID{"account_id": owner})
}

func (h *Handler) addManager(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.decodeAccountBody(w, r)
	if !ok {
		return
	}
	caller := requestcontext.CallerID(r.Context())
	if err := h.admin.AddManager(r.Context(), caller, accountID); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeManager(w http.ResponseWriter, r *http.Request) {
	accountID, err := models.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	removed, err := h.admin.RemoveManager(r.Context(), caller, accountID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) isManager(w http.ResponseWriter, r *http.Request) {
	accountID, err := models.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	ok, err := h.admin.IsManager(r.Context(), accountID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]bool{"is_manager": ok})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt64(r, "from", 0)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	limit, err := queryInt64(r, "limit", 0)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	views, err := h.bindings.ListAccounts(r.Context(), from, limit)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]any{"accounts": views})
}

func (h *Handler) countAccounts(w http.ResponseWriter, r *http.Request) {
	count, err := h.bindings.NumberOfAccounts(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := models.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	view, err := h.bindings.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, view)
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	accountID, platform, ok := h.pathAccountPlatform(w, r)
	if !ok {
		return
	}
	proposal, err := h.bindings.GetProposal(r.Context(), accountID, platform)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if proposal == nil {
		h.writeError(r, w, dErrors.Newf(dErrors.CodeNotFound,
			"account %s has no proposal for %s", accountID, platform))
		return
	}
	h.writeJSON(r, w, http.StatusOK, proposal)
}

func (h *Handler) getHandle(w http.ResponseWriter, r *http.Request) {
	accountID, platform, ok := h.pathAccountPlatform(w, r)
	if !ok {
		return
	}
	handle, err := h.bindings.GetHandle(r.Context(), accountID, platform)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if handle == "" {
		h.writeError(r, w, dErrors.Newf(dErrors.CodeNotFound,
			"account %s has no binding for %s", accountID, platform))
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]string{"handle": handle})
}

func (h *Handler) lookupAccount(w http.ResponseWriter, r *http.Request) {
	platform, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	handle := chi.URLParam(r, "handle")
	if err := models.ValidateHandle(handle); err != nil {
		h.writeError(r, w, err)
		return
	}

	accountID, err := h.bindings.LookupAccount(r.Context(), platform, handle)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	if accountID.IsZero() {
		h.writeError(r, w, dErrors.Newf(dErrors.CodeNotFound,
			"handle %s on %s is not bound", handle, platform))
		return
	}
	h.writeJSON(r, w, http.StatusOK, map[string]id.AccountID{"account_id": accountID})
}

func (h *Handler) decodeAccountBody(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	var req models.AdminAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return "", false
	}
	accountID, err := models.ParseAccountID(req.AccountID)
	if err != nil {
		h.writeError(r, w, err)
		return "", false
	}
	return accountID, true
}

func (h *Handler) pathAccountPlatform(w http.ResponseWriter, r *http.Request) (id.AccountID, models.Platform, bool) {
	accountID, err := models.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(r, w, err)
		return "", "", false
	}
	platform, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.writeError(r, w, err)
		return "", "", false
	}
	return accountID, platform, true
}

func (h *Handler) writeJSON(r *http.Request, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
}

// writeError translates coded domain errors into the JSON error envelope.
func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}

func queryInt64(r *http.Request, key string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "query parameter %s must be an integer", key)
	}
	return v, nil
}
