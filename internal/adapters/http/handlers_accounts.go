package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/contracts"
)

func (h *Handler) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req contracts.RegisterAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	account, err := h.service.RegisterAccount(r.Context(), application.SignupInput{
		Email:        req.Email,
		ExplicitCode: req.ReferralCode,
		Token:        req.Token,
		ManualCode:   req.ManualCode,
		IPAddress:    readIP(r),
		UserAgent:    r.UserAgent(),
	}, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "register_account", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"account_id":      account.AccountID,
		"referral_code":   account.ReferralCode,
		"referred_by":     account.ReferredBy,
		"referral_source": account.ReferralSource,
	})
}

func (h *Handler) listCommissions(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "account_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account_id")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	items, err := h.service.ListCommissions(r.Context(), actor, accountID, limit, offset)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "list_commissions", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"transactions": items})
}

func (h *Handler) getPayoutPreference(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "account_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account_id")
		return
	}

	pref, err := h.service.GetPayoutPreference(r.Context(), actor, accountID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "get_payout_preference", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, pref)
}

func (h *Handler) updatePayoutPreference(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "account_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid account_id")
		return
	}

	var req contracts.PayoutPreferenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	pref, err := h.service.UpdatePayoutPreference(r.Context(), actor, application.PreferenceInput{
		AccountID: accountID,
		MinAmount: req.MinAmount,
		Cadence:   req.Cadence,
		OptedOut:  req.OptedOut,
		PayoutRef: strings.TrimSpace(req.PayoutRef),
	})
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "update_payout_preference", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, pref)
}
