package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/domain"
)

func (h *Handler) listTiers(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	tiers, err := h.service.ListTiers(r.Context(), actor)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "list_tiers", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tiers": tiers})
}

func (h *Handler) activateTier(w http.ResponseWriter, r *http.Request) {
	h.changeTier(w, r, true)
}

func (h *Handler) deactivateTier(w http.ResponseWriter, r *http.Request) {
	h.changeTier(w, r, false)
}

func (h *Handler) changeTier(w http.ResponseWriter, r *http.Request, activate bool) {
	actor := actorFromContext(r.Context())
	tier, err := strconv.Atoi(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid tier")
		return
	}

	var req contracts.TierChangeRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	input := application.TierChangeInput{Tier: tier, Notes: req.Notes}
	var (
		cfg   domain.TierConfig
		opErr error
	)
	if activate {
		cfg, opErr = h.service.ActivateTier(r.Context(), actor, input)
	} else {
		cfg, opErr = h.service.DeactivateTier(r.Context(), actor, input)
	}
	if opErr != nil {
		status, code, msg := mapDomainError(opErr)
		operation := "activate_tier"
		if !activate {
			operation = "deactivate_tier"
		}
		logHTTPOperationError(r.Context(), operation, status, code, msg, opErr)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, cfg)
}
