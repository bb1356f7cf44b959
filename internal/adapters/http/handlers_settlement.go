package http

import (
	"net/http"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/contracts"
)

func (h *Handler) maturePending(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	count, err := h.service.MaturePending(r.Context(), actor)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "mature_pending", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"matured": count})
}

func (h *Handler) runSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.SettlementRunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	report, err := h.service.RunBatchSettlement(r.Context(), actor, strings.TrimSpace(req.RunID))
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "run_settlement", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, report)
}
