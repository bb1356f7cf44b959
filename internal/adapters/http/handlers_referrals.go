package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/contracts"
)

func (h *Handler) issueReferralLink(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.IssueLinkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	input := application.IssueLinkInput{Destination: strings.TrimSpace(req.Destination)}
	if raw := strings.TrimSpace(req.ReferrerID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid referrer_id")
			return
		}
		input.ReferrerID = id
	}

	res, err := h.service.IssueReferralLink(r.Context(), actor, input)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "issue_referral_link", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) recordClick(w http.ResponseWriter, r *http.Request) {
	var req contracts.RecordClickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	attempt, err := h.service.RecordClick(r.Context(), application.ClickInput{
		ReferralCode: req.ReferralCode,
		Channel:      req.Channel,
		IPAddress:    readIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "record_click", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{
		"attempt_id": attempt.AttemptID,
		"state":      attempt.State,
		"channel":    attempt.Channel,
	})
}
