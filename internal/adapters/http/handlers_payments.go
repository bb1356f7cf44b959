package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/contracts"
)

func (h *Handler) paymentCompleted(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.PaymentCompletedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	bookingID, err := uuid.Parse(strings.TrimSpace(req.BookingID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid booking_id")
		return
	}
	payeeID, err := uuid.Parse(strings.TrimSpace(req.PayeeID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payee_id")
		return
	}

	input := application.PaymentInput{
		BookingID:   bookingID,
		PayeeID:     payeeID,
		BasePayable: req.BasePayable,
	}
	if raw := strings.TrimSpace(req.ListingID); raw != "" {
		listingID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid listing_id")
			return
		}
		input.ListingID = &listingID
	}
	if raw := strings.TrimSpace(req.OccurredAt); raw != "" {
		occurredAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "occurred_at must be RFC3339")
			return
		}
		input.OccurredAt = occurredAt
	}

	res, err := h.service.HandlePaymentCompleted(r.Context(), actor, input, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "payment_completed", status, code, msg, err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
