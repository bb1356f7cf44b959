package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for referral and commission
// use-cases. Keeping only the application dependency here preserves clean
// adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers M42 HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/api/v1", func(r chi.Router) {
		// Public intake: clicks and signups arrive before any identity exists.
		r.Post("/referrals/clicks", handler.recordClick)
		r.Post("/accounts", handler.registerAccount)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/referrals/links", handler.issueReferralLink)
			r.Post("/payments/completed", handler.paymentCompleted)
			r.Get("/accounts/{account_id}/commissions", handler.listCommissions)
			r.Get("/accounts/{account_id}/payout-preference", handler.getPayoutPreference)
			r.Put("/accounts/{account_id}/payout-preference", handler.updatePayoutPreference)
			r.Get("/tiers", handler.listTiers)
			r.Post("/tiers/{tier}/activate", handler.activateTier)
			r.Post("/tiers/{tier}/deactivate", handler.deactivateTier)
			r.Post("/settlement/mature", handler.maturePending)
			r.Post("/settlement/runs", handler.runSettlement)
		})
	})

	return r
}
