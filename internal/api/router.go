/**
 * @description
 * HTTP router setup for the traslados service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new Chi router and registers traslados routes.
func NewRouter(h *Handler, webhook *WebhookHandler, jwtSecret, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Traslados service is healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Stripe signs its own requests; no portal auth here.
	r.Post("/webhooks/stripe", webhook.ServeHTTP)

	r.Route("/internal/traslados", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/reconcile", h.handleReconcile)
		r.Post("/requests/{requestID}/status", h.handleTransitionRequestStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))
		r.Post("/traslados/requests", h.handleCreateRequest)
		r.Get("/traslados/agreements/{requestID}", h.handleGetAgreement)
		r.Post("/traslados/agreements/{requestID}/confirm", h.handleConfirmAgreement)
		r.Post("/traslados/fees/{requestID}", h.handleCreateFeeSession)
		r.Get("/traslados/fees/{requestID}", h.handleListFees)
		r.Post("/traslados/fees/{requestID}/confirm", h.handleConfirmFeePayment)
		r.Get("/traslados/messages/{requestID}", h.handleGetThread)
		r.Post("/traslados/messages/{requestID}", h.handlePostMessage)
	})

	return r
}
