// cmd/server/server.go
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api"
	"github.com/codr1/Padelicious/internal/api/auth"
	"github.com/codr1/Padelicious/internal/api/courts"
	"github.com/codr1/Padelicious/internal/api/memberships"
	"github.com/codr1/Padelicious/internal/api/notifications"
	"github.com/codr1/Padelicious/internal/api/payments"
	"github.com/codr1/Padelicious/internal/api/reservations"
	"github.com/codr1/Padelicious/internal/api/webhooks"
	"github.com/codr1/Padelicious/internal/config"
)

func newServer(cfg *config.Config, deps *dependencies) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain; the last entry runs first.
	handler := api.ChainMiddleware(
		router,
		api.WithAuth,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router, deps)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.db.PingContext(ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", auth.HandleMe)

	// Court routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleListCourts)
	mux.Handle("POST /api/v1/courts", staffOnly(courts.HandleCreateCourt))
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGetCourt)
	mux.Handle("PUT /api/v1/courts/{id}", staffOnly(courts.HandleUpdateCourt))
	mux.HandleFunc("GET /api/v1/courts/{id}/slots", courts.HandleListSlots)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleCheckAvailability)

	// Reservation routes
	mux.Handle("POST /api/v1/reservations", signedIn(reservations.HandleCreateReservation))
	mux.Handle("GET /api/v1/reservations", signedIn(reservations.HandleListReservations))
	mux.HandleFunc("GET /api/v1/reservations/{id}", reservations.HandleGetReservation)
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", reservations.HandleCancelReservation)

	// Payment routes
	mux.HandleFunc("GET /api/v1/reservations/{id}/payments", payments.HandleListPayments)
	mux.HandleFunc("POST /api/v1/reservations/{id}/payments", payments.HandleSubmitPayment)
	mux.HandleFunc("POST /api/v1/reservations/{id}/payments/retry", payments.HandleRetryPayment)
	mux.Handle("POST /api/v1/payments/proofs", signedIn(payments.HandleUploadProof))
	mux.Handle("GET /api/v1/payments/pending", staffOnly(payments.HandleListPending))
	mux.HandleFunc("GET /api/v1/payments/{id}", payments.HandleGetPayment)
	mux.HandleFunc("DELETE /api/v1/payments/{id}", payments.HandleDeletePayment)
	mux.Handle("POST /api/v1/payments/{id}/validate", staffOnly(payments.HandleValidatePayment))
	mux.HandleFunc("GET /api/v1/payments/{id}/proof", payments.HandleProof)
	mux.HandleFunc("GET /api/v1/payments/{id}/receipt", payments.HandleReceipt)
	mux.HandleFunc("POST /api/v1/webhooks/stripe", webhooks.HandleStripeWebhook)

	// Membership routes
	mux.HandleFunc("GET /api/v1/memberships", memberships.HandlePlansList)
	mux.Handle("POST /api/v1/memberships", staffOnly(memberships.HandlePlanCreate))
	mux.Handle("PUT /api/v1/memberships/{id}", staffOnly(memberships.HandlePlanUpdate))
	mux.Handle("POST /api/v1/users/{id}/memberships", staffOnly(memberships.HandleAssign))
	mux.Handle("GET /api/v1/users/me/memberships", signedIn(memberships.HandleMyMemberships))

	// Notification routes
	mux.Handle("GET /api/v1/notifications", signedIn(notifications.HandleNotificationsList))
	mux.Handle("GET /api/v1/notifications/count", signedIn(notifications.HandleNotificationCount))
	mux.Handle("GET /api/v1/notifications/staff", staffOnly(notifications.HandleStaffNotificationsList))
	mux.Handle("POST /api/v1/notifications/{id}/read", signedIn(notifications.HandleNotificationRead))
}

func staffOnly(h http.HandlerFunc) http.Handler {
	return api.WithStaffAuth(h)
}

func signedIn(h http.HandlerFunc) http.Handler {
	return api.RequireUser(h)
}
