// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/availability"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/payments"
)

var (
	bookings *availability.Engine
	ledger   *payments.Engine
)

const reservationQueryTimeout = 5 * time.Second

type reservationRequest struct {
	CourtID   int64            `json:"court_id"`
	Date      models.Date      `json:"date"`
	StartTime models.TimeOfDay `json:"start_time"`
	EndTime   models.TimeOfDay `json:"end_time"`
	// UserID books on behalf of a member; staff only.
	UserID int64 `json:"user_id,omitempty"`
}

type reservationDetail struct {
	Reservation  models.Reservation    `json:"reservation"`
	FundingState payments.FundingState `json:"funding_state"`
	Payments     []models.Payment      `json:"payments"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(availabilityEngine *availability.Engine, paymentsEngine *payments.Engine) {
	bookings = availabilityEngine
	ledger = paymentsEngine
}

// POST /api/v1/reservations
func HandleCreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid reservation payload", Err: err})
		return
	}
	if req.CourtID <= 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "court_id", Reason: "must be greater than 0"})
		return
	}
	if req.Date.IsZero() {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "date", Reason: "is required"})
		return
	}

	ownerID := actor.UserID
	if req.UserID != 0 && req.UserID != actor.UserID {
		if !actor.IsStaff {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusForbidden, Message: "only staff may book for another user"})
			return
		}
		ownerID = req.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	reservation, err := bookings.CreateReservation(ctx, availability.CreateReservationParams{
		CourtID: req.CourtID,
		UserID:  ownerID,
		Date:    req.Date,
		Start:   req.StartTime,
		End:     req.EndTime,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, reservation)
}

// GET /api/v1/reservations
// Staff may pass ?user_id= to list another member's reservations.
func HandleListReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}

	userID := actor.UserID
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		if !actor.IsStaff {
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusForbidden, Message: "only staff may list other users' reservations"})
			return
		}
		parsed, err := apiutil.ParsePositiveInt64Field(raw, "user_id")
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		userID = parsed
	}

	reservations, err := bookings.UserReservations(r.Context(), userID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reservations)
}

// GET /api/v1/reservations/{id}
func HandleGetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	reservation, err := bookings.Reservation(r.Context(), reservationID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	history, err := ledger.ListPayments(r.Context(), reservation.ID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, reservationDetail{
		Reservation:  reservation,
		FundingState: payments.FundingStateOf(history),
		Payments:     history,
	})
}

// POST /api/v1/reservations/{id}/cancel
func HandleCancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	reservation, err := bookings.CancelReservation(ctx, reservationID, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reservation)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write reservation response")
	}
}
