// internal/api/courts/handlers.go
package courts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/availability"
	"github.com/codr1/Padelicious/internal/models"
)

var engine *availability.Engine

type courtRequest struct {
	Name           string           `json:"name"`
	OpeningTime    models.TimeOfDay `json:"opening_time"`
	ClosingTime    models.TimeOfDay `json:"closing_time"`
	ActiveWeekdays models.Weekdays  `json:"active_weekdays"`
	IsActive       *bool            `json:"is_active"`
	PricePerHour   decimal.Decimal  `json:"price_per_hour"`
}

func (req courtRequest) params() availability.CourtParams {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return availability.CourtParams{
		Name:           strings.TrimSpace(req.Name),
		OpeningTime:    req.OpeningTime,
		ClosingTime:    req.ClosingTime,
		ActiveWeekdays: req.ActiveWeekdays,
		IsActive:       active,
		PricePerHour:   req.PricePerHour,
	}
}

type availabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *availability.Engine) {
	engine = e
}

// GET /api/v1/courts
// Staff may pass ?all=true to include inactive courts.
func HandleListCourts(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if authz.IsStaff(authz.UserFromContext(r.Context())) {
		activeOnly = !apiutil.QueryBool(r, "all", false)
	}

	courts, err := engine.Courts(r.Context(), activeOnly)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, courts)
}

// GET /api/v1/courts/{id}
func HandleGetCourt(w http.ResponseWriter, r *http.Request) {
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	court, err := engine.Court(r.Context(), courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, court)
}

// POST /api/v1/courts
func HandleCreateCourt(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireStaff(w, r); !ok {
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid court payload", Err: err})
		return
	}

	court, err := engine.CreateCourt(r.Context(), req.params())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().Int64("court_id", court.ID).Msg("Court created")
	writeJSON(w, r, http.StatusCreated, court)
}

// PUT /api/v1/courts/{id}
func HandleUpdateCourt(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireStaff(w, r); !ok {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid court payload", Err: err})
		return
	}

	court, err := engine.UpdateCourt(r.Context(), courtID, req.params())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().Int64("court_id", court.ID).Msg("Court updated")
	writeJSON(w, r, http.StatusOK, court)
}

// GET /api/v1/courts/{id}/slots?date=YYYY-MM-DD&duration=90
func HandleListSlots(w http.ResponseWriter, r *http.Request) {
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.QueryDate(r, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	duration, err := apiutil.QueryMinutes(r, "duration")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	slots, err := engine.ListAvailableSlots(r.Context(), courtID, date, duration)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"court_id": courtID,
		"date":     date,
		"slots":    slots,
	})
}

// GET /api/v1/courts/{id}/availability?date=&start=&end=
// Unavailability is a normal answer, so rule violations and clashes are
// reported in the body with 200.
func HandleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.QueryDate(r, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	start, err := apiutil.QueryTime(r, "start")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	end, err := apiutil.QueryTime(r, "end")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	err = engine.CheckAvailability(r.Context(), courtID, date, start, end)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, availabilityResponse{Available: true})
	case errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrConflict):
		writeJSON(w, r, http.StatusOK, availabilityResponse{Reason: apperr.CodeOf(err), Message: err.Error()})
	default:
		apiutil.WriteError(w, r, err)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write courts response")
	}
}
