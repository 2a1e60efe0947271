// internal/api/memberships/handlers.go
package memberships

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/memberships"
	"github.com/codr1/Padelicious/internal/models"
)

var (
	service  *memberships.Service
	location = time.UTC
	now      = time.Now
)

type assignRequest struct {
	PlanID   int64       `json:"plan_id"`
	StartsOn models.Date `json:"starts_on"`
}

// InitHandlers must be called during server startup before handling requests.
// loc decides the default start date of an assignment.
func InitHandlers(svc *memberships.Service, loc *time.Location) {
	service = svc
	if loc != nil {
		location = loc
	}
}

// GET /api/v1/memberships
// Staff may pass ?all=true to include retired plans.
func HandlePlansList(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if authz.IsStaff(authz.UserFromContext(r.Context())) {
		activeOnly = !apiutil.QueryBool(r, "all", false)
	}
	plans, err := service.Plans(r.Context(), activeOnly)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plans)
}

// POST /api/v1/memberships
func HandlePlanCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireStaff(w, r); !ok {
		return
	}
	var params memberships.PlanParams
	if err := apiutil.DecodeJSON(r, &params); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid membership plan payload", Err: err})
		return
	}
	plan, err := service.CreatePlan(r.Context(), params)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, plan)
}

// PUT /api/v1/memberships/{id}
func HandlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireStaff(w, r); !ok {
		return
	}
	planID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var params memberships.PlanParams
	if err := apiutil.DecodeJSON(r, &params); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid membership plan payload", Err: err})
		return
	}
	plan, err := service.UpdatePlan(r.Context(), planID, params)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// POST /api/v1/users/{id}/memberships
// starts_on defaults to today in the club's timezone.
func HandleAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireStaff(w, r)
	if !ok {
		return
	}
	userID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req assignRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid membership payload", Err: err})
		return
	}
	if req.PlanID <= 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "plan_id", Reason: "must be greater than 0"})
		return
	}
	if req.StartsOn.IsZero() {
		req.StartsOn = models.DateOf(now(), location)
	}

	membership, err := service.Assign(r.Context(), userID, req.PlanID, req.StartsOn, actor)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, membership)
}

// GET /api/v1/users/me/memberships
func HandleMyMemberships(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	list, err := service.UserMemberships(r.Context(), actor.UserID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	today := models.DateOf(now(), location)
	type membershipView struct {
		memberships.Membership
		Active bool `json:"active"`
	}
	out := make([]membershipView, 0, len(list))
	for _, m := range list {
		out = append(out, membershipView{Membership: m, Active: m.Active(today)})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write memberships response")
	}
}
