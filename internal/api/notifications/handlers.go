// internal/api/notifications/handlers.go
package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/apperr"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

var queries dbgen.Querier

const (
	notificationsQueryTimeout = 5 * time.Second
	notificationsListLimit    = 25
	notificationsMaxLimit     = 100
)

type notificationResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func InitHandlers(q dbgen.Querier) {
	queries = q
}

func loadQueries() dbgen.Querier {
	return queries
}

// GET /api/v1/notifications?limit=
func HandleNotificationsList(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	q := loadQueries()
	if q == nil {
		apiutil.WriteError(w, r, errors.New("notification queries not initialized"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	rows, err := q.ListNotificationsForUser(ctx, dbgen.ListNotificationsForUserParams{
		UserID: actor.UserID,
		Limit:  limit,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toResponses(rows))
}

// GET /api/v1/notifications/count
func HandleNotificationCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	q := loadQueries()
	if q == nil {
		apiutil.WriteError(w, r, errors.New("notification queries not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	count, err := q.CountUnreadNotifications(ctx, actor.UserID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"unread": count})
}

// GET /api/v1/notifications/staff?limit=
// Staff-audience notifications such as payments awaiting validation.
func HandleStaffNotificationsList(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiutil.RequireStaff(w, r); !ok {
		return
	}
	q := loadQueries()
	if q == nil {
		apiutil.WriteError(w, r, errors.New("notification queries not initialized"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	rows, err := q.ListStaffNotifications(ctx, limit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toResponses(rows))
}

// POST /api/v1/notifications/{id}/read
func HandleNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := apiutil.RequireActor(w, r)
	if !ok {
		return
	}
	q := loadQueries()
	if q == nil {
		apiutil.WriteError(w, r, errors.New("notification queries not initialized"))
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), notificationsQueryTimeout)
	defer cancel()

	n, err := q.MarkNotificationRead(ctx, dbgen.MarkNotificationReadParams{ID: id, UserID: actor.UserID})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if n == 0 {
		apiutil.WriteError(w, r, apperr.NotFound("notification"))
		return
	}
	log.Ctx(r.Context()).Debug().Int64("notification_id", id).Msg("Notification marked read")
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return notificationsListLimit, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return 0, apiutil.FieldError{Field: "limit", Reason: "must be a positive number"}
	}
	if limit > notificationsMaxLimit {
		limit = notificationsMaxLimit
	}
	return limit, nil
}

func toResponses(rows []dbgen.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, notificationResponse{
			ID:        row.ID,
			Kind:      row.Kind,
			Title:     row.Title,
			Message:   row.Message,
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write notifications response")
	}
}
