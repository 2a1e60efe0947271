package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/models"
)

const maxJSONBody = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError maps err onto a status code and the JSON error body. Server-side
// failures are logged here; client errors are logged at debug.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())
	status, detail := describe(err)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Str("code", detail.Code).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Str("code", detail.Code).Msg("Request rejected")
	}

	if werr := WriteJSON(w, status, ErrorBody{Error: detail}); werr != nil {
		logger.Error().Err(werr).Msg("Failed to write error response")
	}
}

func describe(err error) (int, ErrorDetail) {
	var appErr *apperr.Error
	var fieldErr FieldError
	var handlerErr HandlerError

	switch {
	case errors.As(err, &appErr):
		return apperr.HTTPStatus(appErr), ErrorDetail{Code: appErr.Code, Message: appErr.Message, Field: appErr.Field}
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, ErrorDetail{Code: "invalid_field", Message: fieldErr.Error(), Field: fieldErr.Field}
	case errors.As(err, &handlerErr):
		return handlerErr.Status, ErrorDetail{Code: codeForStatus(handlerErr.Status), Message: handlerErr.Message}
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorDetail{Code: "unauthenticated", Message: "authentication required"}
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, ErrorDetail{Code: "forbidden", Message: "forbidden"}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: "internal", Message: "internal server error"}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "error"
}

// RequireActor resolves the caller or writes 401.
func RequireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, err := authz.ActorFromContext(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
		WriteError(w, r, err)
		return models.Actor{}, false
	}
	return actor, true
}

// RequireStaff resolves a staff caller or writes 401/403.
func RequireStaff(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	if err := authz.RequireRole(r.Context(), authz.RoleStaff); err != nil {
		logEvent := log.Ctx(r.Context()).Warn().Str("path", r.URL.Path)
		if user := authz.UserFromContext(r.Context()); user != nil {
			logEvent = logEvent.Int64("user_id", user.ID)
		}
		logEvent.Msg("Staff access denied")
		WriteError(w, r, err)
		return models.Actor{}, false
	}
	actor, err := authz.ActorFromContext(r.Context())
	return actor, err == nil
}
