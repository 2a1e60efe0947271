package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/config"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/ratelimit"
)

var loginLimiter *ratelimit.Limiter

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	SessionType string `json:"session_type"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q dbgen.Querier, cfg *config.Config, limiter *ratelimit.Limiter) {
	queries = q
	appConfig = cfg
	loginLimiter = limiter
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		apiutil.WriteError(w, r, errors.New("auth queries not initialized"))
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid login request", Err: err})
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "email", Reason: "and password are required"})
		return
	}

	ip := ratelimit.GetClientIP(r, appConfig != nil && !appConfig.IsDevelopment())
	if loginLimiter != nil {
		if res := loginLimiter.Check(email, ip); !res.Allowed {
			ratelimit.LogRateLimitExceeded(loginLimiter.Name(), email, ip, res.Reason)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "too many login attempts"})
			return
		}
	}

	user, err := queries.GetUserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		apiutil.WriteError(w, r, fmt.Errorf("load user: %w", err))
		return
	}
	if err != nil || !user.PasswordHash.Valid || !VerifyPassword(user.PasswordHash.String, req.Password) {
		if loginLimiter != nil && loginLimiter.Record(email, ip) {
			logger.Warn().Str("identifier", ratelimit.SanitizeIdentifier(email)).Str("ip", ip).Msg("Login locked out")
		}
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "invalid email or password"})
		return
	}

	if loginLimiter != nil {
		loginLimiter.Reset(email)
	}

	authUser := toAuthUser(user, "")
	if err := SetAuthCookie(w, authUser); err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("set auth cookie: %w", err))
		return
	}

	logger.Info().Int64("user_id", user.ID).Bool("is_staff", user.IsStaff).Msg("User logged in")
	if err := apiutil.WriteJSON(w, http.StatusOK, toUserResponse(authUser)); err != nil {
		logger.Error().Err(err).Msg("Failed to write login response")
	}
}

// POST /api/v1/auth/logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, toUserResponse(user)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write user response")
	}
}

func toUserResponse(user *authz.AuthUser) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		IsStaff:     user.IsStaff,
		SessionType: user.SessionType,
	}
}
