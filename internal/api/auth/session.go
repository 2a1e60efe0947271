package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codr1/Padelicious/internal/api/authz"
	"github.com/codr1/Padelicious/internal/config"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

const (
	authCookieName     = "padelicious_auth"
	authSessionTTL     = 8 * time.Hour
	SessionTypeStaff   = "staff"
	SessionTypeMember  = "member"
	sessionTypeClerk   = "clerk"
	bearerPrefix       = "Bearer "
	clerkSessionCookie = "__session"
)

var errAuthConfigMissing = errors.New("auth configuration missing")

var (
	appConfig *config.Config
	queries   dbgen.Querier
)

type authSession struct {
	UserID      int64  `json:"user_id"`
	SessionType string `json:"session_type"`
	ExpiresAt   int64  `json:"exp"`
}

func isSecureCookie() bool {
	return appConfig == nil || appConfig.App.Environment != "development"
}

// SetAuthCookie issues the signed session cookie for user.
func SetAuthCookie(w http.ResponseWriter, user *authz.AuthUser) error {
	if w == nil || user == nil {
		return errors.New("auth session requires response and user")
	}
	if appConfig == nil || appConfig.App.SecretKey == "" {
		return errAuthConfigMissing
	}

	expiresAt := time.Now().Add(authSessionTTL).Unix()
	session := authSession{
		UserID:      user.ID,
		SessionType: sessionTypeFromStaff(user.IsStaff),
		ExpiresAt:   expiresAt,
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	signature, err := signPayload(encodedPayload)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    encodedPayload + "." + signature,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(expiresAt, 0),
		MaxAge:   int(authSessionTTL.Seconds()),
	})
	return nil
}

func ClearAuthCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureCookie(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest resolves the caller from the signed session cookie, falling
// back to a Clerk session token. The user row is re-read so that staff
// revocation applies immediately. Returns nil, nil for anonymous requests.
func UserFromRequest(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, error) {
	if r == nil {
		return nil, nil
	}

	session, err := parseAuthCookie(r)
	if err != nil {
		ClearAuthCookie(w)
		return nil, err
	}
	if session != nil {
		return loadUser(r, session.UserID, session.SessionType)
	}

	return userFromClerkToken(r)
}

func loadUser(r *http.Request, userID int64, sessionType string) (*authz.AuthUser, error) {
	if queries == nil {
		return nil, errors.New("auth queries not initialized")
	}
	user, err := queries.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(user, sessionType), nil
}

func toAuthUser(user dbgen.User, sessionType string) *authz.AuthUser {
	if sessionType != sessionTypeClerk {
		sessionType = sessionTypeFromStaff(user.IsStaff)
	}
	return &authz.AuthUser{
		ID:          user.ID,
		Email:       user.Email,
		IsStaff:     user.IsStaff,
		SessionType: sessionType,
	}
}

func parseAuthCookie(r *http.Request) (*authSession, error) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	if appConfig == nil || appConfig.App.SecretKey == "" {
		return nil, errAuthConfigMissing
	}

	encodedPayload, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok {
		return nil, errors.New("invalid auth cookie")
	}

	expectedSignature, err := signPayload(encodedPayload)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return nil, errors.New("invalid auth cookie signature")
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, err
	}

	var session authSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}

	session.SessionType = normalizeSessionType(session.SessionType)

	if session.ExpiresAt <= time.Now().Unix() {
		return nil, errors.New("auth session expired")
	}

	return &session, nil
}

func normalizeSessionType(sessionType string) string {
	switch sessionType {
	case SessionTypeStaff, SessionTypeMember:
		return sessionType
	default:
		return SessionTypeMember
	}
}

func sessionTypeFromStaff(isStaff bool) string {
	if isStaff {
		return SessionTypeStaff
	}
	return SessionTypeMember
}

func signPayload(payload string) (string, error) {
	if appConfig == nil || appConfig.App.SecretKey == "" {
		return "", errAuthConfigMissing
	}

	mac := hmac.New(sha256.New, []byte(appConfig.App.SecretKey))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
