package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Padelicious/internal/api/authz"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/testutil"
)

func setupLoginTest(t *testing.T, maxAttempts int) dbgen.User {
	t.Helper()
	withTestConfig(t)

	database := testutil.NewTestDB(t)
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		Email:     "staff@club.test",
		FirstName: "Staff",
		LastName:  "Member",
		IsStaff:   true,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := database.ExecContext(context.Background(), "UPDATE users SET password_hash = ? WHERE id = ?", hash, user.ID); err != nil {
		t.Fatalf("set password: %v", err)
	}

	limiter := ratelimit.New(ratelimit.LoginConfig(maxAttempts, 15*time.Minute))
	t.Cleanup(limiter.Close)
	prevLimiter := loginLimiter
	t.Cleanup(func() { loginLimiter = prevLimiter })

	InitHandlers(database.Queries, appConfig, limiter)
	return user
}

func postLogin(email, password string) *httptest.ResponseRecorder {
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:5000"
	rec := httptest.NewRecorder()
	HandleLogin(rec, req)
	return rec
}

func TestHandleLoginSuccess(t *testing.T) {
	user := setupLoginTest(t, 5)

	rec := postLogin("Staff@Club.test", "correct-horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != user.ID || !resp.IsStaff || resp.SessionType != SessionTypeStaff {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != authCookieName {
		t.Fatalf("expected auth cookie, got %+v", cookies)
	}
	if cookies[0].Secure {
		t.Fatal("development cookies should not be Secure")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	authUser, err := UserFromRequest(httptest.NewRecorder(), req)
	if err != nil || authUser == nil || authUser.ID != user.ID {
		t.Fatalf("cookie should resolve to user, got %+v %v", authUser, err)
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	setupLoginTest(t, 5)

	if rec := postLogin("staff@club.test", "nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := postLogin("ghost@club.test", "nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestHandleLoginRateLimited(t *testing.T) {
	setupLoginTest(t, 2)

	postLogin("staff@club.test", "bad-1")
	postLogin("staff@club.test", "bad-2")

	rec := postLogin("staff@club.test", "correct-horse")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after lockout, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestHandleLoginMissingFields(t *testing.T) {
	setupLoginTest(t, 5)

	if rec := postLogin("", "x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLogoutClearsCookie(t *testing.T) {
	withTestConfig(t)

	rec := httptest.NewRecorder()
	HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}

func TestHandleMe(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: 9, Email: "a@b.c"}))
	rec = httptest.NewRecorder()
	HandleMe(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":9`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}
