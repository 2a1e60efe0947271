package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/authz"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

// clerkInitialized indicates whether the Clerk SDK has been initialized
var clerkInitialized bool

// fetchClerkUser is swapped in tests.
var fetchClerkUser = func(ctx context.Context, id string) (*clerk.User, error) {
	return user.Get(ctx, id)
}

// InitClerk initializes Clerk SDK with the secret key
func InitClerk(secretKey string) {
	if secretKey == "" {
		log.Warn().Msg("Clerk secret key not configured")
		return
	}
	clerk.SetKey(secretKey)
	clerkInitialized = true
	log.Info().Msg("Clerk SDK initialized")
}

func clerkToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	if c, err := r.Cookie(clerkSessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// userFromClerkToken verifies a Clerk session token and maps it onto a local
// account. Invalid tokens are treated as anonymous.
func userFromClerkToken(r *http.Request) (*authz.AuthUser, error) {
	if !clerkInitialized {
		return nil, nil
	}
	token := clerkToken(r)
	if token == "" {
		return nil, nil
	}

	claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{Token: token})
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("Invalid Clerk session token")
		return nil, nil
	}

	clerkUser, err := fetchClerkUser(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}

	local, err := findLocalUserFromClerk(r.Context(), clerkUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(r.Context()).Warn().Str("clerk_user_id", claims.Subject).Msg("Clerk user has no matching local account")
			return nil, nil
		}
		return nil, err
	}
	return toAuthUser(local, sessionTypeClerk), nil
}

// findLocalUserFromClerk looks up the local user by the Clerk user's primary
// email, then primary phone, then any email or phone.
func findLocalUserFromClerk(ctx context.Context, clerkUser *clerk.User) (dbgen.User, error) {
	if queries == nil {
		return dbgen.User{}, errors.New("database not initialized")
	}

	var emails, phones []string
	for _, email := range clerkUser.EmailAddresses {
		if clerkUser.PrimaryEmailAddressID != nil && email.ID == *clerkUser.PrimaryEmailAddressID {
			emails = append([]string{email.EmailAddress}, emails...)
			continue
		}
		emails = append(emails, email.EmailAddress)
	}
	for _, phone := range clerkUser.PhoneNumbers {
		normalized := normalizePhone(phone.PhoneNumber)
		if normalized == "" {
			continue
		}
		if clerkUser.PrimaryPhoneNumberID != nil && phone.ID == *clerkUser.PrimaryPhoneNumberID {
			phones = append([]string{normalized}, phones...)
			continue
		}
		phones = append(phones, normalized)
	}

	lookups := []struct {
		values []string
		find   func(context.Context, string) (dbgen.User, error)
	}{
		{emails, queries.GetUserByEmail},
		{phones, queries.GetUserByPhone},
	}
	for _, lookup := range lookups {
		for _, value := range lookup.values {
			u, err := lookup.find(ctx, value)
			if err == nil {
				return u, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return dbgen.User{}, err
			}
		}
	}

	return dbgen.User{}, sql.ErrNoRows
}

// normalizePhone formats raw as E.164, or returns "" when it is not a valid
// number. Numbers without a country code use the configured region.
func normalizePhone(raw string) string {
	region := "US"
	if appConfig != nil && appConfig.Payments.PhoneRegion != "" {
		region = appConfig.Payments.PhoneRegion
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
