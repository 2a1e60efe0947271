package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

var userSeq atomic.Int64

// SeedUser inserts a member, or a staff user when staff is true.
func SeedUser(t *testing.T, database *db.DB, staff bool) dbgen.User {
	t.Helper()

	n := userSeq.Add(1)
	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		Email:     fmt.Sprintf("user%d@example.com", n),
		Phone:     sql.NullString{String: "+584141234567", Valid: true},
		FirstName: fmt.Sprintf("User%d", n),
		LastName:  "Tester",
		IsStaff:   staff,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedCourt inserts an active court open 07:00-22:00 every day at 20.00 per hour.
func SeedCourt(t *testing.T, database *db.DB) dbgen.Court {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), dbgen.CreateCourtParams{
		Name:           "Court 1",
		OpeningTime:    "07:00",
		ClosingTime:    "22:00",
		ActiveWeekdays: 127,
		IsActive:       true,
		PricePerHour:   decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}

// SeedReservation inserts a reservation directly, bypassing availability checks.
func SeedReservation(t *testing.T, database *db.DB, courtID, userID int64, date, start, end, status string) dbgen.Reservation {
	t.Helper()

	reservation, err := database.Queries.CreateReservation(context.Background(), dbgen.CreateReservationParams{
		CourtID:     courtID,
		UserID:      userID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		TotalAmount: decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return reservation
}

// SeedPayment inserts a payment row with the given channel and status.
func SeedPayment(t *testing.T, database *db.DB, reservationID, userID int64, channel, status string) dbgen.Payment {
	t.Helper()

	now := time.Now().UTC()
	payment, err := database.Queries.CreatePayment(context.Background(), dbgen.CreatePaymentParams{
		ReservationID: reservationID,
		SubmittedBy:   userID,
		Amount:        decimal.RequireFromString("20.00"),
		Currency:      "USD",
		Channel:       channel,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}
