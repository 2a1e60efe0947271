package dbgen

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Court struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	OpeningTime    string          `json:"opening_time"`
	ClosingTime    string          `json:"closing_time"`
	ActiveWeekdays int64           `json:"active_weekdays"`
	IsActive       bool            `json:"is_active"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type MembershipPlan struct {
	ID           int64           `json:"id"`
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int64           `json:"duration_days"`
	Benefits     string          `json:"benefits"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Notification struct {
	ID        int64         `json:"id"`
	UserID    sql.NullInt64 `json:"user_id"`
	Audience  string        `json:"audience"`
	Kind      string        `json:"kind"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	IsRead    bool          `json:"is_read"`
	CreatedAt time.Time     `json:"created_at"`
}

type Payment struct {
	ID                    int64           `json:"id"`
	ReservationID         int64           `json:"reservation_id"`
	SubmittedBy           int64           `json:"submitted_by"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Channel               string          `json:"channel"`
	Status                string          `json:"status"`
	ExternalTransactionID sql.NullString  `json:"external_transaction_id"`
	ReferenceDigits       sql.NullString  `json:"reference_digits"`
	Phone                 sql.NullString  `json:"phone"`
	Bank                  sql.NullString  `json:"bank"`
	CounterpartyEmail     sql.NullString  `json:"counterparty_email"`
	HolderName            sql.NullString  `json:"holder_name"`
	ProofImageKey         sql.NullString  `json:"proof_image_key"`
	ValidatedBy           sql.NullInt64   `json:"validated_by"`
	ValidationNotes       string          `json:"validation_notes"`
	RetryOfPaymentID      sql.NullInt64   `json:"retry_of_payment_id"`
	ValidatedAt           sql.NullTime    `json:"validated_at"`
	CompletedAt           sql.NullTime    `json:"completed_at"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type Reservation struct {
	ID          int64           `json:"id"`
	CourtID     int64           `json:"court_id"`
	UserID      int64           `json:"user_id"`
	Date        string          `json:"date"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type User struct {
	ID           int64          `json:"id"`
	Email        string         `json:"email"`
	Phone        sql.NullString `json:"phone"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	PasswordHash sql.NullString `json:"password_hash"`
	IsStaff      bool           `json:"is_staff"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type UserMembership struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	PlanID    int64         `json:"plan_id"`
	StartsOn  string        `json:"starts_on"`
	EndsOn    string        `json:"ends_on"`
	CreatedBy sql.NullInt64 `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
}
