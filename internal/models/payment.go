package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

// Evidence holds the channel-specific proof attached to a payment.
type Evidence struct {
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	ReferenceDigits       string `json:"reference_digits,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	Bank                  string `json:"bank,omitempty"`
	CounterpartyEmail     string `json:"counterparty_email,omitempty"`
	HolderName            string `json:"holder_name,omitempty"`
	ProofImageKey         string `json:"proof_image_key,omitempty"`
}

type Payment struct {
	ID               int64           `json:"id"`
	ReservationID    int64           `json:"reservation_id"`
	SubmittedBy      int64           `json:"submitted_by"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Channel          Channel         `json:"channel"`
	Status           PaymentStatus   `json:"status"`
	Evidence         Evidence        `json:"evidence"`
	ValidatedBy      *int64          `json:"validated_by,omitempty"`
	ValidationNotes  string          `json:"validation_notes,omitempty"`
	RetryOfPaymentID *int64          `json:"retry_of_payment_id,omitempty"`
	ValidatedAt      *time.Time      `json:"validated_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func PaymentFromRow(row dbgen.Payment) (Payment, error) {
	channel, err := ParseChannel(row.Channel)
	if err != nil {
		return Payment{}, fmt.Errorf("payment %d: %w", row.ID, err)
	}
	status, err := ParsePaymentStatus(row.Status)
	if err != nil {
		return Payment{}, fmt.Errorf("payment %d: %w", row.ID, err)
	}
	return Payment{
		ID:            row.ID,
		ReservationID: row.ReservationID,
		SubmittedBy:   row.SubmittedBy,
		Amount:        row.Amount,
		Currency:      row.Currency,
		Channel:       channel,
		Status:        status,
		Evidence: Evidence{
			ExternalTransactionID: row.ExternalTransactionID.String,
			ReferenceDigits:       row.ReferenceDigits.String,
			Phone:                 row.Phone.String,
			Bank:                  row.Bank.String,
			CounterpartyEmail:     row.CounterpartyEmail.String,
			HolderName:            row.HolderName.String,
			ProofImageKey:         row.ProofImageKey.String,
		},
		ValidatedBy:      nullInt64Ptr(row.ValidatedBy),
		ValidationNotes:  row.ValidationNotes,
		RetryOfPaymentID: nullInt64Ptr(row.RetryOfPaymentID),
		ValidatedAt:      nullTimePtr(row.ValidatedAt),
		CompletedAt:      nullTimePtr(row.CompletedAt),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func PaymentsFromRows(rows []dbgen.Payment) ([]Payment, error) {
	out := make([]Payment, 0, len(rows))
	for _, row := range rows {
		p, err := PaymentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func NullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
