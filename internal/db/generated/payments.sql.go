package dbgen

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const paymentColumns = `id, reservation_id, submitted_by, amount, currency, channel, status,
       external_transaction_id, reference_digits, phone, bank, counterparty_email, holder_name,
       proof_image_key, validated_by, validation_notes, retry_of_payment_id, validated_at,
       completed_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.ReservationID,
		&i.SubmittedBy,
		&i.Amount,
		&i.Currency,
		&i.Channel,
		&i.Status,
		&i.ExternalTransactionID,
		&i.ReferenceDigits,
		&i.Phone,
		&i.Bank,
		&i.CounterpartyEmail,
		&i.HolderName,
		&i.ProofImageKey,
		&i.ValidatedBy,
		&i.ValidationNotes,
		&i.RetryOfPaymentID,
		&i.ValidatedAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryPayments(ctx context.Context, query string, args ...interface{}) ([]Payment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (
    reservation_id, submitted_by, amount, currency, channel, status,
    external_transaction_id, reference_digits, phone, bank, counterparty_email,
    holder_name, proof_image_key, retry_of_payment_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
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
	RetryOfPaymentID      sql.NullInt64   `json:"retry_of_payment_id"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, createPayment,
		arg.ReservationID,
		arg.SubmittedBy,
		arg.Amount,
		arg.Currency,
		arg.Channel,
		arg.Status,
		arg.ExternalTransactionID,
		arg.ReferenceDigits,
		arg.Phone,
		arg.Bank,
		arg.CounterpartyEmail,
		arg.HolderName,
		arg.ProofImageKey,
		arg.RetryOfPaymentID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + `
FROM payments
WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPayment, id)
	return scanPayment(row)
}

const getPaymentByExternalTransactionID = `-- name: GetPaymentByExternalTransactionID :one
SELECT ` + paymentColumns + `
FROM payments
WHERE external_transaction_id = ?`

func (q *Queries) GetPaymentByExternalTransactionID(ctx context.Context, externalTransactionID string) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentByExternalTransactionID, externalTransactionID)
	return scanPayment(row)
}

const listPaymentsForReservation = `-- name: ListPaymentsForReservation :many
SELECT ` + paymentColumns + `
FROM payments
WHERE reservation_id = ?
ORDER BY created_at, id`

func (q *Queries) ListPaymentsForReservation(ctx context.Context, reservationID int64) ([]Payment, error) {
	return q.queryPayments(ctx, listPaymentsForReservation, reservationID)
}

const listPaymentsByStatus = `-- name: ListPaymentsByStatus :many
SELECT ` + paymentColumns + `
FROM payments
WHERE status = ?
ORDER BY created_at, id`

func (q *Queries) ListPaymentsByStatus(ctx context.Context, status string) ([]Payment, error) {
	return q.queryPayments(ctx, listPaymentsByStatus, status)
}

const countOtherCompletedPayments = `-- name: CountOtherCompletedPayments :one
SELECT COUNT(*)
FROM payments
WHERE reservation_id = ?
  AND status = 'COMPLETED'
  AND id != ?`

type CountOtherCompletedPaymentsParams struct {
	ReservationID int64 `json:"reservation_id"`
	ExcludeID     int64 `json:"exclude_id"`
}

func (q *Queries) CountOtherCompletedPayments(ctx context.Context, arg CountOtherCompletedPaymentsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOtherCompletedPayments, arg.ReservationID, arg.ExcludeID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :execrows
UPDATE payments
SET status = ?,
    validated_by = COALESCE(?, validated_by),
    validation_notes = COALESCE(?, validation_notes),
    validated_at = COALESCE(?, validated_at),
    completed_at = COALESCE(?, completed_at),
    updated_at = ?
WHERE id = ?
  AND status = ?`

type UpdatePaymentStatusParams struct {
	ToStatus        string         `json:"to_status"`
	ValidatedBy     sql.NullInt64  `json:"validated_by"`
	ValidationNotes sql.NullString `json:"validation_notes"`
	ValidatedAt     sql.NullTime   `json:"validated_at"`
	CompletedAt     sql.NullTime   `json:"completed_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ID              int64          `json:"id"`
	FromStatus      string         `json:"from_status"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePaymentStatus,
		arg.ToStatus,
		arg.ValidatedBy,
		arg.ValidationNotes,
		arg.ValidatedAt,
		arg.CompletedAt,
		arg.UpdatedAt,
		arg.ID,
		arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePayment = `-- name: DeletePayment :execrows
DELETE FROM payments
WHERE id = ?
  AND status IN ('FAILED', 'PENDING_VALIDATION')`

func (q *Queries) DeletePayment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePayment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
