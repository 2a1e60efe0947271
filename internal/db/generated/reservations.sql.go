package dbgen

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const reservationColumns = `id, court_id, user_id, date, start_time, end_time, status, total_amount, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (Reservation, error) {
	var i Reservation
	err := row.Scan(
		&i.ID,
		&i.CourtID,
		&i.UserID,
		&i.Date,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.TotalAmount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryReservations(ctx context.Context, query string, args ...interface{}) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Reservation
	for rows.Next() {
		i, err := scanReservation(rows)
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

const createReservation = `-- name: CreateReservation :one
INSERT INTO reservations (court_id, user_id, date, start_time, end_time, status, total_amount)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + reservationColumns

type CreateReservationParams struct {
	CourtID     int64           `json:"court_id"`
	UserID      int64           `json:"user_id"`
	Date        string          `json:"date"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, createReservation,
		arg.CourtID,
		arg.UserID,
		arg.Date,
		arg.StartTime,
		arg.EndTime,
		arg.Status,
		arg.TotalAmount,
	)
	return scanReservation(row)
}

const getReservation = `-- name: GetReservation :one
SELECT ` + reservationColumns + `
FROM reservations
WHERE id = ?`

func (q *Queries) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, getReservation, id)
	return scanReservation(row)
}

const listActiveReservationsForCourtDate = `-- name: ListActiveReservationsForCourtDate :many
SELECT ` + reservationColumns + `
FROM reservations
WHERE court_id = ?
  AND date = ?
  AND status IN ('PENDING', 'CONFIRMED')
ORDER BY start_time, id`

type ListActiveReservationsForCourtDateParams struct {
	CourtID int64  `json:"court_id"`
	Date    string `json:"date"`
}

func (q *Queries) ListActiveReservationsForCourtDate(ctx context.Context, arg ListActiveReservationsForCourtDateParams) ([]Reservation, error) {
	return q.queryReservations(ctx, listActiveReservationsForCourtDate, arg.CourtID, arg.Date)
}

const listReservationsForUser = `-- name: ListReservationsForUser :many
SELECT ` + reservationColumns + `
FROM reservations
WHERE user_id = ?
ORDER BY date DESC, start_time DESC, id DESC`

func (q *Queries) ListReservationsForUser(ctx context.Context, userID int64) ([]Reservation, error) {
	return q.queryReservations(ctx, listReservationsForUser, userID)
}

const listElapsedConfirmedReservations = `-- name: ListElapsedConfirmedReservations :many
SELECT ` + reservationColumns + `
FROM reservations
WHERE status = 'CONFIRMED'
  AND (date < ?1 OR (date = ?1 AND end_time <= ?2))
ORDER BY date, end_time, id`

type ListElapsedConfirmedReservationsParams struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (q *Queries) ListElapsedConfirmedReservations(ctx context.Context, arg ListElapsedConfirmedReservationsParams) ([]Reservation, error) {
	return q.queryReservations(ctx, listElapsedConfirmedReservations, arg.Date, arg.Time)
}

const updateReservationStatus = `-- name: UpdateReservationStatus :execrows
UPDATE reservations
SET status = ?,
    updated_at = ?
WHERE id = ?
  AND status = ?`

type UpdateReservationStatusParams struct {
	ToStatus   string    `json:"to_status"`
	UpdatedAt  time.Time `json:"updated_at"`
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateReservationStatus,
		arg.ToStatus,
		arg.UpdatedAt,
		arg.ID,
		arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const reservationDetailColumns = `r.id, r.court_id, r.user_id, r.date, r.start_time, r.end_time, r.status, r.total_amount,
       c.name AS court_name, u.email AS user_email, u.first_name AS user_first_name`

type ReservationDetailRow struct {
	ID            int64           `json:"id"`
	CourtID       int64           `json:"court_id"`
	UserID        int64           `json:"user_id"`
	Date          string          `json:"date"`
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CourtName     string          `json:"court_name"`
	UserEmail     string          `json:"user_email"`
	UserFirstName string          `json:"user_first_name"`
}

func (q *Queries) queryReservationDetails(ctx context.Context, query string, args ...interface{}) ([]ReservationDetailRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReservationDetailRow
	for rows.Next() {
		var i ReservationDetailRow
		if err := rows.Scan(
			&i.ID,
			&i.CourtID,
			&i.UserID,
			&i.Date,
			&i.StartTime,
			&i.EndTime,
			&i.Status,
			&i.TotalAmount,
			&i.CourtName,
			&i.UserEmail,
			&i.UserFirstName,
		); err != nil {
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

const listReservationDetailsByStatusOnDate = `-- name: ListReservationDetailsByStatusOnDate :many
SELECT ` + reservationDetailColumns + `
FROM reservations r
JOIN courts c ON c.id = r.court_id
JOIN users u ON u.id = r.user_id
WHERE r.status = ?
  AND r.date = ?
ORDER BY r.start_time, r.id`

type ListReservationDetailsByStatusOnDateParams struct {
	Status string `json:"status"`
	Date   string `json:"date"`
}

func (q *Queries) ListReservationDetailsByStatusOnDate(ctx context.Context, arg ListReservationDetailsByStatusOnDateParams) ([]ReservationDetailRow, error) {
	return q.queryReservationDetails(ctx, listReservationDetailsByStatusOnDate, arg.Status, arg.Date)
}

const listUnpaidPendingReservationDetailsFrom = `-- name: ListUnpaidPendingReservationDetailsFrom :many
SELECT ` + reservationDetailColumns + `
FROM reservations r
JOIN courts c ON c.id = r.court_id
JOIN users u ON u.id = r.user_id
WHERE r.status = 'PENDING'
  AND r.date >= ?
  AND NOT EXISTS (
      SELECT 1 FROM payments p
      WHERE p.reservation_id = r.id
        AND p.status IN ('PENDING', 'PENDING_VALIDATION', 'COMPLETED')
  )
ORDER BY r.date, r.start_time, r.id`

func (q *Queries) ListUnpaidPendingReservationDetailsFrom(ctx context.Context, date string) ([]ReservationDetailRow, error) {
	return q.queryReservationDetails(ctx, listUnpaidPendingReservationDetailsFrom, date)
}
