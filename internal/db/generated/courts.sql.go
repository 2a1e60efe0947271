package dbgen

import (
	"context"

	"github.com/shopspring/decimal"
)

const courtColumns = `id, name, opening_time, closing_time, active_weekdays, is_active, price_per_hour, created_at, updated_at`

func scanCourt(row interface{ Scan(...interface{}) error }) (Court, error) {
	var i Court
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OpeningTime,
		&i.ClosingTime,
		&i.ActiveWeekdays,
		&i.IsActive,
		&i.PricePerHour,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCourt = `-- name: CreateCourt :one
INSERT INTO courts (name, opening_time, closing_time, active_weekdays, is_active, price_per_hour)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + courtColumns

type CreateCourtParams struct {
	Name           string          `json:"name"`
	OpeningTime    string          `json:"opening_time"`
	ClosingTime    string          `json:"closing_time"`
	ActiveWeekdays int64           `json:"active_weekdays"`
	IsActive       bool            `json:"is_active"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt,
		arg.Name,
		arg.OpeningTime,
		arg.ClosingTime,
		arg.ActiveWeekdays,
		arg.IsActive,
		arg.PricePerHour,
	)
	return scanCourt(row)
}

const getCourt = `-- name: GetCourt :one
SELECT ` + courtColumns + `
FROM courts
WHERE id = ?`

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, getCourt, id)
	return scanCourt(row)
}

const listCourts = `-- name: ListCourts :many
SELECT ` + courtColumns + `
FROM courts
ORDER BY name, id`

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	return q.queryCourts(ctx, listCourts)
}

const listActiveCourts = `-- name: ListActiveCourts :many
SELECT ` + courtColumns + `
FROM courts
WHERE is_active = 1
ORDER BY name, id`

func (q *Queries) ListActiveCourts(ctx context.Context) ([]Court, error) {
	return q.queryCourts(ctx, listActiveCourts)
}

func (q *Queries) queryCourts(ctx context.Context, query string, args ...interface{}) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Court
	for rows.Next() {
		i, err := scanCourt(rows)
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

const updateCourt = `-- name: UpdateCourt :one
UPDATE courts
SET name = ?,
    opening_time = ?,
    closing_time = ?,
    active_weekdays = ?,
    is_active = ?,
    price_per_hour = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + courtColumns

type UpdateCourtParams struct {
	Name           string          `json:"name"`
	OpeningTime    string          `json:"opening_time"`
	ClosingTime    string          `json:"closing_time"`
	ActiveWeekdays int64           `json:"active_weekdays"`
	IsActive       bool            `json:"is_active"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
	ID             int64           `json:"id"`
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, updateCourt,
		arg.Name,
		arg.OpeningTime,
		arg.ClosingTime,
		arg.ActiveWeekdays,
		arg.IsActive,
		arg.PricePerHour,
		arg.ID,
	)
	return scanCourt(row)
}
