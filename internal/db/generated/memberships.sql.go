package dbgen

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const membershipPlanColumns = `id, type, name, price, duration_days, benefits, is_active, created_at, updated_at`

func scanMembershipPlan(row interface{ Scan(...interface{}) error }) (MembershipPlan, error) {
	var i MembershipPlan
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Name,
		&i.Price,
		&i.DurationDays,
		&i.Benefits,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMembershipPlan = `-- name: CreateMembershipPlan :one
INSERT INTO membership_plans (type, name, price, duration_days, benefits, is_active)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + membershipPlanColumns

type CreateMembershipPlanParams struct {
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int64           `json:"duration_days"`
	Benefits     string          `json:"benefits"`
	IsActive     bool            `json:"is_active"`
}

func (q *Queries) CreateMembershipPlan(ctx context.Context, arg CreateMembershipPlanParams) (MembershipPlan, error) {
	row := q.db.QueryRowContext(ctx, createMembershipPlan,
		arg.Type,
		arg.Name,
		arg.Price,
		arg.DurationDays,
		arg.Benefits,
		arg.IsActive,
	)
	return scanMembershipPlan(row)
}

const getMembershipPlan = `-- name: GetMembershipPlan :one
SELECT ` + membershipPlanColumns + `
FROM membership_plans
WHERE id = ?`

func (q *Queries) GetMembershipPlan(ctx context.Context, id int64) (MembershipPlan, error) {
	row := q.db.QueryRowContext(ctx, getMembershipPlan, id)
	return scanMembershipPlan(row)
}

const listMembershipPlans = `-- name: ListMembershipPlans :many
SELECT ` + membershipPlanColumns + `
FROM membership_plans
WHERE (?1 = 0 OR is_active = 1)
ORDER BY price, id`

func (q *Queries) ListMembershipPlans(ctx context.Context, activeOnly bool) ([]MembershipPlan, error) {
	rows, err := q.db.QueryContext(ctx, listMembershipPlans, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MembershipPlan
	for rows.Next() {
		i, err := scanMembershipPlan(rows)
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

const updateMembershipPlan = `-- name: UpdateMembershipPlan :one
UPDATE membership_plans
SET type = ?,
    name = ?,
    price = ?,
    duration_days = ?,
    benefits = ?,
    is_active = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + membershipPlanColumns

type UpdateMembershipPlanParams struct {
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int64           `json:"duration_days"`
	Benefits     string          `json:"benefits"`
	IsActive     bool            `json:"is_active"`
	ID           int64           `json:"id"`
}

func (q *Queries) UpdateMembershipPlan(ctx context.Context, arg UpdateMembershipPlanParams) (MembershipPlan, error) {
	row := q.db.QueryRowContext(ctx, updateMembershipPlan,
		arg.Type,
		arg.Name,
		arg.Price,
		arg.DurationDays,
		arg.Benefits,
		arg.IsActive,
		arg.ID,
	)
	return scanMembershipPlan(row)
}

const createUserMembership = `-- name: CreateUserMembership :one
INSERT INTO user_memberships (user_id, plan_id, starts_on, ends_on, created_by)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, plan_id, starts_on, ends_on, created_by, created_at`

type CreateUserMembershipParams struct {
	UserID    int64         `json:"user_id"`
	PlanID    int64         `json:"plan_id"`
	StartsOn  string        `json:"starts_on"`
	EndsOn    string        `json:"ends_on"`
	CreatedBy sql.NullInt64 `json:"created_by"`
}

func (q *Queries) CreateUserMembership(ctx context.Context, arg CreateUserMembershipParams) (UserMembership, error) {
	row := q.db.QueryRowContext(ctx, createUserMembership,
		arg.UserID,
		arg.PlanID,
		arg.StartsOn,
		arg.EndsOn,
		arg.CreatedBy,
	)
	var i UserMembership
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PlanID,
		&i.StartsOn,
		&i.EndsOn,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const listUserMemberships = `-- name: ListUserMemberships :many
SELECT um.id, um.user_id, um.plan_id, um.starts_on, um.ends_on, um.created_by, um.created_at,
       mp.name AS plan_name, mp.type AS plan_type
FROM user_memberships um
JOIN membership_plans mp ON mp.id = um.plan_id
WHERE um.user_id = ?
ORDER BY um.ends_on DESC, um.id DESC`

type ListUserMembershipsRow struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	PlanID    int64         `json:"plan_id"`
	StartsOn  string        `json:"starts_on"`
	EndsOn    string        `json:"ends_on"`
	CreatedBy sql.NullInt64 `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	PlanName  string        `json:"plan_name"`
	PlanType  string        `json:"plan_type"`
}

func (q *Queries) ListUserMemberships(ctx context.Context, userID int64) ([]ListUserMembershipsRow, error) {
	rows, err := q.db.QueryContext(ctx, listUserMemberships, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListUserMembershipsRow
	for rows.Next() {
		var i ListUserMembershipsRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.PlanID,
			&i.StartsOn,
			&i.EndsOn,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.PlanName,
			&i.PlanType,
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

const getActiveUserMembership = `-- name: GetActiveUserMembership :one
SELECT id, user_id, plan_id, starts_on, ends_on, created_by, created_at
FROM user_memberships
WHERE user_id = ?1
  AND starts_on <= ?2
  AND ends_on > ?2
ORDER BY ends_on DESC, id DESC
LIMIT 1`

type GetActiveUserMembershipParams struct {
	UserID int64  `json:"user_id"`
	OnDate string `json:"on_date"`
}

func (q *Queries) GetActiveUserMembership(ctx context.Context, arg GetActiveUserMembershipParams) (UserMembership, error) {
	row := q.db.QueryRowContext(ctx, getActiveUserMembership, arg.UserID, arg.OnDate)
	var i UserMembership
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PlanID,
		&i.StartsOn,
		&i.EndsOn,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}
