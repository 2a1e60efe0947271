// Package memberships manages membership plans and the plans assigned to users.
package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/models"
)

var (
	ErrPlanNotFound = apperr.NotFound("membership_plan")
	ErrUserNotFound = apperr.NotFound("user")
)

type PlanType string

const (
	PlanBasic   PlanType = "BASIC"
	PlanPremium PlanType = "PREMIUM"
	PlanVIP     PlanType = "VIP"
)

type Plan struct {
	ID           int64           `json:"id"`
	Type         PlanType        `json:"type"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	Benefits     string          `json:"benefits"`
	IsActive     bool            `json:"is_active"`
}

type PlanParams struct {
	Type         PlanType        `json:"type" validate:"required,oneof=BASIC PREMIUM VIP"`
	Name         string          `json:"name" validate:"required,max=100"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days" validate:"required,min=1,max=3660"`
	Benefits     string          `json:"benefits" validate:"max=2000"`
	IsActive     bool            `json:"is_active"`
}

type Membership struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	PlanID    int64       `json:"plan_id"`
	PlanName  string      `json:"plan_name,omitempty"`
	PlanType  PlanType    `json:"plan_type,omitempty"`
	StartsOn  models.Date `json:"starts_on"`
	EndsOn    models.Date `json:"ends_on"`
	CreatedBy *int64      `json:"created_by,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Active reports whether the membership covers day. EndsOn is exclusive.
func (m Membership) Active(day models.Date) bool {
	return !day.Before(m.StartsOn) && day.Before(m.EndsOn)
}

type Service struct {
	queries  dbgen.Querier
	validate *validator.Validate
}

func NewService(queries dbgen.Querier) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		return name
	})
	return &Service{queries: queries, validate: v}
}

func (s *Service) checkPlan(params *PlanParams) error {
	params.Name = strings.TrimSpace(params.Name)
	params.Type = PlanType(strings.ToUpper(string(params.Type)))
	if err := s.validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := fe.Field()
			return apperr.Validation(field, fe.Tag(), fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
		return apperr.Validation("plan", "invalid_plan", err.Error())
	}
	if params.Price.IsNegative() || !params.Price.Equal(params.Price.Round(2)) {
		return apperr.Validation("price", "invalid_price", "price must be non-negative with at most 2 decimals")
	}
	return nil
}

func (s *Service) CreatePlan(ctx context.Context, params PlanParams) (Plan, error) {
	if err := s.checkPlan(&params); err != nil {
		return Plan{}, err
	}
	row, err := s.queries.CreateMembershipPlan(ctx, dbgen.CreateMembershipPlanParams{
		Type:         string(params.Type),
		Name:         params.Name,
		Price:        params.Price,
		DurationDays: int64(params.DurationDays),
		Benefits:     params.Benefits,
		IsActive:     params.IsActive,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("create membership plan: %w", err)
	}
	log.Ctx(ctx).Info().Int64("plan_id", row.ID).Str("type", row.Type).Msg("Membership plan created")
	return planFromRow(row), nil
}

func (s *Service) UpdatePlan(ctx context.Context, planID int64, params PlanParams) (Plan, error) {
	if err := s.checkPlan(&params); err != nil {
		return Plan{}, err
	}
	row, err := s.queries.UpdateMembershipPlan(ctx, dbgen.UpdateMembershipPlanParams{
		Type:         string(params.Type),
		Name:         params.Name,
		Price:        params.Price,
		DurationDays: int64(params.DurationDays),
		Benefits:     params.Benefits,
		IsActive:     params.IsActive,
		ID:           planID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, fmt.Errorf("update membership plan: %w", err)
	}
	return planFromRow(row), nil
}

func (s *Service) Plan(ctx context.Context, planID int64) (Plan, error) {
	row, err := s.queries.GetMembershipPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, fmt.Errorf("get membership plan: %w", err)
	}
	return planFromRow(row), nil
}

func (s *Service) Plans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	rows, err := s.queries.ListMembershipPlans(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list membership plans: %w", err)
	}
	plans := make([]Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, planFromRow(row))
	}
	return plans, nil
}

// Assign gives userID the plan starting on startsOn. Only staff may assign.
func (s *Service) Assign(ctx context.Context, userID, planID int64, startsOn models.Date, actor models.Actor) (Membership, error) {
	if !actor.IsStaff {
		return Membership{}, apperr.Forbidden("only staff may assign memberships")
	}
	if startsOn.IsZero() {
		return Membership{}, apperr.Validation("starts_on", "required", "start date is required")
	}
	if _, err := s.queries.GetUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Membership{}, ErrUserNotFound
		}
		return Membership{}, fmt.Errorf("get user: %w", err)
	}
	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return Membership{}, err
	}
	if !plan.IsActive {
		return Membership{}, apperr.Validation("plan_id", "plan_inactive", "membership plan is not active")
	}

	endsOn := startsOn.AddDays(plan.DurationDays)
	row, err := s.queries.CreateUserMembership(ctx, dbgen.CreateUserMembershipParams{
		UserID:    userID,
		PlanID:    plan.ID,
		StartsOn:  startsOn.String(),
		EndsOn:    endsOn.String(),
		CreatedBy: sql.NullInt64{Int64: actor.UserID, Valid: actor.UserID > 0},
	})
	if err != nil {
		return Membership{}, fmt.Errorf("assign membership: %w", err)
	}

	log.Ctx(ctx).Info().
		Int64("membership_id", row.ID).
		Int64("user_id", userID).
		Int64("plan_id", plan.ID).
		Str("ends_on", row.EndsOn).
		Msg("Membership assigned")

	m := Membership{
		ID:        row.ID,
		UserID:    row.UserID,
		PlanID:    row.PlanID,
		PlanName:  plan.Name,
		PlanType:  plan.Type,
		StartsOn:  startsOn,
		EndsOn:    endsOn,
		CreatedAt: row.CreatedAt,
	}
	if row.CreatedBy.Valid {
		by := row.CreatedBy.Int64
		m.CreatedBy = &by
	}
	return m, nil
}

func (s *Service) UserMemberships(ctx context.Context, userID int64) ([]Membership, error) {
	rows, err := s.queries.ListUserMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	out := make([]Membership, 0, len(rows))
	for _, row := range rows {
		starts, err := models.ParseDate(row.StartsOn)
		if err != nil {
			return nil, err
		}
		ends, err := models.ParseDate(row.EndsOn)
		if err != nil {
			return nil, err
		}
		m := Membership{
			ID:        row.ID,
			UserID:    row.UserID,
			PlanID:    row.PlanID,
			PlanName:  row.PlanName,
			PlanType:  PlanType(row.PlanType),
			StartsOn:  starts,
			EndsOn:    ends,
			CreatedAt: row.CreatedAt,
		}
		if row.CreatedBy.Valid {
			by := row.CreatedBy.Int64
			m.CreatedBy = &by
		}
		out = append(out, m)
	}
	return out, nil
}

// ActiveOn returns the membership covering day, or false when none does.
func (s *Service) ActiveOn(ctx context.Context, userID int64, day models.Date) (Membership, bool, error) {
	row, err := s.queries.GetActiveUserMembership(ctx, dbgen.GetActiveUserMembershipParams{
		UserID: userID,
		OnDate: day.String(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Membership{}, false, nil
		}
		return Membership{}, false, fmt.Errorf("get active membership: %w", err)
	}
	starts, err := models.ParseDate(row.StartsOn)
	if err != nil {
		return Membership{}, false, err
	}
	ends, err := models.ParseDate(row.EndsOn)
	if err != nil {
		return Membership{}, false, err
	}
	return Membership{
		ID:        row.ID,
		UserID:    row.UserID,
		PlanID:    row.PlanID,
		StartsOn:  starts,
		EndsOn:    ends,
		CreatedAt: row.CreatedAt,
	}, true, nil
}

func planFromRow(row dbgen.MembershipPlan) Plan {
	return Plan{
		ID:           row.ID,
		Type:         PlanType(row.Type),
		Name:         row.Name,
		Price:        row.Price,
		DurationDays: int(row.DurationDays),
		Benefits:     row.Benefits,
		IsActive:     row.IsActive,
	}
}
