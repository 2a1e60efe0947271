package memberships

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/testutil"
)

func premium() PlanParams {
	return PlanParams{
		Type:         "premium",
		Name:         "  Premium monthly ",
		Price:        decimal.RequireFromString("45.50"),
		DurationDays: 30,
		Benefits:     "Priority booking",
		IsActive:     true,
	}
}

func TestCreateAndUpdatePlan(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewService(database.Queries)
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, premium())
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.Type != PlanPremium || plan.Name != "Premium monthly" {
		t.Fatalf("expected normalised plan, got %+v", plan)
	}

	params := premium()
	params.IsActive = false
	updated, err := svc.UpdatePlan(ctx, plan.ID, params)
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if updated.IsActive {
		t.Fatalf("expected plan to be deactivated")
	}

	active, err := svc.Plans(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active plans, got %d", len(active))
	}
	all, err := svc.Plans(ctx, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(all))
	}

	if _, err := svc.UpdatePlan(ctx, 9999, premium()); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestPlanValidation(t *testing.T) {
	svc := NewService(testutil.NewTestDB(t).Queries)

	tests := []struct {
		name   string
		mutate func(*PlanParams)
		field  string
	}{
		{name: "bad type", mutate: func(p *PlanParams) { p.Type = "GOLD" }, field: "type"},
		{name: "missing name", mutate: func(p *PlanParams) { p.Name = " " }, field: "name"},
		{name: "zero duration", mutate: func(p *PlanParams) { p.DurationDays = 0 }, field: "duration_days"},
		{name: "negative price", mutate: func(p *PlanParams) { p.Price = decimal.RequireFromString("-1") }, field: "price"},
		{name: "fractional cents", mutate: func(p *PlanParams) { p.Price = decimal.RequireFromString("1.001") }, field: "price"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := premium()
			tc.mutate(&params)
			_, err := svc.CreatePlan(context.Background(), params)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if appErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, appErr.Field)
			}
		})
	}
}

func TestAssignMembership(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewService(database.Queries)
	ctx := context.Background()
	member := testutil.SeedUser(t, database, false)
	staff := testutil.SeedUser(t, database, true)
	staffActor := models.Actor{UserID: staff.ID, IsStaff: true}

	plan, err := svc.CreatePlan(ctx, premium())
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	start := models.MustDate("2030-03-01")

	if _, err := svc.Assign(ctx, member.ID, plan.ID, start, models.Actor{UserID: member.ID}); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden for members, got %v", err)
	}
	if _, err := svc.Assign(ctx, 9999, plan.ID, start, staffActor); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if _, err := svc.Assign(ctx, member.ID, 9999, start, staffActor); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected plan not found, got %v", err)
	}

	m, err := svc.Assign(ctx, member.ID, plan.ID, start, staffActor)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if m.EndsOn.String() != "2030-03-31" {
		t.Fatalf("expected membership to end 2030-03-31, got %s", m.EndsOn)
	}
	if m.CreatedBy == nil || *m.CreatedBy != staff.ID {
		t.Fatalf("expected created_by %d, got %v", staff.ID, m.CreatedBy)
	}

	list, err := svc.UserMemberships(ctx, member.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].PlanName != "Premium monthly" || list[0].PlanType != PlanPremium {
		t.Fatalf("unexpected memberships %+v", list)
	}

	if _, ok, err := svc.ActiveOn(ctx, member.ID, models.MustDate("2030-03-15")); err != nil || !ok {
		t.Fatalf("expected active membership mid-period, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := svc.ActiveOn(ctx, member.ID, models.MustDate("2030-03-31")); err != nil || ok {
		t.Fatalf("end date is exclusive, got ok=%v err=%v", ok, err)
	}
}

func TestAssignInactivePlan(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewService(database.Queries)
	ctx := context.Background()
	member := testutil.SeedUser(t, database, false)

	params := premium()
	params.IsActive = false
	plan, err := svc.CreatePlan(ctx, params)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	_, err = svc.Assign(ctx, member.ID, plan.ID, models.MustDate("2030-03-01"), models.Actor{IsStaff: true})
	if apperr.CodeOf(err) != "plan_inactive" {
		t.Fatalf("expected plan_inactive, got %v", err)
	}
}
