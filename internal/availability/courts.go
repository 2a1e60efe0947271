package availability

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/models"
)

type CourtParams struct {
	Name           string
	OpeningTime    models.TimeOfDay
	ClosingTime    models.TimeOfDay
	ActiveWeekdays models.Weekdays
	IsActive       bool
	PricePerHour   decimal.Decimal
}

func (p CourtParams) court(id int64) models.Court {
	return models.Court{
		ID:             id,
		Name:           p.Name,
		OpeningTime:    p.OpeningTime,
		ClosingTime:    p.ClosingTime,
		ActiveWeekdays: p.ActiveWeekdays,
		IsActive:       p.IsActive,
		PricePerHour:   p.PricePerHour,
	}
}

func (e *Engine) CreateCourt(ctx context.Context, params CourtParams) (models.Court, error) {
	court := params.court(0)
	if err := court.Validate(); err != nil {
		return models.Court{}, apperr.Validation("court", "invalid_court", err.Error())
	}
	row, err := e.db.Queries.CreateCourt(ctx, dbgen.CreateCourtParams{
		Name:           court.Name,
		OpeningTime:    court.OpeningTime.String(),
		ClosingTime:    court.ClosingTime.String(),
		ActiveWeekdays: int64(court.ActiveWeekdays),
		IsActive:       court.IsActive,
		PricePerHour:   court.PricePerHour,
	})
	if err != nil {
		return models.Court{}, fmt.Errorf("create court: %w", err)
	}
	e.logger.Info().Int64("court_id", row.ID).Str("name", row.Name).Msg("Court created")
	return models.CourtFromRow(row)
}

// UpdateCourt replaces the court's calendar. Existing reservations are kept
// even when they fall outside the new hours.
func (e *Engine) UpdateCourt(ctx context.Context, courtID int64, params CourtParams) (models.Court, error) {
	court := params.court(courtID)
	if err := court.Validate(); err != nil {
		return models.Court{}, apperr.Validation("court", "invalid_court", err.Error())
	}
	if _, err := loadCourt(ctx, e.db.Queries, courtID); err != nil {
		return models.Court{}, err
	}
	row, err := e.db.Queries.UpdateCourt(ctx, dbgen.UpdateCourtParams{
		Name:           court.Name,
		OpeningTime:    court.OpeningTime.String(),
		ClosingTime:    court.ClosingTime.String(),
		ActiveWeekdays: int64(court.ActiveWeekdays),
		IsActive:       court.IsActive,
		PricePerHour:   court.PricePerHour,
		ID:             courtID,
	})
	if err != nil {
		return models.Court{}, fmt.Errorf("update court: %w", err)
	}
	return models.CourtFromRow(row)
}

func (e *Engine) Court(ctx context.Context, courtID int64) (models.Court, error) {
	return loadCourt(ctx, e.db.Queries, courtID)
}

func (e *Engine) Courts(ctx context.Context, activeOnly bool) ([]models.Court, error) {
	var (
		rows []dbgen.Court
		err  error
	)
	if activeOnly {
		rows, err = e.db.Queries.ListActiveCourts(ctx)
	} else {
		rows, err = e.db.Queries.ListCourts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	courts := make([]models.Court, 0, len(rows))
	for _, row := range rows {
		c, err := models.CourtFromRow(row)
		if err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, nil
}
