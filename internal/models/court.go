package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

type Court struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	OpeningTime    TimeOfDay       `json:"opening_time"`
	ClosingTime    TimeOfDay       `json:"closing_time"`
	ActiveWeekdays Weekdays        `json:"active_weekdays"`
	IsActive       bool            `json:"is_active"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
}

func CourtFromRow(row dbgen.Court) (Court, error) {
	opening, err := ParseTimeOfDay(row.OpeningTime)
	if err != nil {
		return Court{}, fmt.Errorf("court %d opening time: %w", row.ID, err)
	}
	closing, err := ParseTimeOfDay(row.ClosingTime)
	if err != nil {
		return Court{}, fmt.Errorf("court %d closing time: %w", row.ID, err)
	}
	return Court{
		ID:             row.ID,
		Name:           row.Name,
		OpeningTime:    opening,
		ClosingTime:    closing,
		ActiveWeekdays: Weekdays(row.ActiveWeekdays),
		IsActive:       row.IsActive,
		PricePerHour:   row.PricePerHour,
	}, nil
}

// Validate checks the court's own invariants.
func (c Court) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("court name is required")
	}
	if !c.OpeningTime.Before(c.ClosingTime) {
		return fmt.Errorf("opening time %s must be before closing time %s", c.OpeningTime, c.ClosingTime)
	}
	if c.ActiveWeekdays&^AllWeekdays != 0 {
		return fmt.Errorf("active weekdays out of range")
	}
	if c.PricePerHour.IsNegative() {
		return fmt.Errorf("price per hour must not be negative")
	}
	if !c.PricePerHour.Equal(c.PricePerHour.Round(2)) {
		return fmt.Errorf("price per hour supports at most 2 decimal places")
	}
	return nil
}

func (c Court) OperatesOn(d Date) bool {
	return c.ActiveWeekdays.Has(d.ISOWeekday())
}
