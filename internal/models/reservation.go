package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	dbgen "github.com/codr1/Padelicious/internal/db/generated"
)

type Reservation struct {
	ID          int64             `json:"id"`
	CourtID     int64             `json:"court_id"`
	UserID      int64             `json:"user_id"`
	Date        Date              `json:"date"`
	StartTime   TimeOfDay         `json:"start_time"`
	EndTime     TimeOfDay         `json:"end_time"`
	Status      ReservationStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func ReservationFromRow(row dbgen.Reservation) (Reservation, error) {
	date, err := ParseDate(row.Date)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d: %w", row.ID, err)
	}
	start, err := ParseTimeOfDay(row.StartTime)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d start: %w", row.ID, err)
	}
	end, err := ParseTimeOfDay(row.EndTime)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d end: %w", row.ID, err)
	}
	status, err := ParseReservationStatus(row.Status)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %d: %w", row.ID, err)
	}
	return Reservation{
		ID:          row.ID,
		CourtID:     row.CourtID,
		UserID:      row.UserID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		TotalAmount: row.TotalAmount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func ReservationsFromRows(rows []dbgen.Reservation) ([]Reservation, error) {
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		r, err := ReservationFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
