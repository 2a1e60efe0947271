package availability

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/models"
)

// Rejection codes returned in apperr.Error.Code.
const (
	CodePastDate        = "past_date"
	CodePastTime        = "past_time"
	CodeInvalidRange    = "invalid_range"
	CodeCourtInactive   = "court_inactive"
	CodeNotOperatingDay = "not_operating_day"
	CodeOutsideHours    = "outside_operating_hours"
	CodeSlotBooked      = "slot_booked"
)

const (
	DefaultSlotDuration  = time.Hour
	minimumSlotIncrement = time.Minute
)

type Policy struct {
	// AllowEndPastClosing only checks the start against closing time when set.
	AllowEndPastClosing bool
	DefaultSlot         time.Duration
}

func DefaultPolicy() Policy {
	return Policy{DefaultSlot: DefaultSlotDuration}
}

// Moment is the club-local date and minute a request is judged against.
type Moment struct {
	Date models.Date
	Time models.TimeOfDay
}

type Request struct {
	Date  models.Date
	Start models.TimeOfDay
	End   models.TimeOfDay
}

type Slot struct {
	Start     models.TimeOfDay `json:"start"`
	End       models.TimeOfDay `json:"end"`
	Available bool             `json:"available"`
}

// ValidateRequest applies the calendar rules to a booking request. It does
// not look at other reservations. A slot on now's date that starts before
// now.Time has already begun and is rejected like a past date.
func ValidateRequest(court models.Court, req Request, now Moment, policy Policy) error {
	if req.Date.Before(now.Date) {
		return apperr.Validation("date", CodePastDate, "date is in the past")
	}
	if !req.End.After(req.Start) {
		return apperr.Validation("end_time", CodeInvalidRange, "end time must be after start time")
	}
	if !court.IsActive {
		return apperr.Validation("court_id", CodeCourtInactive, "court is not available for booking")
	}
	if !court.OperatesOn(req.Date) {
		return apperr.Validation("date", CodeNotOperatingDay, "court does not operate on this day")
	}
	if req.Start.Before(court.OpeningTime) || !req.Start.Before(court.ClosingTime) {
		return apperr.Validation("start_time", CodeOutsideHours, "start time is outside operating hours")
	}
	if !policy.AllowEndPastClosing && req.End.After(court.ClosingTime) {
		return apperr.Validation("end_time", CodeOutsideHours, "end time is after closing time")
	}
	if req.Date.Equal(now.Date) && req.Start.Before(now.Time) {
		return apperr.Validation("start_time", CodePastTime, "start time has already passed")
	}
	return nil
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd models.TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// FindConflict returns the first reservation that blocks the requested interval.
func FindConflict(req Request, existing []models.Reservation) (models.Reservation, bool) {
	for _, r := range existing {
		if !r.Status.Blocks() || !r.Date.Equal(req.Date) {
			continue
		}
		if Overlaps(req.Start, req.End, r.StartTime, r.EndTime) {
			return r, true
		}
	}
	return models.Reservation{}, false
}

// CheckConflict wraps FindConflict as a ConflictError.
func CheckConflict(req Request, existing []models.Reservation) error {
	if r, ok := FindConflict(req, existing); ok {
		return &apperr.Error{
			Kind:    apperr.KindConflict,
			Code:    CodeSlotBooked,
			Message: "slot already booked (" + r.StartTime.String() + "-" + r.EndTime.String() + ")",
		}
	}
	return nil
}

// BuildSlots partitions the court's operating window into duration-long
// slots starting at opening time. Only slots ending at or before closing are
// produced. Slots starting before notBefore are marked unavailable.
func BuildSlots(court models.Court, date models.Date, duration time.Duration, existing []models.Reservation, notBefore models.TimeOfDay) []Slot {
	if duration < minimumSlotIncrement {
		duration = DefaultSlotDuration
	}
	step := models.TimeOfDay(duration / time.Minute)

	var slots []Slot
	for start := court.OpeningTime; start+step <= court.ClosingTime; start += step {
		end := start + step
		available := start >= notBefore
		if available {
			_, booked := FindConflict(Request{Date: date, Start: start, End: end}, existing)
			available = !booked
		}
		slots = append(slots, Slot{Start: start, End: end, Available: available})
	}
	return slots
}

// PriceFor charges the court's hourly rate pro rata, rounded to cents.
func PriceFor(court models.Court, start, end models.TimeOfDay) decimal.Decimal {
	minutes := decimal.NewFromInt(int64(end - start))
	return court.PricePerHour.Mul(minutes).Div(decimal.NewFromInt(60)).Round(2)
}
