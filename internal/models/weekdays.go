package models

import (
	"encoding/json"
	"fmt"
)

// Weekdays is a bitset of ISO weekdays; bit (d-1) is set when day d is active.
type Weekdays uint8

const AllWeekdays Weekdays = 0x7F

func WeekdaysOf(days ...int) (Weekdays, error) {
	var w Weekdays
	for _, d := range days {
		if d < 1 || d > 7 {
			return 0, fmt.Errorf("weekday %d out of range 1-7", d)
		}
		w |= 1 << (d - 1)
	}
	return w, nil
}

func (w Weekdays) Has(isoWeekday int) bool {
	if isoWeekday < 1 || isoWeekday > 7 {
		return false
	}
	return w&(1<<(isoWeekday-1)) != 0
}

func (w Weekdays) Days() []int {
	days := make([]int, 0, 7)
	for d := 1; d <= 7; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Days())
}

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	parsed, err := WeekdaysOf(days...)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
