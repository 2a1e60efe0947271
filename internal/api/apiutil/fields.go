package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/Padelicious/internal/models"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

// PathID parses a positive integer path value such as {id}.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

// QueryDate parses a required YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, key string) (models.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return models.Date{}, FieldError{Field: key, Reason: "is required"}
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, FieldError{Field: key, Reason: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// QueryTime parses a required HH:MM query parameter.
func QueryTime(r *http.Request, key string) (models.TimeOfDay, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, FieldError{Field: key, Reason: "is required"}
	}
	t, err := models.ParseTimeOfDay(raw)
	if err != nil {
		return 0, FieldError{Field: key, Reason: "must be HH:MM"}
	}
	return t, nil
}

// QueryMinutes parses an optional duration in minutes. Zero means unset.
func QueryMinutes(r *http.Request, key string) (time.Duration, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, FieldError{Field: key, Reason: fmt.Sprintf("must be a positive number of minutes, got %q", raw)}
	}
	return time.Duration(minutes) * time.Minute, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, key string, fallback bool) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
