package parse

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical layout for booking dates written by this service.
const DateLayout = "2006-01-02"

// MonthLayout is the layout accepted for calendar month queries.
const MonthLayout = "2006-01"

// Timestamps written by older clients carry a time of day. Only the date they
// fall on in the booking timezone matters.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

var localLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// BookingDate parses a stored or submitted booking date and returns midnight of
// that calendar day in loc.
func BookingDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return midnight(t, loc), nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t.In(loc), loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", raw)
}

// Month parses a YYYY-MM query value and returns the first day of that month in loc.
func Month(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse month: %q", raw)
	}
	return t, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
