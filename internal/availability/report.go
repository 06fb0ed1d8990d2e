package availability

import (
	"strings"

	"ground-booking-backend/internal/model"
)

// Granularity is the calendar unit a report covers.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ParseGranularity matches day, month or year case-insensitively.
func ParseGranularity(raw string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(raw))); g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return g, true
	}
	return "", false
}

// Period is the calendar day, month or year containing Anchor.
type Period struct {
	Granularity Granularity
	Anchor      Date
}

// Contains reports whether d falls in the same calendar unit as the anchor.
func (p Period) Contains(d Date) bool {
	switch p.Granularity {
	case GranularityYear:
		return d.Year == p.Anchor.Year
	case GranularityMonth:
		return d.Year == p.Anchor.Year && d.Month == p.Anchor.Month
	case GranularityDay:
		return d == p.Anchor
	}
	return false
}

// Report holds booking counts for one period.
type Report struct {
	Total    int `json:"totalCount"`
	Approved int `json:"approvedCount"`
	Rejected int `json:"rejectedCount"`
	Pending  int `json:"pendingCount"`
	Cricket  int `json:"cricketCount"`
	Football int `json:"footballCount"`
}

// AggregateReport counts every record dated inside p exactly once.
func AggregateReport(records []Record, p Period) Report {
	var r Report
	for _, rec := range records {
		if !p.Contains(rec.Date) {
			continue
		}
		r.Total++

		switch rec.Status {
		case model.StatusApproved:
			r.Approved++
		case model.StatusRejected:
			r.Rejected++
		case model.StatusPending:
			r.Pending++
		}

		switch rec.Ground {
		case model.GroundCricket:
			r.Cricket++
		case model.GroundFootball:
			r.Football++
		}
	}
	return r
}
