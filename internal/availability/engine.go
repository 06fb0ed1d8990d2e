package availability

import "ground-booking-backend/internal/model"

// SlotStatus is how a single (date, slot) pair is shown to someone booking.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotBooked    SlotStatus = "booked"
)

// DateStatus is the whole-day marking used by the calendar.
type DateStatus string

const (
	DateNormal      DateStatus = "normal"
	DateFullyBooked DateStatus = "fully_booked"
	DateHasPending  DateStatus = "has_pending"
)

// severity orders statuses for conflict resolution: approved beats pending
// beats rejected or no booking at all.
type severity int

const (
	sevNone severity = iota
	sevPending
	sevApproved
)

func severityOf(s model.BookingStatus) severity {
	switch s {
	case model.StatusApproved:
		return sevApproved
	case model.StatusPending:
		return sevPending
	}
	return sevNone
}

func (s severity) slotStatus() SlotStatus {
	switch s {
	case sevApproved:
		return SlotBooked
	case sevPending:
		return SlotPending
	}
	return SlotAvailable
}

func maxSeverity(a, b severity) severity {
	if a > b {
		return a
	}
	return b
}

type slotMarks struct {
	approved bool
	pending  bool
}

func (m slotMarks) severity() severity {
	switch {
	case m.approved:
		return sevApproved
	case m.pending:
		return sevPending
	}
	return sevNone
}

// Snapshot indexes one bulk read of bookings for a single ground. It is built
// once and never modified; callers build a new one whenever they re-read.
type Snapshot struct {
	catalog Catalog
	days    map[Date]map[string]slotMarks
}

// NewSnapshot indexes records belonging to c.Ground. Records for other grounds
// are ignored.
func NewSnapshot(c Catalog, records []Record) *Snapshot {
	days := make(map[Date]map[string]slotMarks)
	for _, r := range records {
		if r.Ground != c.Ground {
			continue
		}
		sev := severityOf(r.Status)
		if sev == sevNone {
			continue
		}
		day, ok := days[r.Date]
		if !ok {
			day = make(map[string]slotMarks)
			days[r.Date] = day
		}
		marks := day[r.Slot]
		if sev == sevApproved {
			marks.approved = true
		} else {
			marks.pending = true
		}
		day[r.Slot] = marks
	}
	return &Snapshot{catalog: c, days: days}
}

func (s *Snapshot) raw(d Date, slot string) severity {
	return s.days[d][slot].severity()
}

// Slot classifies one slot on one date. On grounds with a full-day slot the
// full-day slot and the sub-day slots block each other, so each takes the
// highest severity found across the slots it overlaps.
func (s *Snapshot) Slot(d Date, slot string) SlotStatus {
	sev := s.raw(d, slot)
	c := s.catalog
	if c.FullDay == "" {
		return sev.slotStatus()
	}

	switch {
	case slot == c.FullDay:
		for _, sub := range c.Slots {
			sev = maxSeverity(sev, s.raw(d, sub))
		}
	case c.isSub(slot):
		sev = maxSeverity(sev, s.raw(d, c.FullDay))
	}
	return sev.slotStatus()
}

// Date classifies a whole day. Only approved bookings can make a day fully
// booked; pending ones at most flag it.
func (s *Snapshot) Date(d Date) DateStatus {
	day := s.days[d]
	c := s.catalog

	if c.FullDay != "" && day[c.FullDay].approved {
		return DateFullyBooked
	}
	if len(c.Slots) > 0 {
		covered := true
		for _, sub := range c.Slots {
			if !day[sub].approved {
				covered = false
				break
			}
		}
		if covered {
			return DateFullyBooked
		}
	}

	for _, slot := range c.All() {
		if day[slot].pending {
			return DateHasPending
		}
	}
	return DateNormal
}

// SlotView is one row of a slot board.
type SlotView struct {
	Slot    string     `json:"slot"`
	Status  SlotStatus `json:"status"`
	FullDay bool       `json:"fullDay"`
}

// Board classifies every catalog slot on d.
func (s *Snapshot) Board(d Date) []SlotView {
	all := s.catalog.All()
	board := make([]SlotView, 0, len(all))
	for _, slot := range all {
		board = append(board, SlotView{
			Slot:    slot,
			Status:  s.Slot(d, slot),
			FullDay: slot == s.catalog.FullDay,
		})
	}
	return board
}

// DayView is one entry of a calendar.
type DayView struct {
	Date   string     `json:"date"`
	Status DateStatus `json:"status"`
}

// Calendar classifies every date from from to to inclusive.
func (s *Snapshot) Calendar(from, to Date) []DayView {
	var days []DayView
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, DayView{Date: d.String(), Status: s.Date(d)})
	}
	return days
}

// ClassifySlot classifies a single slot from a record set.
func ClassifySlot(c Catalog, d Date, slot string, records []Record) SlotStatus {
	return NewSnapshot(c, records).Slot(d, slot)
}

// ClassifyDate classifies a whole day from a record set.
func ClassifyDate(c Catalog, d Date, records []Record) DateStatus {
	return NewSnapshot(c, records).Date(d)
}
