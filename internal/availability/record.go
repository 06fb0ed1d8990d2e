package availability

import (
	"time"

	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/parse"
)

// Record is the engine's view of one booking. Ground and Status always hold
// recognised values; rows that do not are never turned into a Record.
type Record struct {
	ID     string
	Ground model.GroundType
	Date   Date
	Slot   string
	Status model.BookingStatus
}

// FromBooking converts a stored booking. ok is false when the ground type,
// status or date cannot be recognised.
func FromBooking(b model.Booking, loc *time.Location) (Record, bool) {
	ground, ok := model.ParseGroundType(string(b.GroundType))
	if !ok {
		return Record{}, false
	}
	status, ok := model.ParseBookingStatus(string(b.Status))
	if !ok {
		return Record{}, false
	}
	day, err := parse.BookingDate(b.Date, loc)
	if err != nil {
		return Record{}, false
	}
	return Record{
		ID:     b.ID,
		Ground: ground,
		Date:   DateOf(day),
		Slot:   b.TimeSlot,
		Status: status,
	}, true
}

// FromBookings converts a bulk read, silently dropping rows FromBooking rejects.
func FromBookings(rows []model.Booking, loc *time.Location) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if r, ok := FromBooking(row, loc); ok {
			records = append(records, r)
		}
	}
	return records
}
