// Package events carries booking changes to interested listeners: the message
// broker for other services and the live admin feed.
package events

import (
	"context"
	"errors"
	"time"

	"ground-booking-backend/internal/model"
)

// Routing keys published on the booking exchange.
const (
	KeyCreated       = "booking.created"
	KeyStatusChanged = "booking.status_changed"
)

// Event is one booking change.
type Event struct {
	Type       string        `json:"type"`
	BookingID  string        `json:"bookingId"`
	GroundType string        `json:"groundType"`
	Date       string        `json:"date"`
	TimeSlot   string        `json:"timeSlot"`
	Status     string        `json:"status"`
	OccurredAt time.Time     `json:"occurredAt"`
	Booking    model.Booking `json:"-"`
}

// FromBooking builds the event of the given type for b.
func FromBooking(kind string, b model.Booking, now time.Time) Event {
	return Event{
		Type:       kind,
		BookingID:  b.ID,
		GroundType: string(b.GroundType),
		Date:       b.Date,
		TimeSlot:   b.TimeSlot,
		Status:     string(b.Status),
		OccurredAt: now,
		Booking:    b,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every wrapped publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
