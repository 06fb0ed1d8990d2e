package store

import (
	"errors"

	"ground-booking-backend/internal/model"
)

var (
	// ErrNotFound is returned when a booking or subscription id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotPending is returned when a status change targets a booking that
	// has already been decided.
	ErrNotPending = errors.New("booking is not pending")
	// ErrDuplicateSlot is returned when the database rejects a second active
	// booking for the same ground, date and slot.
	ErrDuplicateSlot = errors.New("slot already has an active booking")
)

// Filter narrows a booking listing. Zero fields match everything.
type Filter struct {
	Status model.BookingStatus
	Ground model.GroundType
	Email  string
}

// CreateCheck inspects the active bookings of the new booking's ground inside
// the create transaction and returns an error to abort the insert.
type CreateCheck func(active []model.Booking) error

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []string{string(model.StatusPending), string(model.StatusApproved)}
