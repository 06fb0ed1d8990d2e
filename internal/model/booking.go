package model

import (
	"strings"
	"time"
)

// GroundType is the sport category a booking applies to.
type GroundType string

const (
	GroundCricket  GroundType = "cricket"
	GroundFootball GroundType = "football"
)

// GroundTypes lists every known ground in display order.
var GroundTypes = []GroundType{GroundCricket, GroundFootball}

// ParseGroundType matches a ground label case-insensitively.
func ParseGroundType(raw string) (GroundType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(GroundCricket):
		return GroundCricket, true
	case string(GroundFootball):
		return GroundFootball, true
	}
	return "", false
}

// Title returns the display name used in payment notes and notifications.
func (g GroundType) Title() string {
	switch g {
	case GroundCricket:
		return "Cricket Ground"
	case GroundFootball:
		return "Football Ground"
	}
	return string(g)
}

// BookingStatus is the review state of a booking.
type BookingStatus string

const (
	StatusPending  BookingStatus = "pending"
	StatusApproved BookingStatus = "approved"
	StatusRejected BookingStatus = "rejected"
)

// ParseBookingStatus matches a status label case-insensitively.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusPending):
		return StatusPending, true
	case string(StatusApproved):
		return StatusApproved, true
	case string(StatusRejected):
		return StatusRejected, true
	}
	return "", false
}

// Booking is a ground reservation as stored by the directory.
// GroundType, Status and Date are kept as raw columns so rows written by older
// clients still load; consumers validate them before use.
type Booking struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	GroundType       GroundType    `gorm:"size:32;not null;index:idx_bookings_ground_date" json:"groundType"`
	Date             string        `gorm:"size:40;not null;index:idx_bookings_ground_date" json:"date"`
	TimeSlot         string        `gorm:"size:64;not null" json:"timeSlot"`
	Status           BookingStatus `gorm:"size:16;not null;index" json:"status"`
	Name             string        `gorm:"size:128;not null" json:"name"`
	Email            string        `gorm:"size:256;not null;index" json:"email"`
	Phone            string        `gorm:"size:32;not null" json:"phone"`
	PaymentMethod    string        `gorm:"size:16;not null" json:"paymentMethod"`
	PaymentReference string        `gorm:"size:128" json:"paymentReference,omitempty"`
	UserID           string        `gorm:"size:128;index" json:"userId"`
	CreatedAt        time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updatedAt"`
}
