// Package booking implements the booking workflow on top of the store and the
// availability engine: browsing slots, taking requests, deciding them and
// reporting on them.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/availability"
	"ground-booking-backend/internal/events"
	"ground-booking-backend/internal/metrics"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/notification"
	"ground-booking-backend/internal/parse"
	"ground-booking-backend/internal/store"
)

// Notifier queues push notification jobs.
type Notifier interface {
	Dispatch(ctx context.Context, job notification.Job) bool
}

// Deps are the optional collaborators of a Service. Nil fields are replaced
// by no-ops.
type Deps struct {
	Publisher events.Publisher
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Service struct {
	store     store.Store
	catalogs  map[model.GroundType]availability.Catalog
	loc       *time.Location
	guard     bool
	payment   config.PaymentConfig
	publisher events.Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(st store.Store, cfg *config.BookingConfig, deps Deps) (*Service, error) {
	catalogs, err := CatalogsFrom(cfg.Grounds)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Service{
		store:     st,
		catalogs:  catalogs,
		loc:       loc,
		guard:     cfg.EnforceSlotGuard,
		payment:   cfg.Payment,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// CreateRequest is what a user submits to book a slot.
type CreateRequest struct {
	Ground           string
	Date             string
	TimeSlot         string
	Name             string
	Email            string
	Phone            string
	PaymentReference string
}

// ListFilter narrows the admin listing. Nil dates leave the range open.
type ListFilter struct {
	Status string
	From   *availability.Date
	To     *availability.Date
}

// Grounds returns every catalog in display order.
func (s *Service) Grounds() []availability.Catalog {
	out := make([]availability.Catalog, 0, len(model.GroundTypes))
	for _, g := range model.GroundTypes {
		out = append(out, s.catalogs[g])
	}
	return out
}

// Catalog returns the catalog of a ground given by name.
func (s *Service) Catalog(ground string) (availability.Catalog, error) {
	g, ok := model.ParseGroundType(ground)
	if !ok {
		return availability.Catalog{}, invalid("unknown ground %q", ground)
	}
	return s.catalogs[g], nil
}

// Today is the current calendar day in the booking timezone.
func (s *Service) Today() availability.Date {
	return availability.DateOf(s.now().In(s.loc))
}

// ParseDate parses a booking date in the booking timezone.
func (s *Service) ParseDate(raw string) (availability.Date, error) {
	t, err := parse.BookingDate(raw, s.loc)
	if err != nil {
		return availability.Date{}, invalid("invalid date %q", raw)
	}
	return availability.DateOf(t), nil
}

// Availability returns the slot board of a ground on one date.
func (s *Service) Availability(ctx context.Context, ground, date string) ([]availability.SlotView, error) {
	c, err := s.Catalog(ground)
	if err != nil {
		return nil, err
	}
	d, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, c)
	if err != nil {
		return nil, err
	}
	return snap.Board(d), nil
}

// Calendar returns the status of every day of a month ("YYYY-MM").
func (s *Service) Calendar(ctx context.Context, ground, month string) ([]availability.DayView, error) {
	c, err := s.Catalog(ground)
	if err != nil {
		return nil, err
	}
	first, err := parse.Month(month, s.loc)
	if err != nil {
		return nil, invalid("invalid month %q", month)
	}
	from := availability.DateOf(first)
	to := availability.DateOf(first.AddDate(0, 1, -1))

	snap, err := s.snapshot(ctx, c)
	if err != nil {
		return nil, err
	}
	return snap.Calendar(from, to), nil
}

func (s *Service) snapshot(ctx context.Context, c availability.Catalog) (*availability.Snapshot, error) {
	rows, err := s.store.ListByGround(ctx, c.Ground)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return availability.NewSnapshot(c, availability.FromBookings(rows, s.loc)), nil
}

// Create validates req and stores it as a pending booking for id.
func (s *Service) Create(ctx context.Context, id auth.Identity, req CreateRequest) (model.Booking, error) {
	c, err := s.Catalog(req.Ground)
	if err != nil {
		return model.Booking{}, err
	}
	d, err := s.ParseDate(req.Date)
	if err != nil {
		return model.Booking{}, err
	}
	if d.Before(s.Today()) {
		return model.Booking{}, invalid("date %s is in the past", d)
	}
	if !c.Has(req.TimeSlot) {
		return model.Booking{}, invalid("unknown time slot %q for %s", req.TimeSlot, c.Ground)
	}

	name, err := parse.Name(req.Name)
	if err != nil {
		return model.Booking{}, invalid("%v", err)
	}
	phone, err := parse.Phone(req.Phone)
	if err != nil {
		return model.Booking{}, invalid("%v", err)
	}
	email, err := s.bookingEmail(id, req.Email)
	if err != nil {
		return model.Booking{}, err
	}

	b := &model.Booking{
		GroundType:       c.Ground,
		Date:             d.String(),
		TimeSlot:         req.TimeSlot,
		Status:           model.StatusPending,
		Name:             name,
		Email:            email,
		Phone:            phone,
		PaymentMethod:    PaymentMethodUPI,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		UserID:           id.Subject,
	}

	var check store.CreateCheck
	if s.guard {
		check = func(active []model.Booking) error {
			records := availability.FromBookings(active, s.loc)
			if availability.ClassifySlot(c, d, req.TimeSlot, records) != availability.SlotAvailable {
				return ErrSlotUnavailable
			}
			return nil
		}
	}

	if err := s.store.Create(ctx, b, check); err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, store.ErrDuplicateSlot) {
			s.metrics.SlotConflict(string(c.Ground))
			return model.Booking{}, ErrSlotUnavailable
		}
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	log.Printf("Booking %s created: %s %s %q by %s", b.ID, b.GroundType, b.Date, b.TimeSlot, b.Email)
	s.metrics.BookingWritten(string(b.GroundType), string(b.Status))
	s.publish(ctx, events.KeyCreated, *b)
	return *b, nil
}

// bookingEmail is the identity's email. A submitted email must match it.
func (s *Service) bookingEmail(id auth.Identity, submitted string) (string, error) {
	email, err := parse.Email(id.Email)
	if err != nil {
		return "", invalid("account has no usable email")
	}
	if strings.TrimSpace(submitted) == "" {
		return email, nil
	}
	other, err := parse.Email(submitted)
	if err != nil {
		return "", invalid("%v", err)
	}
	if other != email {
		return "", invalid("email must match the signed-in account")
	}
	return email, nil
}

// History returns the caller's bookings, latest booking date first. status may
// be empty to include every status.
func (s *Service) History(ctx context.Context, id auth.Identity, status string) ([]model.Booking, error) {
	f := store.Filter{Email: id.Email}
	if status != "" {
		st, ok := model.ParseBookingStatus(status)
		if !ok {
			return nil, invalid("unknown status %q", status)
		}
		f.Status = st
	}
	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	// Rows are already newest-created first; a stable sort keeps that order
	// among bookings for the same day. Unparseable dates sink to the end.
	keys := make(map[string]availability.Date, len(rows))
	for _, r := range rows {
		if rec, ok := availability.FromBooking(r, s.loc); ok {
			keys[r.ID] = rec.Date
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return keys[rows[j].ID].Before(keys[rows[i].ID])
	})
	return rows, nil
}

// List returns bookings for the admin dashboard. When a date range is given,
// rows whose date cannot be read are left out.
func (s *Service) List(ctx context.Context, f ListFilter) ([]model.Booking, error) {
	var sf store.Filter
	if f.Status != "" {
		st, ok := model.ParseBookingStatus(f.Status)
		if !ok {
			return nil, invalid("unknown status %q", f.Status)
		}
		sf.Status = st
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid("date range ends before it starts")
	}

	rows, err := s.store.List(ctx, sf)
	if err != nil {
		return nil, err
	}
	if f.From == nil && f.To == nil {
		return rows, nil
	}

	out := rows[:0]
	for _, r := range rows {
		rec, ok := availability.FromBooking(r, s.loc)
		if !ok {
			continue
		}
		if f.From != nil && rec.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.Date.After(*f.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Decide approves or rejects a pending booking.
func (s *Service) Decide(ctx context.Context, bookingID, status string) (model.Booking, error) {
	to, ok := model.ParseBookingStatus(status)
	if !ok || to == model.StatusPending {
		return model.Booking{}, invalid("status must be approved or rejected")
	}

	b, err := s.store.UpdateStatus(ctx, bookingID, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Booking{}, ErrNotFound
	case errors.Is(err, store.ErrNotPending):
		return b, ErrInvalidTransition
	case err != nil:
		return model.Booking{}, err
	}

	log.Printf("Booking %s %s", b.ID, b.Status)
	s.metrics.BookingWritten(string(b.GroundType), string(b.Status))
	s.publish(ctx, events.KeyStatusChanged, b)
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notification.Job{Kind: notification.JobStatusDecided, BookingID: b.ID})
	}
	return b, nil
}

// Report aggregates every stored booking over the period ("day", "month" or
// "year") containing date. An empty date means today.
func (s *Service) Report(ctx context.Context, period, date string) (availability.Report, error) {
	g, ok := availability.ParseGranularity(period)
	if !ok {
		return availability.Report{}, invalid("period must be day, month or year")
	}
	anchor := s.Today()
	if date != "" {
		d, err := s.ParseDate(date)
		if err != nil {
			return availability.Report{}, err
		}
		anchor = d
	}

	rows, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return availability.Report{}, err
	}
	return availability.AggregateReport(availability.FromBookings(rows, s.loc), availability.Period{Granularity: g, Anchor: anchor}), nil
}

// PaymentLink returns the UPI link for a ground given by name.
func (s *Service) PaymentLink(ground string) (string, error) {
	c, err := s.Catalog(ground)
	if err != nil {
		return "", err
	}
	return PaymentLink(s.payment, c.Ground), nil
}

func (s *Service) publish(ctx context.Context, kind string, b model.Booking) {
	if err := s.publisher.Publish(ctx, events.FromBooking(kind, b, s.now())); err != nil {
		log.Printf("Warning: failed to publish %s for booking %s: %v", kind, b.ID, err)
	}
}
