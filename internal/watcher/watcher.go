// Package watcher polls for pending bookings and queues an admin notification
// for every one it has not reported yet.
package watcher

import (
	"context"
	"log"
	"time"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/notification"
	"ground-booking-backend/internal/store"
)

// Dispatcher queues notification jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job notification.Job) bool
}

type Service struct {
	cfg        *config.WatcherConfig
	store      store.Store
	dispatcher Dispatcher

	primed bool
	seen   map[string]struct{}
}

func NewService(cfg *config.WatcherConfig, st store.Store, d Dispatcher) *Service {
	return &Service{
		cfg:        cfg,
		store:      st,
		dispatcher: d,
		seen:       make(map[string]struct{}),
	}
}

// Run polls until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Pending watcher is disabled. Not starting.")
		return
	}
	log.Println("Starting pending watcher...")

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Pending watcher shutting down.")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// PollOnce reads the current pending set and dispatches jobs for new ids. The
// seen set is rebuilt from each read, so decided bookings drop out of it and a
// failed read changes nothing. The first successful read only records what is
// already pending unless NotifyExisting is set. PollOnce must not be called
// concurrently.
func (s *Service) PollOnce(ctx context.Context) {
	rows, err := s.store.List(ctx, store.Filter{Status: model.StatusPending})
	if err != nil {
		log.Printf("Pending watcher: failed to list pending bookings: %v", err)
		return
	}

	current := make(map[string]struct{}, len(rows))
	var fresh []string
	for _, r := range rows {
		current[r.ID] = struct{}{}
		if _, ok := s.seen[r.ID]; !ok {
			fresh = append(fresh, r.ID)
		}
	}

	notify := s.primed || s.cfg.NotifyExisting
	s.seen = current
	s.primed = true

	if !notify {
		if len(fresh) > 0 {
			log.Printf("Pending watcher primed with %d pending bookings", len(fresh))
		}
		return
	}

	if len(fresh) > 0 {
		log.Printf("Dispatching notifications for %d new pending bookings", len(fresh))
	}
	for _, id := range fresh {
		s.dispatcher.Dispatch(ctx, notification.Job{Kind: notification.JobPendingCreated, BookingID: id})
	}
}
