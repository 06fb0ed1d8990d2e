package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"ground-booking-backend/internal/metrics"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/store"
)

// JobKind selects who is notified about a booking.
type JobKind string

const (
	// JobPendingCreated notifies admins about a booking awaiting review.
	JobPendingCreated JobKind = "pending_created"
	// JobStatusDecided notifies the booker that their booking was decided.
	JobStatusDecided JobKind = "status_decided"
)

// Job is one unit of notification work.
type Job struct {
	Kind      JobKind
	BookingID string
}

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  PayloadData `json:"data"`
}

type PayloadData struct {
	BookingID string `json:"bookingId"`
	Kind      string `json:"kind"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, m *metrics.Metrics) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			log.Printf("Worker %d processing %s for booking %s", id, job.Kind, job.BookingID)
			wp.process(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job. It blocks while the queue is full and gives up when
// ctx is done, reporting whether the job was queued.
func (wp *WorkerPool) Dispatch(ctx context.Context, job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-ctx.Done():
		log.Printf("Dropping %s notification for booking %s: %v", job.Kind, job.BookingID, ctx.Err())
		return false
	}
}

// SetSender replaces the push transport. It must be called before Start.
func (wp *WorkerPool) SetSender(s NotificationSender) {
	wp.sender = s
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) process(ctx context.Context, job Job) {
	booking, err := wp.store.Get(ctx, job.BookingID)
	if err != nil {
		log.Printf("Error loading booking %s: %v", job.BookingID, err)
		return
	}

	var subs []model.PushSubscription
	switch job.Kind {
	case JobPendingCreated:
		subs, err = wp.store.Subscriptions(ctx, model.RoleAdmin, "")
	case JobStatusDecided:
		subs, err = wp.store.Subscriptions(ctx, model.RoleUser, booking.Email)
	default:
		log.Printf("Unknown notification job kind %q", job.Kind)
		return
	}
	if err != nil {
		log.Printf("Error fetching subscriptions for booking %s: %v", job.BookingID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(buildPayload(job.Kind, booking))
	if err != nil {
		log.Printf("Error encoding notification for booking %s: %v", job.BookingID, err)
		return
	}

	log.Printf("Sending %d notifications for booking %s", len(subs), job.BookingID)
	for _, sub := range subs {
		wp.sendNotification(ctx, job.Kind, sub, payload)
	}
}

func buildPayload(kind JobKind, b model.Booking) Payload {
	p := Payload{Data: PayloadData{BookingID: b.ID, Kind: string(kind)}}
	switch kind {
	case JobPendingCreated:
		p.Title = "New booking request"
		p.Body = fmt.Sprintf("%s requested %s on %s (%s)", b.Name, b.GroundType.Title(), b.Date, b.TimeSlot)
	case JobStatusDecided:
		p.Title = fmt.Sprintf("Booking %s", b.Status)
		p.Body = fmt.Sprintf("Your %s booking on %s (%s) was %s", b.GroundType.Title(), b.Date, b.TimeSlot, b.Status)
	}
	return p
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, kind JobKind, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		wp.metrics.Notification(string(kind), "failed")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		wp.metrics.Notification(string(kind), "expired")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	wp.metrics.Notification(string(kind), "sent")
}
