package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/availability"
	"ground-booking-backend/internal/booking"
	"ground-booking-backend/internal/db"
	"ground-booking-backend/internal/events"
	"ground-booking-backend/internal/feed"
	"ground-booking-backend/internal/metrics"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/notification"
	"ground-booking-backend/internal/store"
	"ground-booking-backend/internal/watcher"
)

const footballMorning = "07:00 AM - 10:00 AM"

type delivery struct {
	endpoint string
	payload  notification.Payload
}

// channelSender records each push instead of sending it.
type channelSender struct {
	deliveries chan delivery
}

func (s *channelSender) Send(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
	var p notification.Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	s.deliveries <- delivery{endpoint: sub.Endpoint, payload: p}
	return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(bytes.NewBufferString(""))}, nil
}

func expectDelivery(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a push notification")
		return delivery{}
	}
}

func expectNoDelivery(t *testing.T, ch <-chan delivery) {
	t.Helper()
	select {
	case d := <-ch:
		t.Fatalf("unexpected push notification to %s", d.endpoint)
	case <-time.After(100 * time.Millisecond):
	}
}

func statusOf(board []availability.SlotView, slot string) availability.SlotStatus {
	for _, v := range board {
		if v.Slot == slot {
			return v.Status
		}
	}
	return ""
}

// TestBookingLifecycle follows one booking from request through admin review,
// checking the slot board, the watcher and both push notifications.
func TestBookingLifecycle(t *testing.T) {
	// --- Test Setup ---
	testDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err, "Failed to initialize the in-memory database")
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(testDB)
	require.NoError(t, appStore.SaveSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/admin", P256DH: "k", Auth: "a", Email: "admin@example.com", Role: model.RoleAdmin,
	}))
	require.NoError(t, appStore.SaveSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/asha", P256DH: "k", Auth: "a", Email: "asha@example.com", Role: model.RoleUser,
	}))

	sender := &channelSender{deliveries: make(chan delivery, 8)}
	collector := metrics.New()
	pool := notification.NewWorkerPool(1, appStore, &webpush.Options{}, collector)
	pool.SetSender(sender)
	pool.Start(ctx)

	hub := feed.NewHub()
	defer hub.Close()

	svc, err := booking.NewService(appStore, &config.BookingConfig{EnforceSlotGuard: true}, booking.Deps{
		Publisher: events.Fanout{hub},
		Notifier:  pool,
		Metrics:   collector,
	})
	require.NoError(t, err)

	pending := watcher.NewService(&config.WatcherConfig{Enabled: true, Interval: time.Second}, appStore, pool)
	pending.PollOnce(ctx) // primes on an empty table

	date := svc.Today().AddDays(1).String()
	asha := auth.Identity{Subject: "u-asha", Email: "asha@example.com", Role: "user"}
	ravi := auth.Identity{Subject: "u-ravi", Email: "ravi@example.com", Role: "user"}

	var created model.Booking
	t.Run("Request is stored as pending", func(t *testing.T) {
		created, err = svc.Create(ctx, asha, booking.CreateRequest{
			Ground: "football", Date: date, TimeSlot: footballMorning, Name: "Asha", Phone: "9876543210",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, model.StatusPending, created.Status)

		board, err := svc.Availability(ctx, "football", date)
		require.NoError(t, err)
		assert.Equal(t, availability.SlotPending, statusOf(board, footballMorning))
		assert.Equal(t, availability.SlotPending, statusOf(board, "08:00 AM - 05:00 PM (Full Day)"))
	})

	t.Run("Watcher notifies admins once", func(t *testing.T) {
		pending.PollOnce(ctx)
		d := expectDelivery(t, sender.deliveries)
		assert.Equal(t, "https://push.example/admin", d.endpoint)
		assert.Equal(t, created.ID, d.payload.Data.BookingID)
		assert.Equal(t, string(notification.JobPendingCreated), d.payload.Data.Kind)

		pending.PollOnce(ctx)
		expectNoDelivery(t, sender.deliveries)
	})

	t.Run("Overlapping request is refused", func(t *testing.T) {
		_, err := svc.Create(ctx, ravi, booking.CreateRequest{
			Ground: "football", Date: date, TimeSlot: "08:00 AM - 05:00 PM (Full Day)", Name: "Ravi", Phone: "9123456780",
		})
		assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
	})

	t.Run("Approval notifies the booker", func(t *testing.T) {
		decided, err := svc.Decide(ctx, created.ID, "approved")
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, decided.Status)

		d := expectDelivery(t, sender.deliveries)
		assert.Equal(t, "https://push.example/asha", d.endpoint)
		assert.Equal(t, string(notification.JobStatusDecided), d.payload.Data.Kind)

		board, err := svc.Availability(ctx, "football", date)
		require.NoError(t, err)
		assert.Equal(t, availability.SlotBooked, statusOf(board, footballMorning))
		assert.Equal(t, availability.SlotAvailable, statusOf(board, "10:00 AM - 01:00 PM"))

		_, err = svc.Decide(ctx, created.ID, "rejected")
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("History and report reflect the decision", func(t *testing.T) {
		history, err := svc.History(ctx, asha, "")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, model.StatusApproved, history[0].Status)

		report, err := svc.Report(ctx, "day", date)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Total)
		assert.Equal(t, 1, report.Approved)
		assert.Equal(t, 1, report.Football)

		pending.PollOnce(ctx)
		expectNoDelivery(t, sender.deliveries)
	})
}
