package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/notification"
	"ground-booking-backend/internal/store"
)

// mockStore serves List from ListFunc; every other method panics.
type mockStore struct {
	store.Store
	ListFunc func(ctx context.Context, f store.Filter) ([]model.Booking, error)
}

func (m *mockStore) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	return m.ListFunc(ctx, f)
}

type recordingDispatcher struct {
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job notification.Job) bool {
	if job.Kind == notification.JobPendingCreated {
		d.ids = append(d.ids, job.BookingID)
	}
	return true
}

func pending(ids ...string) []model.Booking {
	rows := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.Booking{ID: id, Status: model.StatusPending})
	}
	return rows
}

func TestPollOnce_DispatchesEachPendingIDOnce(t *testing.T) {
	reads := [][]model.Booking{
		pending("a", "b"),
		pending("a", "b", "c"),
		pending("c", "d"),
		nil,
		pending("a"),
	}
	var call int
	st := &mockStore{ListFunc: func(_ context.Context, f store.Filter) ([]model.Booking, error) {
		assert.Equal(t, model.StatusPending, f.Status)
		rows := reads[call]
		call++
		return rows, nil
	}}
	d := &recordingDispatcher{}
	w := NewService(&config.WatcherConfig{Enabled: true}, st, d)

	w.PollOnce(context.Background())
	assert.Empty(t, d.ids, "first read only primes")

	w.PollOnce(context.Background())
	assert.Equal(t, []string{"c"}, d.ids)

	w.PollOnce(context.Background())
	assert.Equal(t, []string{"c", "d"}, d.ids)

	w.PollOnce(context.Background())
	w.PollOnce(context.Background())
	assert.Equal(t, []string{"c", "d", "a"}, d.ids, "an id that left the pending set and came back is new again")
}

func TestPollOnce_NotifyExisting(t *testing.T) {
	st := &mockStore{ListFunc: func(context.Context, store.Filter) ([]model.Booking, error) {
		return pending("a", "b"), nil
	}}
	d := &recordingDispatcher{}
	w := NewService(&config.WatcherConfig{NotifyExisting: true}, st, d)

	w.PollOnce(context.Background())
	w.PollOnce(context.Background())
	assert.Equal(t, []string{"a", "b"}, d.ids)
}

func TestPollOnce_ReadErrorKeepsState(t *testing.T) {
	fail := false
	st := &mockStore{ListFunc: func(context.Context, store.Filter) ([]model.Booking, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return pending("a"), nil
	}}
	d := &recordingDispatcher{}
	w := NewService(&config.WatcherConfig{}, st, d)

	w.PollOnce(context.Background())
	fail = true
	w.PollOnce(context.Background())
	fail = false
	w.PollOnce(context.Background())

	assert.Empty(t, d.ids)
}

func TestRun_StopsOnCancel(t *testing.T) {
	polled := make(chan struct{}, 16)
	st := &mockStore{ListFunc: func(context.Context, store.Filter) ([]model.Booking, error) {
		polled <- struct{}{}
		return nil, nil
	}}
	w := NewService(&config.WatcherConfig{Enabled: true, Interval: 10 * time.Millisecond}, st, &recordingDispatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	<-polled
	<-polled
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_Disabled(t *testing.T) {
	w := NewService(&config.WatcherConfig{Enabled: false}, &mockStore{}, &recordingDispatcher{})
	w.Run(context.Background())
}
