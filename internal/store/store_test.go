package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ground-booking-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a private in-memory database with the service schema.
func newSQLiteDB(t *testing.T) *gorm.DB {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.Booking{}, &model.PushSubscription{}))
	return gormDB
}

func booking(ground model.GroundType, date, slot string, status model.BookingStatus, email string) *model.Booking {
	return &model.Booking{
		GroundType:    ground,
		Date:          date,
		TimeSlot:      slot,
		Status:        status,
		Name:          "Asha",
		Email:         email,
		Phone:         "9876543210",
		PaymentMethod: "upi",
	}
}

func TestGormStore_UpdateStatus(t *testing.T) {
	cols := []string{"id", "ground_type", "date", "time_slot", "status", "email"}

	testCases := []struct {
		name             string
		id               string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedStatus   model.BookingStatus
		expectedErr      error
	}{
		{
			name: "Pending booking is approved",
			id:   "b-1",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET "status"=$1,"updated_at"=$2 WHERE id = $3 AND LOWER(status) = $4`)).
					WithArgs(Any{}, Any{}, "b-1", "pending").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings" WHERE id = $1`)).
					WithArgs("b-1", 1).
					WillReturnRows(sqlmock.NewRows(cols).AddRow("b-1", "cricket", "2024-06-01", "09:00 AM - 05:00 PM", "approved", "a@b.co"))
			},
			expectedStatus: model.StatusApproved,
		},
		{
			name: "Already decided booking is left alone",
			id:   "b-2",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET`)).
					WithArgs(Any{}, Any{}, "b-2", "pending").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings" WHERE id = $1`)).
					WithArgs("b-2", 1).
					WillReturnRows(sqlmock.NewRows(cols).AddRow("b-2", "cricket", "2024-06-01", "09:00 AM - 05:00 PM", "rejected", "a@b.co"))
			},
			expectedStatus: model.StatusRejected,
			expectedErr:    ErrNotPending,
		},
		{
			name: "Unknown id",
			id:   "missing",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET`)).
					WithArgs(Any{}, Any{}, "missing", "pending").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "bookings" WHERE id = $1`)).
					WithArgs("missing", 1).
					WillReturnRows(sqlmock.NewRows(cols))
			},
			expectedErr: ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			b, err := store.UpdateStatus(context.Background(), tc.id, model.StatusApproved)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedStatus, b.Status)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_UpdateStatus_DatabaseError(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bookings" SET`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.UpdateStatus(context.Background(), "b-1", model.StatusRejected)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

const activeBookingsQuery = `SELECT * FROM "bookings" WHERE LOWER(ground_type) = $1 AND LOWER(status) IN ($2,$3)`

func expectGuardedInsert(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(activeBookingsQuery)).
		WithArgs("football", "pending", "approved").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ground_type", "date", "time_slot", "status"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "bookings"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestGormStore_CreateRetriesSerializationFailure(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	expectGuardedInsert(mock)
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	expectGuardedInsert(mock)
	mock.ExpectCommit()

	checks := 0
	b := booking(model.GroundFootball, "2024-06-01", "07:00 AM - 10:00 AM", model.StatusPending, "a@b.co")
	err := store.Create(context.Background(), b, func(active []model.Booking) error {
		checks++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, checks, "the check must run again on the retried transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateGivesUpAfterRepeatedSerializationFailures(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	for i := 0; i < maxSerializationRetries; i++ {
		expectGuardedInsert(mock)
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})
	}

	b := booking(model.GroundFootball, "2024-06-01", "07:00 AM - 10:00 AM", model.StatusPending, "a@b.co")
	err := store.Create(context.Background(), b, func([]model.Booking) error { return nil })

	assert.True(t, isSerializationFailure(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateDuplicateSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "bookings"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_bookings_active_slot"})
	mock.ExpectRollback()

	b := booking(model.GroundFootball, "2024-06-01", "07:00 AM - 10:00 AM", model.StatusPending, "a@b.co")
	err = store.Create(context.Background(), b, nil)

	assert.ErrorIs(t, err, ErrDuplicateSlot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateAssignsID(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	b := booking(model.GroundCricket, "2024-06-01", "09:00 AM - 05:00 PM", model.StatusPending, "a@b.co")
	require.NoError(t, store.Create(ctx, b, nil))
	assert.Len(t, b.ID, 36)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", got.Date)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CreateCheckSeesActiveBookings(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, booking(model.GroundFootball, "2024-06-01", "07:00 AM - 10:00 AM", model.StatusApproved, "a@b.co"), nil))
	require.NoError(t, store.Create(ctx, booking(model.GroundFootball, "2024-06-02", "07:00 AM - 10:00 AM", model.StatusRejected, "a@b.co"), nil))
	require.NoError(t, store.Create(ctx, booking(model.GroundCricket, "2024-06-01", "09:00 AM - 05:00 PM", model.StatusPending, "a@b.co"), nil))

	var seen []model.Booking
	errTaken := errors.New("taken")
	err := store.Create(ctx, booking(model.GroundFootball, "2024-06-01", "07:00 AM - 10:00 AM", model.StatusPending, "c@d.co"),
		func(active []model.Booking) error {
			seen = active
			return errTaken
		})
	assert.ErrorIs(t, err, errTaken)
	require.Len(t, seen, 1)
	assert.Equal(t, model.StatusApproved, seen[0].Status)

	all, err := store.ListByGround(ctx, model.GroundFootball)
	require.NoError(t, err)
	assert.Len(t, all, 2, "rejected check must not insert")
}

func TestGormStore_ListFilters(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	first := booking(model.GroundCricket, "2024-06-01", "09:00 AM - 05:00 PM", model.StatusPending, "a@b.co")
	first.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	second := booking(model.GroundFootball, "2024-06-02", "07:00 AM - 10:00 AM", model.StatusApproved, "x@y.co")
	second.CreatedAt = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, first, nil))
	require.NoError(t, store.Create(ctx, second, nil))
	// A row written by an older client with different casing.
	require.NoError(t, db.Exec(`INSERT INTO bookings (id, ground_type, date, time_slot, status, name, email, phone, payment_method, created_at, updated_at)
		VALUES ('legacy', 'Cricket', '2024-06-03T00:00:00Z', '09:00 AM - 05:00 PM', 'Approved', 'L', 'A@B.CO', '0000000000', 'upi', ?, ?)`,
		time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), time.Now()).Error)

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "legacy", all[0].ID, "newest first")

	cricket, err := store.ListByGround(ctx, model.GroundCricket)
	require.NoError(t, err)
	assert.Len(t, cricket, 2)

	approved, err := store.List(ctx, Filter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	mine, err := store.List(ctx, Filter{Email: "a@b.co"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGormStore_UpdateStatusOnSQLite(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	b := booking(model.GroundCricket, "2024-06-01", "09:00 AM - 05:00 PM", model.StatusPending, "a@b.co")
	require.NoError(t, store.Create(ctx, b, nil))

	got, err := store.UpdateStatus(ctx, b.ID, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	got, err = store.UpdateStatus(ctx, b.ID, model.StatusRejected)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestGormStore_Subscriptions(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	admin := &model.PushSubscription{Endpoint: "https://push/1", P256DH: "k", Auth: "a", Email: "boss@x.co", Role: model.RoleAdmin}
	user := &model.PushSubscription{Endpoint: "https://push/2", P256DH: "k", Auth: "a", Email: "a@b.co", Role: model.RoleUser}
	require.NoError(t, store.SaveSubscription(ctx, admin))
	require.NoError(t, store.SaveSubscription(ctx, user))

	// Re-saving the same endpoint refreshes the keys.
	user.Auth = "b"
	require.NoError(t, store.SaveSubscription(ctx, user))
	got, err := store.GetSubscription(ctx, "https://push/2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Auth)

	admins, err := store.Subscriptions(ctx, model.RoleAdmin, "")
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	users, err := store.Subscriptions(ctx, model.RoleUser, "A@B.CO")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, store.DeleteSubscription(ctx, "https://push/2"))
	assert.ErrorIs(t, store.DeleteSubscription(ctx, "https://push/2"), ErrNotFound)
	_, err = store.GetSubscription(ctx, "https://push/2")
	assert.ErrorIs(t, err, ErrNotFound)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
