package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"ground-booking-backend/internal/model"
)

const maxSerializationRetries = 3

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ListByGround(ctx context.Context, ground model.GroundType) ([]model.Booking, error)
	List(ctx context.Context, f Filter) ([]model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	Create(ctx context.Context, b *model.Booking, check CreateCheck) error
	UpdateStatus(ctx context.Context, id string, to model.BookingStatus) (model.Booking, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	Subscriptions(ctx context.Context, role model.SubscriberRole, email string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ListByGround returns every booking stored for a ground, whatever its status.
// Ground labels are compared case-insensitively so rows written by older
// clients are still found.
func (s *gormStore) ListByGround(ctx context.Context, ground model.GroundType) ([]model.Booking, error) {
	return s.List(ctx, Filter{Ground: ground})
}

// List returns bookings matching f, newest first.
func (s *gormStore) List(ctx context.Context, f Filter) ([]model.Booking, error) {
	q := s.db.WithContext(ctx).Model(&model.Booking{})
	if f.Ground != "" {
		q = q.Where("LOWER(ground_type) = ?", strings.ToLower(string(f.Ground)))
	}
	if f.Status != "" {
		q = q.Where("LOWER(status) = ?", strings.ToLower(string(f.Status)))
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) = ?", strings.ToLower(f.Email))
	}

	var bookings []model.Booking
	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *gormStore) Get(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("failed to load booking %s: %w", id, err)
	}
	return b, nil
}

// Create inserts b. When check is non-nil the ground's active bookings are
// re-read and passed to check inside the same transaction, which runs at
// serializable isolation on Postgres. Serialization failures are retried.
func (s *gormStore) Create(ctx context.Context, b *model.Booking, check CreateCheck) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	var opts []*sql.TxOptions
	if check != nil && s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	var err error
	for attempt := 1; attempt <= maxSerializationRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if check != nil {
				var active []model.Booking
				if err := tx.
					Where("LOWER(ground_type) = ? AND LOWER(status) IN ?", strings.ToLower(string(b.GroundType)), ActiveStatuses).
					Find(&active).Error; err != nil {
					return fmt.Errorf("failed to read active bookings: %w", err)
				}
				if err := check(active); err != nil {
					return err
				}
			}
			return tx.Create(b).Error
		}, opts...)

		if !isSerializationFailure(err) {
			break
		}
		log.Printf("Create booking %s: serialization conflict (attempt %d/%d)", b.ID, attempt, maxSerializationRetries)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSlot
	}
	return err
}

// UpdateStatus moves a pending booking to the given status. The update is
// conditional on the row still being pending, so two concurrent decisions
// cannot both succeed.
func (s *gormStore) UpdateStatus(ctx context.Context, id string, to model.BookingStatus) (model.Booking, error) {
	res := s.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND LOWER(status) = ?", id, string(model.StatusPending)).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return model.Booking{}, fmt.Errorf("failed to update booking %s: %w", id, res.Error)
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if res.RowsAffected == 0 {
		return b, ErrNotPending
	}
	return b, nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
