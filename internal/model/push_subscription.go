package model

import "time"

// SubscriberRole selects which booking notifications a subscription receives.
type SubscriberRole string

const (
	RoleAdmin SubscriberRole = "admin"
	RoleUser  SubscriberRole = "user"
)

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string         `gorm:"primaryKey"`
	P256DH    string         `gorm:"column:p256dh;not null"`
	Auth      string         `gorm:"not null"`
	Email     string         `gorm:"size:256;index"`
	Role      SubscriberRole `gorm:"size:16;not null;index"`
	CreatedAt time.Time      `gorm:"not null"`
}
