package model

import "time"

// PushSubscription holds the information for a client's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	ClientID  string    `gorm:"index;size:64;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
