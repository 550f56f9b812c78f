package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Each subscription belongs to one visitor; the visitor may register
// several browsers.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserEmail string    `gorm:"size:256;not null;index"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Visitor Visitor `gorm:"foreignKey:UserEmail;references:Email;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
