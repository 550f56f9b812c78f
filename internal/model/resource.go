package model

import "time"

// Resource represents a trackable physical device in the shared pool.
// IDs are assigned by the administrator, not by the database.
type Resource struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	Name         string `gorm:"size:256;not null"`
	CategoryName string `gorm:"size:128;not null;index"`
	VendorCode   string `gorm:"size:128;uniqueIndex;not null"`
	RegDate      *time.Time
	Firmware     *string `gorm:"size:128"`
	Comment      *string `gorm:"size:512"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Category Category `gorm:"foreignKey:CategoryName;references:Name"`
}
