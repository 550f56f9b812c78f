package model

import "time"

// Category is one entry of the small, admin-managed device-type list.
type Category struct {
	Name      string `gorm:"primaryKey;size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
