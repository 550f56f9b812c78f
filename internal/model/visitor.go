package model

import "time"

// Visitor represents a person who can hold or queue for resources.
// Email is the logical identifier; chat identity fields stay empty until
// the person first talks to the front end.
type Visitor struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"uniqueIndex;size:256;not null"`
	IsAdmin   bool   `gorm:"not null;default:false"`
	ChatID    *int64 `gorm:"index"`
	UserID    *int64
	FullName  *string `gorm:"size:256"`
	Username  *string `gorm:"size:256"`
	Comment   *string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
