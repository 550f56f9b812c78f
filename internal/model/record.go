package model

import "time"

// Record is one borrow/queue episode for a (resource, visitor) pair.
// Which timestamps are set determines its state:
//
//	EnqueueDate set, TakeDate nil, Finished false  -> waiting in queue
//	TakeDate set, Finished false                   -> active loan
//	Finished true, ReturnDate set                  -> history
type Record struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ResourceID  int64  `gorm:"index;not null"`
	UserEmail   string `gorm:"size:256;index;not null"`
	Address     *string `gorm:"size:512"`
	EnqueueDate *time.Time
	TakeDate    *time.Time
	ReturnDate  *time.Time
	Finished    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Associations
	Resource Resource `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Visitor  Visitor  `gorm:"foreignKey:UserEmail;references:Email;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// IsQueue reports whether the record is a live queue entry.
func (r Record) IsQueue() bool {
	return r.EnqueueDate != nil && !r.Finished
}

// IsTake reports whether the record is the active loan.
func (r Record) IsTake() bool {
	return r.TakeDate != nil && !r.Finished
}
