package lending

import (
	"time"

	"device-lending-backend/internal/model"
)

// ResourceInfo is the flattened resource-plus-loan view handed to the
// dialog layer: the resource's own fields merged with its active take
// record, when one exists.
type ResourceInfo struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CategoryName string     `json:"category_name"`
	VendorCode   string     `json:"vendor_code"`
	RegDate      *time.Time `json:"reg_date,omitempty"`
	Firmware     *string    `json:"firmware,omitempty"`
	Comment      *string    `json:"comment,omitempty"`
	UserEmail    *string    `json:"user_email,omitempty"`
	Address      *string    `json:"address,omitempty"`
	TakeDate     *time.Time `json:"take_date,omitempty"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

// NewResourceInfo flattens a resource and its active take record (nil
// for a free resource) into one view.
func NewResourceInfo(res *model.Resource, take *model.Record) ResourceInfo {
	info := ResourceInfo{
		ID:           res.ID,
		Name:         res.Name,
		CategoryName: res.CategoryName,
		VendorCode:   res.VendorCode,
		RegDate:      res.RegDate,
		Firmware:     res.Firmware,
		Comment:      res.Comment,
	}
	if take != nil {
		email := take.UserEmail
		info.UserEmail = &email
		info.Address = take.Address
		info.TakeDate = take.TakeDate
		info.ReturnDate = take.ReturnDate
	}
	return info
}

// ReturnResult carries everything the notification collaborator needs
// after a return: who gave the resource back, the resource itself, and
// who was promoted from the queue, if anyone.
type ReturnResult struct {
	Resource             model.Resource `json:"resource"`
	PreviousVisitorEmail string         `json:"previous_visitor_email"`
	NewVisitorEmail      *string        `json:"new_visitor_email,omitempty"`
}

// ExpiringRecord pairs an active loan with the whole days left until
// its agreed return date; negative means overdue.
type ExpiringRecord struct {
	Record   model.Record `json:"record"`
	DaysLeft int          `json:"days_left"`
}

// ResourceWithRecord is one batch-import entry: a resource and,
// optionally, the loan it is already out on.
type ResourceWithRecord struct {
	Resource   model.Resource
	TakeRecord *model.Record
}
