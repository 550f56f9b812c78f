package lending

import (
	"fmt"

	"device-lending-backend/internal/model"
)

// EditableField is the closed set of resource fields an admin may edit.
// Field dispatch stays compile-time checked; an unknown name fails
// ParseEditableField instead of reaching the database.
type EditableField string

const (
	FieldName       EditableField = "name"
	FieldCategory   EditableField = "category_name"
	FieldVendorCode EditableField = "vendor_code"
	FieldRegDate    EditableField = "reg_date"
	FieldFirmware   EditableField = "firmware"
	FieldComment    EditableField = "comment"
)

// ParseEditableField maps a user-supplied field name onto the closed
// set, reporting whether it is one of the editable fields.
func ParseEditableField(name string) (EditableField, bool) {
	switch EditableField(name) {
	case FieldName, FieldCategory, FieldVendorCode, FieldRegDate, FieldFirmware, FieldComment:
		return EditableField(name), true
	}
	return "", false
}

// Apply writes value into the field's column of res. Optional fields
// are cleared by an empty value; required fields reject it. Dates are
// parsed from the dd.mm.yyyy form.
func (f EditableField) Apply(res *model.Resource, value string) error {
	switch f {
	case FieldName:
		if value == "" {
			return fmt.Errorf("name cannot be empty")
		}
		res.Name = value
	case FieldCategory:
		if value == "" {
			return fmt.Errorf("category_name cannot be empty")
		}
		res.CategoryName = value
	case FieldVendorCode:
		if value == "" {
			return fmt.Errorf("vendor_code cannot be empty")
		}
		res.VendorCode = value
	case FieldRegDate:
		if value == "" {
			res.RegDate = nil
			return nil
		}
		t, err := ParseDate(value)
		if err != nil {
			return err
		}
		res.RegDate = &t
	case FieldFirmware:
		if value == "" {
			res.Firmware = nil
			return nil
		}
		res.Firmware = &value
	case FieldComment:
		if value == "" {
			res.Comment = nil
			return nil
		}
		res.Comment = &value
	default:
		return fmt.Errorf("unknown editable field %q", string(f))
	}
	return nil
}
