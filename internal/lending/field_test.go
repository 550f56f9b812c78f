package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-lending-backend/internal/model"
)

func TestParseEditableField(t *testing.T) {
	for _, name := range []string{"name", "category_name", "vendor_code", "reg_date", "firmware", "comment"} {
		field, ok := ParseEditableField(name)
		assert.True(t, ok, "expected %q to be editable", name)
		assert.Equal(t, EditableField(name), field)
	}

	for _, name := range []string{"id", "user_email", "", "take_date", "NAME"} {
		_, ok := ParseEditableField(name)
		assert.False(t, ok, "expected %q to be rejected", name)
	}
}

func TestEditableFieldApply(t *testing.T) {
	res := &model.Resource{
		ID:           1,
		Name:         "Oscilloscope",
		CategoryName: "Lab",
		VendorCode:   "OSC-1",
	}

	require.NoError(t, FieldName.Apply(res, "Spectrum Analyzer"))
	assert.Equal(t, "Spectrum Analyzer", res.Name)

	require.NoError(t, FieldFirmware.Apply(res, "v2.1"))
	require.NotNil(t, res.Firmware)
	assert.Equal(t, "v2.1", *res.Firmware)

	// Optional fields are cleared by an empty value.
	require.NoError(t, FieldFirmware.Apply(res, ""))
	assert.Nil(t, res.Firmware)

	require.NoError(t, FieldRegDate.Apply(res, "01.02.2026"))
	require.NotNil(t, res.RegDate)
	assert.Equal(t, 2026, res.RegDate.Year())

	require.NoError(t, FieldRegDate.Apply(res, ""))
	assert.Nil(t, res.RegDate)

	// Required fields reject an empty value.
	assert.Error(t, FieldName.Apply(res, ""))
	assert.Error(t, FieldCategory.Apply(res, ""))
	assert.Error(t, FieldVendorCode.Apply(res, ""))

	// Malformed dates are rejected.
	assert.Error(t, FieldRegDate.Apply(res, "2026-02-01"))
}
