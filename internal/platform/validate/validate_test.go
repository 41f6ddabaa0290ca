// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/validate"
)

/*
TestValidator_Rules covers each rule on its own.
*/
func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		run     func(v *validate.Validator)
		field   string
		message string
	}{
		{"required_ok", func(v *validate.Validator) { v.Required("name", "Aloe Vera") }, "", ""},
		{"required_empty", func(v *validate.Validator) { v.Required("name", "") }, "name", "This field is required"},
		{"required_blank", func(v *validate.Validator) { v.Required("name", "   ") }, "name", "This field is required"},
		{"email_ok", func(v *validate.Validator) { v.Email("email", "hello@mknursery.com") }, "", ""},
		{"email_bad", func(v *validate.Validator) { v.Email("email", "hello") }, "email", "Must be a valid email address"},
		{"uuid_ok", func(v *validate.Validator) { v.UUID("id", "0192b1c4-6a3e-7c1f-9d0a-5b2f4c8e1a77") }, "", ""},
		{"uuid_upper_ok", func(v *validate.Validator) { v.UUID("id", "0192B1C4-6A3E-7C1F-9D0A-5B2F4C8E1A77") }, "", ""},
		{"uuid_bad", func(v *validate.Validator) { v.UUID("id", "plant-1") }, "id", "Must be a valid UUID"},
		{"custom_ok", func(v *validate.Validator) { v.Custom("confirm_password", false, "Passwords do not match.") }, "", ""},
		{"custom_failed", func(v *validate.Validator) { v.Custom("confirm_password", true, "Passwords do not match.") }, "confirm_password", "Passwords do not match."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			tt.run(v)

			if tt.field == "" {
				assert.False(t, v.HasErrors())
				assert.NoError(t, v.Err())
				return
			}

			err := v.Err()
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			assert.Equal(t, map[string]string{tt.field: tt.message}, validate.FieldErrors(err))
		})
	}
}

/*
TestValidator_Chain keeps the first message per field.
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "").
		Email("email", "").
		Required("message", "")

	fields := validate.FieldErrors(v.Err())

	assert.Equal(t, map[string]string{
		"email":   "This field is required",
		"message": "This field is required",
	}, fields)
}

/*
TestFieldErrors ignores errors that are not validation failures.
*/
func TestFieldErrors(t *testing.T) {
	assert.Nil(t, validate.FieldErrors(nil))
	assert.Nil(t, validate.FieldErrors(errors.New("boom")))
	assert.Nil(t, validate.FieldErrors(apperr.NotFound("Plant")))
	assert.Empty(t, validate.FieldErrors(validate.ErrInvalidForm))
}
