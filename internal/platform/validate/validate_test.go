// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

/*
TestValidator_Rules runs every rule against a passing and a failing value.
*/
func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(v *validate.Validator)
		wantErr bool
	}{
		{"required_ok", func(v *validate.Validator) { v.Required("email", "a@x.com") }, false},
		{"required_blank", func(v *validate.Validator) { v.Required("email", "   ") }, true},
		{"min_len_ok", func(v *validate.Validator) { v.MinLen("password", "password", 8) }, false},
		{"min_len_short", func(v *validate.Validator) { v.MinLen("password", "pass", 8) }, true},
		{"min_len_counts_runes", func(v *validate.Validator) { v.MinLen("password", "ééééééé", 8) }, true},
		{"max_len_ok", func(v *validate.Validator) { v.MaxLen("name", "admin", 150) }, false},
		{"max_len_long", func(v *validate.Validator) { v.MaxLen("name", strings.Repeat("a", 151), 150) }, true},
		{"max_bytes_ok", func(v *validate.Validator) { v.MaxBytes("password", strings.Repeat("a", 72), 72) }, false},
		{"max_bytes_multibyte", func(v *validate.Validator) { v.MaxBytes("password", strings.Repeat("é", 40), 72) }, true},
		{"email_ok", func(v *validate.Validator) { v.Email("email", "tai@yomira.com") }, false},
		{"email_no_domain", func(v *validate.Validator) { v.Email("email", "tai@") }, true},
		{"email_display_name", func(v *validate.Validator) { v.Email("email", "Tai <tai@yomira.com>") }, true},
		{"email_empty", func(v *validate.Validator) { v.Email("email", "") }, true},
		{"uuid_ok", func(v *validate.Validator) { v.UUID("id", "0192f1c4-5b7e-7d2a-9c1e-4f6a8b2c3d4e") }, false},
		{"uuid_garbage", func(v *validate.Validator) { v.UUID("id", "not-a-uuid") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			tt.apply(v)

			assert.Equal(t, tt.wantErr, v.HasErrors())
			if !tt.wantErr {
				assert.NoError(t, v.Err())
				return
			}

			appError := apperr.As(v.Err())
			require.NotNil(t, appError)
			assert.Equal(t, "VALIDATION_ERROR", appError.Code)
			assert.Len(t, appError.Details, 1)
		})
	}
}

/*
TestValidator_Accumulates keeps every failure in call order.
*/
func TestValidator_Accumulates(t *testing.T) {
	err := (&validate.Validator{}).
		Required("email", "").
		Email("email", "").
		MinLen("password", "short", 8).
		Err()

	appError := apperr.As(err)
	require.NotNil(t, appError)
	require.Len(t, appError.Details, 3)
	assert.Equal(t, "email", appError.Details[0].Field)
	assert.Equal(t, "password", appError.Details[2].Field)
}

/*
TestRequiredError builds a single-field error.
*/
func TestRequiredError(t *testing.T) {
	appError := validate.RequiredError("refresh_token", "Required")
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
	assert.Equal(t, []apperr.FieldError{{Field: "refresh_token", Message: "Required"}}, appError.Details)
}
