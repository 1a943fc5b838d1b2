// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

type credentials struct {
	Email string `json:"email"`
}

/*
TestDecodeJSON accepts one JSON object and rejects everything else.
*/
func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"email":"a@x.com"}`, false},
		{"empty", ``, true},
		{"malformed", `{"email":`, true},
		{"trailing_value", `{"email":"a@x.com"}{"email":"b@x.com"}`, true},
		{"too_large", `{"email":"` + strings.Repeat("a", 70<<10) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var target credentials
			err := requestutil.DecodeJSON(request, &target)
			if tt.wantErr {
				assert.Equal(t, apperr.CodeValidation, apperr.As(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", target.Email)
		})
	}
}

/*
TestDecodeOptionalJSON treats a missing body as no input.
*/
func TestDecodeOptionalJSON(t *testing.T) {
	var target credentials
	assert.NoError(t, requestutil.DecodeOptionalJSON(httptest.NewRequest(http.MethodDelete, "/", nil), &target))
	assert.NoError(t, requestutil.DecodeOptionalJSON(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("")), &target))
	assert.Empty(t, target.Email)

	err := requestutil.DecodeOptionalJSON(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("nope")), &target)
	assert.Error(t, err)
}

/*
TestBearerToken covers absent, valid and malformed Authorization headers.
*/
func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"absent", "", "", false},
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase_scheme", "bearer abc", "abc", false},
		{"basic_scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no_token", "Bearer ", "", true},
		{"two_tokens", "Bearer abc def", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}

			token, err := requestutil.BearerToken(request)
			if tt.wantErr {
				assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

/*
TestRequiredUserID reads the subject from validated claims only.
*/
func TestRequiredUserID(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := requestutil.RequiredUserID(request)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.As(err).Code)

	request = request.WithContext(ctxutil.WithClaims(request.Context(), &sec.Claims{UserID: "u-1"}))
	userID, err := requestutil.RequiredUserID(request)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
}
