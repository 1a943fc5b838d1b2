// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil reads what the auth handlers need from an HTTP request:
JSON bodies, chi URL parameters, the bearer token and the validated claims.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

// maxBodyBytes bounds every JSON payload. Credentials and role bodies are tiny.
const maxBodyBytes = 64 << 10

/*
DecodeJSON decodes exactly one JSON value from the body into target.

Returns:
  - error: validate.ErrInvalidJSON for a missing, oversized, malformed or
    trailing-garbage body
*/
func DecodeJSON(request *http.Request, target any) error {
	if request.Body == nil || request.Body == http.NoBody {
		return validate.ErrInvalidJSON
	}
	if err := decode(request, target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// DecodeOptionalJSON behaves like [DecodeJSON] but treats an empty body as
// "no fields given" and leaves target untouched.
func DecodeOptionalJSON(request *http.Request, target any) error {
	if request.Body == nil || request.Body == http.NoBody {
		return nil
	}
	if err := decode(request, target); err != nil && !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

func decode(request *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes+1))
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("requestutil: trailing data after JSON value")
	}
	if decoder.InputOffset() > maxBodyBytes {
		return errors.New("requestutil: body too large")
	}
	return nil
}

// Param returns the chi URL parameter name.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// RequiredClaims returns the validated access-token claims or a 401.
func RequiredClaims(request *http.Request) (*sec.Claims, error) {
	claims := ctxutil.GetClaims(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

// RequiredUserID returns the id of the authenticated user or a 401.
func RequiredUserID(request *http.Request) (string, error) {
	claims, err := RequiredClaims(request)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

/*
BearerToken extracts the raw token from "Authorization: Bearer <token>".
The scheme is case-insensitive.

Returns:
  - string: The raw token, "" when the header is absent
  - error: apperr.Unauthorized when the header is present but malformed
*/
func BearerToken(request *http.Request) (string, error) {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return "", nil
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, constants.AuthorizationBearer) || token == "" || strings.ContainsAny(token, " \t") {
		return "", apperr.Unauthorized("Invalid authorization format")
	}
	return token, nil
}
