// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

// maxUserAgentLength bounds the stored user-agent; longer headers are cut.
const maxUserAgentLength = 512

// Service implements the session recorder and the login history.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new session [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

/*
Record appends a session for userID classified from userAgent.

Parameters:
  - context: context.Context
  - userID: string
  - userAgent: string (raw header, may be empty)

Returns:
  - *Session: The stored row
  - error: Storage failures
*/
func (service *Service) Record(context context.Context, userID, userAgent string) (*Session, error) {
	deviceClass := Classify(userAgent)
	userAgent = sanitizeUserAgent(userAgent)

	session := &Session{
		UserID:      userID,
		UserAgent:   userAgent,
		DeviceClass: deviceClass,
	}

	if err := service.repo.Create(context, session); err != nil {
		return nil, fmt.Errorf("session_service_record_failed: %w", err)
	}

	service.logger.Info("session_recorded",
		slog.String("user_id", userID),
		slog.String("device_class", string(session.DeviceClass)),
	)
	return session, nil
}

// sanitizeUserAgent makes a raw header storable in a TEXT column: invalid
// UTF-8 and NUL bytes are dropped, then the value is cut on a rune boundary.
func sanitizeUserAgent(userAgent string) string {
	userAgent = strings.ToValidUTF8(userAgent, "")
	userAgent = strings.ReplaceAll(userAgent, "\x00", "")

	if len(userAgent) <= maxUserAgentLength {
		return userAgent
	}
	cut := maxUserAgentLength
	for cut > 0 && !utf8.RuneStart(userAgent[cut]) {
		cut--
	}
	return userAgent[:cut]
}

/*
List returns one page of the user's login history, newest first.

Description: A page past the end yields an empty, non-nil slice and the real
total. Out-of-bounds parameters are rejected, never clamped.

Returns:
  - []Session: The page
  - int: Total sessions of the user
  - error: apperr.ValidationError or storage errors
*/
func (service *Service) List(context context.Context, userID string, params pagination.Params) ([]Session, int, error) {
	if err := params.Validate(); err != nil {
		return nil, 0, paginationError(err)
	}

	sessions, total, err := service.repo.ListByUser(context, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("session_service_list_failed: %w", err)
	}

	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, total, nil
}

// paginationError converts a pagination sentinel into a field validation error.
func paginationError(err error) error {
	field := pagination.QueryPage
	if errors.Is(err, pagination.ErrInvalidPageSize) {
		field = pagination.QueryPageSize
	}
	return apperr.ValidationError("Invalid pagination", apperr.FieldError{Field: field, Message: err.Error()})
}
