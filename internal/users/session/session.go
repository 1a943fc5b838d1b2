// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session records successful authentications and serves the login history.

Sessions are append-only audit rows. Each row carries the raw user-agent and a
device class derived from it once, at write time.
*/
package session

import (
	"context"
	"time"

	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

// Session is one successful login.
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	UserAgent   string      `json:"user_agent"`
	DeviceClass DeviceClass `json:"device_class"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Repository defines the data access contract for sessions.
type Repository interface {

	// Create appends one session row. ID and CreatedAt are assigned by the store.
	Create(context context.Context, session *Session) error

	/*
		ListByUser returns one page of the user's sessions, newest first.

		Returns:
		  - []Session: The page, empty past the last page
		  - int: Total number of the user's sessions
		  - error: Database errors
	*/
	ListByUser(context context.Context, userID string, params pagination.Params) ([]Session, int, error)
}
