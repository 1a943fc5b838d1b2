// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
)

// # Built-in Roles

// Role names seeded by the first migration. Roles are flat: holding admin does
// not imply holding subscriber.
const (
	// Unrestricted access to role and grant management
	RoleAdmin = "admin"

	// Paying member, granted and revoked by an admin
	RoleSubscriber = "subscriber"

	// Default role for every registered account
	RoleUser = "user"
)

// # Access Control Guard

// HasRole reports whether claims carry role. Matching is exact and case-sensitive.
func (claims *Claims) HasRole(role string) bool {
	if claims == nil {
		return false
	}
	return slices.Contains(claims.Roles, role)
}

/*
Require checks that a validated token grants role.

Description: Pure set-membership over the roles embedded at issuance. No
cryptography and no store access happen here; callers must pass claims that
already went through token validation.

Parameters:
  - claims: *Claims (nil means the request is anonymous)
  - role: string

Returns:
  - error: apperr.Unauthorized for nil claims, apperr.Forbidden for a missing role
*/
func Require(claims *Claims, role string) error {
	if claims == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if !claims.HasRole(role) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}
