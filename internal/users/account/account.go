// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account is the credential store of the auth service.

It owns users, roles, the user-role grants and the links between local users
and external identity-provider subjects.

# Architecture

  - Entities: User, Role, SocialAccount.
  - Contracts: UserRepository, RoleRepository, SocialAccountRepository,
    grouped by a UnitOfWork so multi-entity writes share one transaction.
  - Service: validation, hashing and the atomic find-or-create flows.
  - Handlers: registration, profile, password and role administration.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/yomira-auth/pkg/slice"
)

// # Domain Entities

// User is a local account. Email is unique and serves as the token subject.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles in store order.
func (user *User) RoleNames() []string {
	return slice.Map(user.Roles, func(role Role) string { return role.Name })
}

// Role is a named permission label. Names are unique and immutable.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SocialAccount links a local user to a subject at an external identity provider.
type SocialAccount struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	SubjectID string    `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldOldPassword = "old_password"
	FieldNewPassword = "new_password"
	FieldName        = "name"
	FieldDescription = "description"
	FieldUserID      = "user_id"
	FieldProvider    = "provider"
	FieldSubjectID   = "subject_id"
)

// # Constraints

const (
	MaxRoleNameLength        = 80
	MaxRoleDescriptionLength = 255
	MaxEmailLength           = 255
	MinPasswordLength        = 8

	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

// # Repository Contracts

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		Create persists a new account.

		Returns:
		  - error: apperr.Conflict when the email is taken
	*/
	Create(context context.Context, user *User) error

	// FindByID returns the account with its roles, or apperr.NotFound.
	FindByID(context context.Context, id string) (*User, error)

	// FindByEmail returns the account with its roles, or apperr.NotFound.
	FindByEmail(context context.Context, email string) (*User, error)

	// UpdatePassword replaces only the user's password hash.
	UpdatePassword(context context.Context, userID, newHash string) error

	// ListRoles returns the user's roles ordered by name.
	ListRoles(context context.Context, userID string) ([]Role, error)

	// AddRole grants roleID to userID. Granting twice is a no-op.
	AddRole(context context.Context, userID, roleID string) error

	// RemoveRole revokes roleID from userID. Revoking an absent grant is a no-op.
	RemoveRole(context context.Context, userID, roleID string) error
}

// RoleRepository defines the data access contract for roles.
type RoleRepository interface {

	/*
		Ensure returns the role with the given name, creating it when absent.

		Description: Must be safe under concurrent callers: two racing calls
		observe the same row and never create duplicates.
	*/
	Ensure(context context.Context, name string) (*Role, error)

	// Create persists a new role, or returns apperr.Conflict.
	Create(context context.Context, role *Role) error

	// FindByName returns the role, or apperr.NotFound.
	FindByName(context context.Context, name string) (*Role, error)

	// List returns every role ordered by name.
	List(context context.Context) ([]Role, error)

	// UpdateDescription changes only the description and returns the updated role.
	UpdateDescription(context context.Context, name string, description *string) (*Role, error)

	// Delete removes the role and its grants, or returns apperr.NotFound.
	Delete(context context.Context, name string) error
}

// SocialAccountRepository defines the data access contract for provider links.
type SocialAccountRepository interface {

	// FindBySubject returns the link for (provider, subjectID), or apperr.NotFound.
	FindBySubject(context context.Context, provider, subjectID string) (*SocialAccount, error)

	// Create persists a new link, or returns apperr.Conflict when the pair is taken.
	Create(context context.Context, link *SocialAccount) error
}

// # Transaction Boundary

// UnitOfWork exposes repositories bound to one connection or transaction.
type UnitOfWork interface {
	Users() UserRepository
	Roles() RoleRepository
	SocialAccounts() SocialAccountRepository
}

// Store is the credential store: repositories on the pool plus a way to run
// several writes atomically.
type Store interface {
	UnitOfWork

	// WithinTx runs fn in one transaction. Any error rolls every write back.
	WithinTx(context context.Context, fn func(UnitOfWork) error) error
}
