// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

// socialEmailDomain is the mailbox domain of the placeholder emails given to
// federated accounts.
const socialEmailDomain = "yandex.com"

// maxSocialEmailAttempts bounds retries when a random placeholder email collides.
const maxSocialEmailAttempts = 3

// Service implements the credential store use cases.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// # Lookup

/*
FindUser returns the user registered under email.

Returns:
  - *User: With roles
  - error: apperr.NotFound if absent
*/
func (service *Service) FindUser(context context.Context, email string) (*User, error) {
	return service.store.Users().FindByEmail(context, normalizeEmail(email))
}

// GetUser returns the user with the given ID.
func (service *Service) GetUser(context context.Context, id string) (*User, error) {
	if err := (&validate.Validator{}).UUID(FieldUserID, id).Err(); err != nil {
		return nil, apperr.NotFound("User")
	}
	return service.store.Users().FindByID(context, id)
}

// # Registration

/*
CreateUser hashes the password and stores a new account without roles.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *User: Created entity
  - error: Validation, apperr.Conflict on a taken email, or storage errors
*/
func (service *Service) CreateUser(context context.Context, email, password string) (*User, error) {
	var created *User
	err := service.store.WithinTx(context, func(unit UnitOfWork) error {
		user, err := service.createUser(context, unit, email, password)
		created = user
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

/*
Register creates an account and grants it the default role in one transaction.

Returns:
  - *User: Created entity carrying the default role
  - error: Validation, apperr.Conflict, or storage errors
*/
func (service *Service) Register(context context.Context, email, password string) (*User, error) {
	var registered *User
	err := service.store.WithinTx(context, func(unit UnitOfWork) error {
		user, err := service.createUser(context, unit, email, password)
		if err != nil {
			return err
		}

		role, err := unit.Roles().Ensure(context, sec.RoleUser)
		if err != nil {
			return err
		}
		if err := unit.Users().AddRole(context, user.ID, role.ID); err != nil {
			return err
		}

		user.Roles = []Role{*role}
		registered = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("account_registered", slog.String("user_id", registered.ID))
	return registered, nil
}

/*
CreateSuperuser creates an account holding the admin role in one transaction.
*/
func (service *Service) CreateSuperuser(context context.Context, email, password string) (*User, error) {
	var superuser *User
	err := service.store.WithinTx(context, func(unit UnitOfWork) error {
		user, err := service.createUser(context, unit, email, password)
		if err != nil {
			return err
		}

		for _, name := range []string{sec.RoleAdmin, sec.RoleUser} {
			role, err := unit.Roles().Ensure(context, name)
			if err != nil {
				return err
			}
			if err := unit.Users().AddRole(context, user.ID, role.ID); err != nil {
				return err
			}
		}

		superuser, err = unit.Users().FindByID(context, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	service.logger.Warn("superuser_created", slog.String("user_id", superuser.ID))
	return superuser, nil
}

func (service *Service) createUser(context context.Context, unit UnitOfWork, email, password string) (*User, error) {
	email = normalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).MaxLen(FieldEmail, email, MaxEmailLength).Email(FieldEmail, email)
	validatePassword(validator, FieldPassword, password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	user := &User{Email: email, PasswordHash: hashedPassword, Roles: []Role{}}
	if err := unit.Users().Create(context, user); err != nil {
		if isConflict(err) {
			return nil, apperr.Conflict("Email is already registered").WithCause(err)
		}
		return nil, fmt.Errorf("account_service_create_user_failed: %w", err)
	}

	return user, nil
}

// # Authentication

/*
AuthenticateUser checks an email and password pair.

Description: An unknown email still pays for one bcrypt comparison, so the
response time does not reveal whether the account exists.

Returns:
  - *User: The account on success, nil otherwise
  - bool: true only when the password matches
  - error: Storage failures only; a mismatch is not an error
*/
func (service *Service) AuthenticateUser(context context.Context, email, password string) (*User, bool, error) {
	user, err := service.store.Users().FindByEmail(context, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			sec.CheckPasswordAgainstNothing(password)
			return nil, false, nil
		}
		return nil, false, err
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, false, nil
	}

	return user, true, nil
}

/*
ChangePassword replaces the password of userID after checking the old one.

Returns:
  - error: apperr.Unauthorized for a wrong old password, validation or storage errors
*/
func (service *Service) ChangePassword(context context.Context, userID, oldPassword, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(FieldOldPassword, oldPassword)
	validatePassword(validator, FieldNewPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.store.Users().FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperr.Unauthorized("Old password is incorrect")
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}

	if err := service.store.Users().UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("account_service_change_password_failed: %w", err)
	}

	service.logger.Info("password_changed", slog.String("user_id", userID))
	return nil
}

// # Roles

/*
FindOrCreateRole returns the role called name, creating it when absent.

Description: Idempotent and safe under concurrency; never creates duplicates.
*/
func (service *Service) FindOrCreateRole(context context.Context, name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	return service.store.Roles().Ensure(context, name)
}

// CreateRoleInput holds the data required to define a role.
type CreateRoleInput struct {
	Name        string
	Description *string
}

// CreateRole defines a new role. A taken name is a conflict.
func (service *Service) CreateRole(context context.Context, input CreateRoleInput) (*Role, error) {
	name := strings.TrimSpace(input.Name)
	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, MaxRoleNameLength)
	if input.Description != nil {
		validator.MaxLen(FieldDescription, *input.Description, MaxRoleDescriptionLength)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	role := &Role{Name: name, Description: input.Description}
	if err := service.store.Roles().Create(context, role); err != nil {
		if isConflict(err) {
			return nil, apperr.Conflict("Role already exists").WithCause(err)
		}
		return nil, fmt.Errorf("account_service_create_role_failed: %w", err)
	}
	return role, nil
}

// ListRoles returns every role ordered by name.
func (service *Service) ListRoles(context context.Context) ([]Role, error) {
	return service.store.Roles().List(context)
}

// GetRole returns one role by name.
func (service *Service) GetRole(context context.Context, name string) (*Role, error) {
	return service.store.Roles().FindByName(context, name)
}

// UpdateRoleInput carries the mutable fields of a role. Name is accepted only
// to reject renames explicitly.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

/*
UpdateRole changes the description of a role.

Description: Role names are embedded in outstanding tokens, so renaming is
refused with 422 instead of silently re-pointing every grant.
*/
func (service *Service) UpdateRole(context context.Context, name string, input UpdateRoleInput) (*Role, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) != name {
		return nil, apperr.Unprocessable("Role names cannot be changed")
	}
	if input.Description != nil {
		if err := (&validate.Validator{}).MaxLen(FieldDescription, *input.Description, MaxRoleDescriptionLength).Err(); err != nil {
			return nil, err
		}
	}
	return service.store.Roles().UpdateDescription(context, name, input.Description)
}

// DeleteRole removes a role and every grant of it.
func (service *Service) DeleteRole(context context.Context, name string) error {
	if err := service.store.Roles().Delete(context, name); err != nil {
		return err
	}
	service.logger.Warn("role_deleted", slog.String("role", name))
	return nil
}

/*
AddRoleToUser grants an existing role to an existing user.

Returns:
  - *User: The user with refreshed roles
  - error: apperr.NotFound for an unknown user or role
*/
func (service *Service) AddRoleToUser(context context.Context, userID, roleName string) (*User, error) {
	return service.changeGrant(context, userID, roleName, func(unit UnitOfWork, roleID string) error {
		return unit.Users().AddRole(context, userID, roleID)
	})
}

// RemoveRoleFromUser revokes a role from a user. Removing an absent grant is a no-op.
func (service *Service) RemoveRoleFromUser(context context.Context, userID, roleName string) (*User, error) {
	return service.changeGrant(context, userID, roleName, func(unit UnitOfWork, roleID string) error {
		return unit.Users().RemoveRole(context, userID, roleID)
	})
}

func (service *Service) changeGrant(context context.Context, userID, roleName string, apply func(UnitOfWork, string) error) (*User, error) {
	var updated *User
	err := service.store.WithinTx(context, func(unit UnitOfWork) error {
		if _, err := unit.Users().FindByID(context, userID); err != nil {
			return err
		}

		role, err := unit.Roles().FindByName(context, roleName)
		if err != nil {
			return err
		}

		if err := apply(unit, role.ID); err != nil {
			return err
		}

		updated, err = unit.Users().FindByID(context, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("role_grant_changed",
		slog.String("user_id", userID),
		slog.String("role", roleName),
		slog.Any("roles", updated.RoleNames()),
	)
	return updated, nil
}

// ListUserRoles returns the roles granted to userID.
func (service *Service) ListUserRoles(context context.Context, userID string) ([]Role, error) {
	if _, err := service.GetUser(context, userID); err != nil {
		return nil, err
	}
	return service.store.Users().ListRoles(context, userID)
}

// # Identity Federation

/*
FindOrCreateUserBySocialIdentity resolves an external identity to a local user.

Description: When no link exists, a user with a random placeholder email and
an unusable random password is created and linked in one transaction. If a
concurrent request creates the same link first, this transaction rolls back
and the winner's user is returned, so exactly one link ever exists.

Parameters:
  - context: context.Context
  - provider: string (e.g. "yandex")
  - subjectID: string (provider-scoped user id)

Returns:
  - *User: The linked user
  - bool: true when the user was created by this call
  - error: Validation or storage errors
*/
func (service *Service) FindOrCreateUserBySocialIdentity(context context.Context, provider, subjectID string) (*User, bool, error) {
	validator := &validate.Validator{}
	validator.Required(FieldProvider, provider).Required(FieldSubjectID, subjectID)
	if err := validator.Err(); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxSocialEmailAttempts; attempt++ {
		user, created, err := service.linkSocialIdentity(context, provider, subjectID)
		if err == nil {
			if created {
				service.logger.Info("social_account_linked",
					slog.String("user_id", user.ID),
					slog.String("provider", provider),
				)
			}
			return user, created, nil
		}

		if !isConflict(err) {
			return nil, false, err
		}

		// Either another request linked this subject first, or the random
		// placeholder email collided. Re-read before retrying.
		link, lookupErr := service.store.SocialAccounts().FindBySubject(context, provider, subjectID)
		if lookupErr == nil {
			user, err := service.store.Users().FindByID(context, link.UserID)
			return user, false, err
		}
		if !isNotFound(lookupErr) {
			return nil, false, lookupErr
		}
	}

	return nil, false, apperr.Internal(errors.New("account: could not allocate a unique placeholder email"))
}

func (service *Service) linkSocialIdentity(context context.Context, provider, subjectID string) (*User, bool, error) {
	var (
		resolved *User
		created  bool
	)

	err := service.store.WithinTx(context, func(unit UnitOfWork) error {
		link, err := unit.SocialAccounts().FindBySubject(context, provider, subjectID)
		if err == nil {
			resolved, err = unit.Users().FindByID(context, link.UserID)
			return err
		}
		if !isNotFound(err) {
			return err
		}

		local, err := sec.RandomString(constants.SocialEmailLocalLength)
		if err != nil {
			return err
		}
		password, err := sec.RandomString(constants.SocialPasswordLength)
		if err != nil {
			return err
		}
		hashedPassword, err := sec.HashPassword(password)
		if err != nil {
			return fmt.Errorf("account_service_hash_failed: %w", err)
		}

		user := &User{
			Email:        strings.ToLower(local) + "@" + socialEmailDomain,
			PasswordHash: hashedPassword,
			Roles:        []Role{},
		}
		if err := unit.Users().Create(context, user); err != nil {
			return err
		}

		role, err := unit.Roles().Ensure(context, sec.RoleUser)
		if err != nil {
			return err
		}
		if err := unit.Users().AddRole(context, user.ID, role.ID); err != nil {
			return err
		}
		user.Roles = []Role{*role}

		if err := unit.SocialAccounts().Create(context, &SocialAccount{
			UserID:    user.ID,
			Provider:  provider,
			SubjectID: subjectID,
		}); err != nil {
			return err
		}

		resolved, created = user, true
		return nil
	})

	if err != nil {
		return nil, false, err
	}
	return resolved, created, nil
}

// # Helpers

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(validator *validate.Validator, field, password string) {
	validator.
		Required(field, password).
		MinLen(field, password, MinPasswordLength).
		MaxBytes(field, password, MaxPasswordBytes)
}

func validateRoleName(name string) error {
	return (&validate.Validator{}).Required(FieldName, name).MaxLen(FieldName, name, MaxRoleNameLength).Err()
}

func isNotFound(err error) bool { return apperr.HasCode(err, apperr.CodeNotFound) }

func isConflict(err error) bool { return apperr.HasCode(err, apperr.CodeConflict) }
