// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/account/accounttest"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
)

func newService(t *testing.T) (*account.Service, *accounttest.Store) {
	t.Helper()
	store := accounttest.New()
	return account.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func codeOf(err error) string {
	if appError := apperr.As(err); appError != nil {
		return appError.Code
	}
	return ""
}

/*
TestService_Register covers the happy path and the default role grant.
*/
func TestService_Register(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	// 1. Register normalizes the email and grants "user".
	user, err := service.Register(ctx, "  Alice@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []string{sec.RoleUser}, user.RoleNames())
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	// 2. The stored account is readable by email and by ID.
	byEmail, err := service.FindUser(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sec.RoleUser}, byID.RoleNames())
}

/*
TestService_Register_Validation rejects malformed input before touching storage.
*/
func TestService_Register_Validation(t *testing.T) {
	service, store := newService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty_email", "", "correct-horse"},
		{"bad_email", "not-an-email", "correct-horse"},
		{"short_password", "bob@example.com", "short"},
		{"long_password", "bob@example.com", strings.Repeat("x", account.MaxPasswordBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.email, tt.password)
			assert.Equal(t, "VALIDATION_ERROR", codeOf(err))
		})
	}
	assert.Zero(t, store.UserCount())
}

/*
TestService_Register_DuplicateEmail verifies the unique email constraint.
*/
func TestService_Register_DuplicateEmail(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "carol@example.com", "password-1")
	require.NoError(t, err)

	_, err = service.Register(ctx, "CAROL@example.com", "password-2")
	assert.Equal(t, "CONFLICT", codeOf(err))
	assert.Equal(t, 1, store.UserCount())
}

/*
TestService_Register_RollsBack checks that a failed grant leaves no user behind.
*/
func TestService_Register_RollsBack(t *testing.T) {
	service, store := newService(t)
	store.FailAddRole = errors.New("boom")

	_, err := service.Register(context.Background(), "dave@example.com", "password-1")
	require.Error(t, err)
	assert.Zero(t, store.UserCount())
}

/*
TestService_AuthenticateUser covers match, mismatch and unknown email.
*/
func TestService_AuthenticateUser(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, "erin@example.com", "password-1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantOK   bool
	}{
		{"match", "erin@example.com", "password-1", true},
		{"match_case_insensitive_email", "Erin@Example.com", "password-1", true},
		{"wrong_password", "erin@example.com", "password-2", false},
		{"unknown_email", "nobody@example.com", "password-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, ok, err := service.AuthenticateUser(ctx, tt.email, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, registered.ID, user.ID)
			} else {
				assert.Nil(t, user)
			}
		})
	}
}

/*
TestService_ChangePassword verifies the old password check and the swap.
*/
func TestService_ChangePassword(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "frank@example.com", "password-1")
	require.NoError(t, err)

	// 1. Wrong old password.
	err = service.ChangePassword(ctx, user.ID, "nope-nope", "password-2")
	assert.Equal(t, "UNAUTHORIZED", codeOf(err))

	// 2. Too short new password.
	err = service.ChangePassword(ctx, user.ID, "password-1", "short")
	assert.Equal(t, "VALIDATION_ERROR", codeOf(err))

	// 3. Success; only the new password authenticates afterwards.
	require.NoError(t, service.ChangePassword(ctx, user.ID, "password-1", "password-2"))

	_, ok, err := service.AuthenticateUser(ctx, "frank@example.com", "password-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = service.AuthenticateUser(ctx, "frank@example.com", "password-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

/*
TestService_GetUser_InvalidID maps a malformed ID to not found.
*/
func TestService_GetUser_InvalidID(t *testing.T) {
	service, _ := newService(t)
	_, err := service.GetUser(context.Background(), "not-a-uuid")
	assert.Equal(t, "NOT_FOUND", codeOf(err))
}

/*
TestService_FindOrCreateRole ensures repeated and concurrent calls converge on one role.
*/
func TestService_FindOrCreateRole(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	first, err := service.FindOrCreateRole(ctx, "editor")
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role, err := service.FindOrCreateRole(ctx, "editor")
			if assert.NoError(t, err) {
				ids[i] = role.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, first.ID, id)
	}

	roles, err := service.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	_, err = service.FindOrCreateRole(ctx, "   ")
	assert.Equal(t, "VALIDATION_ERROR", codeOf(err))
}

/*
TestService_RoleLifecycle covers create, conflict, update, rename refusal and delete.
*/
func TestService_RoleLifecycle(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	// 1. Create.
	role, err := service.CreateRole(ctx, account.CreateRoleInput{Name: "subscriber", Description: pointer.To("Can read premium content")})
	require.NoError(t, err)
	assert.Equal(t, "subscriber", role.Name)

	// 2. Duplicate name.
	_, err = service.CreateRole(ctx, account.CreateRoleInput{Name: "subscriber"})
	assert.Equal(t, "CONFLICT", codeOf(err))

	// 3. Rename is refused.
	_, err = service.UpdateRole(ctx, "subscriber", account.UpdateRoleInput{Name: pointer.To("premium")})
	assert.Equal(t, "UNPROCESSABLE", codeOf(err))

	// 4. Same name plus a new description is accepted.
	updated, err := service.UpdateRole(ctx, "subscriber",
		account.UpdateRoleInput{Name: pointer.To("subscriber"), Description: pointer.To("Paid tier")})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Paid tier", *updated.Description)

	// 5. Delete, then lookups fail.
	require.NoError(t, service.DeleteRole(ctx, "subscriber"))
	_, err = service.GetRole(ctx, "subscriber")
	assert.Equal(t, "NOT_FOUND", codeOf(err))
	assert.Equal(t, "NOT_FOUND", codeOf(service.DeleteRole(ctx, "subscriber")))
}

/*
TestService_Grants verifies that add and remove are idempotent and require existing entities.
*/
func TestService_Grants(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "grace@example.com", "password-1")
	require.NoError(t, err)
	_, err = service.CreateRole(ctx, account.CreateRoleInput{Name: sec.RoleAdmin})
	require.NoError(t, err)

	// 1. Add twice, one grant.
	for i := 0; i < 2; i++ {
		updated, err := service.AddRoleToUser(ctx, user.ID, sec.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, []string{sec.RoleAdmin, sec.RoleUser}, updated.RoleNames())
	}

	// 2. Remove twice, no error.
	for i := 0; i < 2; i++ {
		updated, err := service.RemoveRoleFromUser(ctx, user.ID, sec.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, []string{sec.RoleUser}, updated.RoleNames())
	}

	// 3. Unknown role or user.
	_, err = service.AddRoleToUser(ctx, user.ID, "ghost")
	assert.Equal(t, "NOT_FOUND", codeOf(err))

	_, err = service.AddRoleToUser(ctx, "0190a5c4-0000-7000-8000-000000000000", sec.RoleAdmin)
	assert.Equal(t, "NOT_FOUND", codeOf(err))

	roles, err := service.ListUserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

/*
TestService_CreateSuperuser grants admin alongside the default role.
*/
func TestService_CreateSuperuser(t *testing.T) {
	service, _ := newService(t)

	user, err := service.CreateSuperuser(context.Background(), "root@example.com", "password-1")
	require.NoError(t, err)
	assert.Equal(t, []string{sec.RoleAdmin, sec.RoleUser}, user.RoleNames())
}

/*
TestService_FindOrCreateUserBySocialIdentity covers creation and reuse of a link.
*/
func TestService_FindOrCreateUserBySocialIdentity(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	// 1. First sight creates a user with a placeholder email.
	created, isNew, err := service.FindOrCreateUserBySocialIdentity(ctx, "yandex", "12345")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, strings.HasSuffix(created.Email, "@yandex.com"))
	assert.Len(t, strings.TrimSuffix(created.Email, "@yandex.com"), 8)
	assert.Equal(t, []string{sec.RoleUser}, created.RoleNames())

	// 2. Second sight returns the same user.
	again, isNew, err := service.FindOrCreateUserBySocialIdentity(ctx, "yandex", "12345")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)

	// 3. The same subject at another provider is a different identity.
	other, isNew, err := service.FindOrCreateUserBySocialIdentity(ctx, "vk", "12345")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, created.ID, other.ID)

	assert.Equal(t, 2, store.UserCount())
	assert.Equal(t, 2, store.LinkCount())

	// 4. Missing subject.
	_, _, err = service.FindOrCreateUserBySocialIdentity(ctx, "yandex", "")
	assert.Equal(t, "VALIDATION_ERROR", codeOf(err))
}

/*
TestService_FindOrCreateUserBySocialIdentity_Race simulates another request
linking the same subject between our lookup and our insert.
*/
func TestService_FindOrCreateUserBySocialIdentity_Race(t *testing.T) {
	service, store := newService(t)

	var winnerID string
	store.BeforeLinkCreate = func(committed accounttest.Seeder) error {
		winnerID = committed.AddLinkedUser("winner@yandex.com", "yandex", "777")
		return apperr.Conflict("Social account already exists")
	}

	user, isNew, err := service.FindOrCreateUserBySocialIdentity(context.Background(), "yandex", "777")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, winnerID, user.ID)

	// The loser's placeholder user was rolled back.
	assert.Equal(t, 1, store.UserCount())
	assert.Equal(t, 1, store.LinkCount())
}
