// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres/pgtest"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

func newPostgresService(t *testing.T) (*account.Service, *account.PostgresStore) {
	t.Helper()
	store := account.NewPostgresStore(pgtest.Open(t))
	return account.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func uniqueEmail() string {
	return "pg-" + uuid.New() + "@example.com"
}

/*
TestPostgresStore_Users runs registration and lookups against a real database.
*/
func TestPostgresStore_Users(t *testing.T) {
	service, _ := newPostgresService(t)
	ctx := context.Background()
	email := uniqueEmail()

	// 1. Register grants the seeded user role inside one transaction.
	user, err := service.Register(ctx, email, "password123")
	require.NoError(t, err)
	assert.Equal(t, []string{sec.RoleUser}, user.RoleNames())

	// 2. The unique index rejects the same email.
	_, err = service.Register(ctx, email, "password123")
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	// 3. Lookups by email and id agree.
	byEmail, err := service.FindUser(ctx, email)
	require.NoError(t, err)
	byID, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byID.ID)
	assert.Equal(t, byEmail.RoleNames(), byID.RoleNames())

	// 4. Unknown users are NotFound.
	_, err = service.FindUser(ctx, uniqueEmail())
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestPostgresStore_Grants checks idempotent grants and role ordering.
*/
func TestPostgresStore_Grants(t *testing.T) {
	service, _ := newPostgresService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, uniqueEmail(), "password123")
	require.NoError(t, err)

	// 1. Granting twice leaves one row.
	_, err = service.AddRoleToUser(ctx, user.ID, sec.RoleSubscriber)
	require.NoError(t, err)
	granted, err := service.AddRoleToUser(ctx, user.ID, sec.RoleSubscriber)
	require.NoError(t, err)
	assert.Equal(t, []string{sec.RoleSubscriber, sec.RoleUser}, granted.RoleNames())

	// 2. Revoking an absent grant is a no-op.
	_, err = service.RemoveRoleFromUser(ctx, user.ID, sec.RoleAdmin)
	require.NoError(t, err)

	revoked, err := service.RemoveRoleFromUser(ctx, user.ID, sec.RoleSubscriber)
	require.NoError(t, err)
	assert.Equal(t, []string{sec.RoleUser}, revoked.RoleNames())
}

/*
TestPostgresStore_EnsureRole_Concurrent races role creation on one name.
*/
func TestPostgresStore_EnsureRole_Concurrent(t *testing.T) {
	service, _ := newPostgresService(t)
	ctx := context.Background()
	name := "race-" + uuid.New()[:8]
	t.Cleanup(func() { _ = service.DeleteRole(context.Background(), name) })

	const callers = 8
	ids := make([]string, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			role, err := service.FindOrCreateRole(ctx, name)
			if assert.NoError(t, err) {
				ids[i] = role.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

/*
TestPostgresStore_SocialIdentity_Concurrent links one subject from racing callbacks.
*/
func TestPostgresStore_SocialIdentity_Concurrent(t *testing.T) {
	service, _ := newPostgresService(t)
	ctx := context.Background()
	subject := uuid.New()

	const callers = 4
	userIDs := make([]string, callers)
	created := make([]bool, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, isNew, err := service.FindOrCreateUserBySocialIdentity(ctx, "yandex", subject)
			if assert.NoError(t, err) {
				userIDs[i], created[i] = user.ID, isNew
			}
		}()
	}
	wg.Wait()

	creators := 0
	for i := range callers {
		assert.Equal(t, userIDs[0], userIDs[i])
		if created[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}
