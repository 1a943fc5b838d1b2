// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package token_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/metrics"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/token"
)

// # Fixtures

type userDirectory map[string]*account.User

func (directory userDirectory) FindUser(_ context.Context, email string) (*account.User, error) {
	if user, ok := directory[email]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

type rejections struct {
	metrics.Nop
	mu      sync.Mutex
	reasons []string
}

func (r *rejections) TokenRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

type fixture struct {
	service *token.Service
	users   userDirectory
	metrics *rejections
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	signer, err := sec.NewSignerFromKeys(key, &key.PublicKey, "yomira-auth")
	require.NoError(t, err)
	signer.WithClock(clock)

	_, client := newRedis(t)
	users := userDirectory{
		"a@x.com": {
			ID:    "0191e6a0-0000-7000-8000-000000000010",
			Email: "a@x.com",
			Roles: []account.Role{{Name: "admin"}, {Name: "user"}},
		},
	}
	recorder := &rejections{}

	service := token.NewService(signer, token.NewRedisRegistry(client), users, recorder,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		token.Options{AccessTTL: time.Hour, RefreshTTL: 30 * 24 * time.Hour},
	).WithClock(clock)

	return &fixture{service: service, users: users, metrics: recorder, clock: &now}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func causeOf(t *testing.T, err error) error {
	t.Helper()
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, "UNAUTHORIZED", appError.Code)
	return appError.Cause
}

// # Tests

/*
TestService_IssueAndValidate checks the claims carried by a fresh pair.
*/
func TestService_IssueAndValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := f.service.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email())
	assert.Equal(t, "0191e6a0-0000-7000-8000-000000000010", claims.UserID)
	assert.Equal(t, []string{"admin", "user"}, claims.Roles)

	refreshClaims, err := f.service.ValidateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.TokenID(), refreshClaims.TokenID())
}

/*
TestService_Validate_Rejections covers every rejection reason and its metric label.
*/
func TestService_Validate_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Validate(ctx, "not.a.jwt")
		assert.ErrorIs(t, causeOf(t, err), sec.ErrTokenInvalid)
		assert.Equal(t, []string{"invalid"}, f.metrics.reasons)
	})

	t.Run("refresh_as_access", func(t *testing.T) {
		f := newFixture(t)
		pair, err := f.service.IssuePair(f.users["a@x.com"])
		require.NoError(t, err)

		_, err = f.service.Validate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, causeOf(t, err), sec.ErrWrongTokenType)
		assert.Equal(t, []string{"wrong_type"}, f.metrics.reasons)
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		pair, err := f.service.IssuePair(f.users["a@x.com"])
		require.NoError(t, err)

		f.advance(time.Hour + time.Minute)
		_, err = f.service.Validate(ctx, pair.AccessToken)
		assert.ErrorIs(t, causeOf(t, err), sec.ErrTokenExpired)
		assert.Equal(t, []string{"expired"}, f.metrics.reasons)
	})

	t.Run("revoked", func(t *testing.T) {
		f := newFixture(t)
		pair, err := f.service.IssuePair(f.users["a@x.com"])
		require.NoError(t, err)

		claims, err := f.service.Validate(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.NoError(t, f.service.RevokeClaims(ctx, claims))

		_, err = f.service.Validate(ctx, pair.AccessToken)
		assert.ErrorIs(t, causeOf(t, err), token.ErrTokenRevoked)
		assert.Equal(t, []string{"revoked"}, f.metrics.reasons)
	})
}

/*
TestService_Revoke_OnlyTargetsOneToken verifies revocation is per jti.
*/
func TestService_Revoke_OnlyTargetsOneToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)
	second, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)

	claims, err := f.service.Validate(ctx, first.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.service.RevokeClaims(ctx, claims))

	_, err = f.service.Validate(ctx, second.AccessToken)
	assert.NoError(t, err)

	// Revoking with no lifetime left is a silent no-op.
	assert.NoError(t, f.service.Revoke(ctx, "some-jti", 0))
}

/*
TestService_Refresh rotates the refresh token and reflects current roles.
*/
func TestService_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)

	// 1. Roles change between issuance and refresh.
	f.users["a@x.com"].Roles = []account.Role{{Name: "user"}}
	f.advance(time.Minute)

	rotated, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := f.service.Validate(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, claims.Roles)

	// 2. The old refresh token cannot be replayed.
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, causeOf(t, err), token.ErrTokenRevoked)

	// 3. The new refresh token works.
	_, err = f.service.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_Refresh_Rejections covers access tokens and vanished users.
*/
func TestService_Refresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)

	// 1. Access token on the refresh path.
	_, err = f.service.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, causeOf(t, err), sec.ErrWrongTokenType)

	// 2. Subject deleted after issuance.
	delete(f.users, "a@x.com")
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	cause := causeOf(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(cause).Code)
}

/*
TestService_Validate_RegistryDown fails closed.
*/
func TestService_Validate_RegistryDown(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := sec.NewSignerFromKeys(key, &key.PublicKey, "yomira-auth")
	require.NoError(t, err)

	service := token.NewService(signer, brokenRegistry{}, userDirectory{}, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		token.Options{AccessTTL: time.Hour, RefreshTTL: time.Hour},
	)

	pair, err := service.IssuePair(&account.User{ID: "u", Email: "b@x.com"})
	require.NoError(t, err)

	_, err = service.Validate(context.Background(), pair.AccessToken)
	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "INTERNAL_ERROR", appError.Code)
}

type brokenRegistry struct{}

func (brokenRegistry) Revoke(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenRegistry) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

/*
TestService_Refresh_ConcurrentReplay lets several callers race one refresh
token. Exactly one of them may rotate it.
*/
func TestService_Refresh_ConcurrentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.service.IssuePair(f.users["a@x.com"])
	require.NoError(t, err)

	const callers = 8
	results := make([]error, callers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, results[i] = f.service.Refresh(ctx, pair.RefreshToken)
		}()
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, causeOf(t, err), token.ErrTokenRevoked)
	}
	assert.Equal(t, 1, succeeded)
}

// # Ordering

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (log *eventLog) add(event string) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.events = append(log.events, event)
}

type loggingRecorder struct {
	metrics.Nop
	log *eventLog
}

func (recorder loggingRecorder) TokensIssued(tokenType string) { recorder.log.add("issued_" + tokenType) }

type loggingRegistry struct {
	token.Registry
	log *eventLog
}

func (registry loggingRegistry) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	registry.log.add("revoke")
	return registry.Registry.Revoke(ctx, jti, ttl)
}

/*
TestService_Refresh_SignsBeforeRevoking keeps the presented token usable until
the replacement pair exists.
*/
func TestService_Refresh_SignsBeforeRevoking(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	signer, err := sec.NewSignerFromKeys(key, &key.PublicKey, "yomira-auth")
	require.NoError(t, err)

	_, client := newRedis(t)
	events := &eventLog{}
	user := &account.User{ID: "u", Email: "c@x.com"}

	service := token.NewService(signer,
		loggingRegistry{Registry: token.NewRedisRegistry(client), log: events},
		userDirectory{user.Email: user}, loggingRecorder{log: events},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		token.Options{AccessTTL: time.Hour, RefreshTTL: time.Hour},
	)

	pair, err := service.IssuePair(user)
	require.NoError(t, err)
	events.events = nil

	_, err = service.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"issued_access", "issued_refresh", "revoke"}, events.events)
}
