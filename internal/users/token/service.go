// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package token issues, rotates, revokes and validates the service's tokens.

Tokens are stateless RS256 JWTs. Revocation is the only stateful override: a
revoked jti is written to the [Registry] for the rest of the token's lifetime
and every validation consults it.

# Validation order

Signature and issuer, then expiry, then token type, then the registry. The
first failing step decides the reported reason.
*/
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/metrics"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
)

// ErrTokenRevoked is returned for a token whose jti is in the registry.
var ErrTokenRevoked = errors.New("token: revoked")

// Rejection reasons used as metric labels.
const (
	reasonInvalid   = "invalid"
	reasonExpired   = "expired"
	reasonWrongType = "wrong_type"
	reasonRevoked   = "revoked"
)

// Pair is the token response of login, refresh and federated login.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserFinder resolves the subject of a refresh token to its current account.
type UserFinder interface {
	FindUser(context context.Context, email string) (*account.User, error)
}

// Options holds the token lifetimes.
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service implements the token lifecycle.
type Service struct {
	signer   *sec.Signer
	registry Registry
	users    UserFinder
	metrics  metrics.Recorder
	logger   *slog.Logger
	options  Options
	now      func() time.Time
}

// NewService constructs a new token [Service].
func NewService(signer *sec.Signer, registry Registry, users UserFinder, recorder metrics.Recorder, logger *slog.Logger, options Options) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		signer:   signer,
		registry: registry,
		users:    users,
		metrics:  recorder,
		logger:   logger,
		options:  options,
		now:      time.Now,
	}
}

// WithClock overrides the time source used for revocation lifetimes.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// # Issuance

/*
IssuePair mints an access and a refresh token for user.

Description: Both tokens carry the user's current role names and ID and get
independent jti values. Nothing is written to any store.
*/
func (service *Service) IssuePair(user *account.User) (*Pair, error) {
	subject := sec.Subject{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}

	access, _, err := service.signer.Sign(subject, sec.TokenTypeAccess, service.options.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("token_service_sign_access_failed: %w", err)
	}

	refresh, _, err := service.signer.Sign(subject, sec.TokenTypeRefresh, service.options.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("token_service_sign_refresh_failed: %w", err)
	}

	service.metrics.TokensIssued(string(sec.TokenTypeAccess))
	service.metrics.TokensIssued(string(sec.TokenTypeRefresh))

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(service.options.AccessTTL / time.Second),
	}, nil
}

/*
Refresh rotates a refresh token into a new pair.

Description: The presented token must be a valid, unrevoked refresh token.
The user is re-read so the new pair reflects current roles. The new pair is
signed first; the presented jti is then claimed in the registry, and only the
caller whose claim inserts the entry receives the pair. A concurrent replay of
the same token therefore fails with [ErrTokenRevoked].

Returns:
  - *Pair: New tokens
  - error: apperr.Unauthorized for any token or subject problem
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*Pair, error) {
	claims, err := service.ValidateRefresh(context, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := service.users.FindUser(context, claims.Email())
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
		}
		return nil, err
	}

	pair, err := service.IssuePair(user)
	if err != nil {
		return nil, err
	}

	claimed, err := service.revoke(context, claims.TokenID(), claims.RemainingLifetime(service.now()))
	if err != nil {
		return nil, err
	}
	if !claimed {
		service.metrics.TokenRejected(reasonRevoked)
		service.logger.Warn("refresh_token_replayed", slog.String("user_id", claims.UserID))
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(ErrTokenRevoked)
	}
	service.recordRevocation(claims)

	return pair, nil
}

// # Revocation

/*
Revoke adds jti to the registry for ttl.

Description: Revoking an already revoked or already expired token is a no-op.
*/
func (service *Service) Revoke(context context.Context, jti string, ttl time.Duration) error {
	_, err := service.revoke(context, jti, ttl)
	return err
}

// RevokeClaims revokes a parsed token for the rest of its lifetime.
func (service *Service) RevokeClaims(context context.Context, claims *sec.Claims) error {
	if err := service.Revoke(context, claims.TokenID(), claims.RemainingLifetime(service.now())); err != nil {
		return err
	}
	service.recordRevocation(claims)
	return nil
}

func (service *Service) revoke(context context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	inserted, err := service.registry.Revoke(context, jti, ttl)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("token_service_revoke_failed: %w", err))
	}
	return inserted, nil
}

func (service *Service) recordRevocation(claims *sec.Claims) {
	service.metrics.TokenRevoked(string(claims.Type))
	service.logger.Info("token_revoked",
		slog.String("user_id", claims.UserID),
		slog.String("type", string(claims.Type)),
	)
}

// # Validation

// Validate checks an access token and returns its claims.
func (service *Service) Validate(context context.Context, raw string) (*sec.Claims, error) {
	return service.validate(context, raw, sec.TokenTypeAccess)
}

// ValidateRefresh checks a refresh token and returns its claims.
func (service *Service) ValidateRefresh(context context.Context, raw string) (*sec.Claims, error) {
	return service.validate(context, raw, sec.TokenTypeRefresh)
}

/*
validate runs every check and maps failures to 401.

Returns:
  - error: apperr.Unauthorized whose cause wraps one of sec.ErrTokenInvalid,
    sec.ErrTokenExpired, sec.ErrWrongTokenType or ErrTokenRevoked;
    apperr.Internal when the registry is unreachable
*/
func (service *Service) validate(context context.Context, raw string, expected sec.TokenType) (*sec.Claims, error) {
	claims, err := service.signer.Parse(raw, expected)
	if err != nil {
		service.metrics.TokenRejected(rejectionReason(err))
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
	}

	revoked, err := service.registry.IsRevoked(context, claims.TokenID())
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("token_service_registry_failed: %w", err))
	}
	if revoked {
		service.metrics.TokenRejected(reasonRevoked)
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(ErrTokenRevoked)
	}

	return claims, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		return reasonExpired
	case errors.Is(err, sec.ErrWrongTokenType):
		return reasonWrongType
	default:
		return reasonInvalid
	}
}
