// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth orchestrates the authentication flows.

Every successful login, local or federated, follows the same sequence:
resolve the account, record a session classified by device, issue a token
pair. Logout and refresh act only on tokens.

Architecture:

  - Service: Composes the credential store, session recorder, token service
    and identity federation broker behind small interfaces.
  - Handler: Thin HTTP mediation under /api/v1/auth.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/metrics"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/oauth"
	"github.com/taibuivan/yomira-auth/internal/users/session"
	"github.com/taibuivan/yomira-auth/internal/users/token"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
)

// loginMethodPassword labels local logins in metrics. Federated logins use the provider name.
const loginMethodPassword = "password"

// invalidCredentials is the single message for every failed local login.
const invalidCredentials = "Invalid email or password"

// # Contracts

// Authenticator checks local credentials.
type Authenticator interface {
	AuthenticateUser(context context.Context, email, password string) (*account.User, bool, error)
}

// SessionRecorder writes and lists login sessions.
type SessionRecorder interface {
	Record(context context.Context, userID, userAgent string) (*session.Session, error)
	List(context context.Context, userID string, params pagination.Params) ([]session.Session, int, error)
}

// TokenIssuer mints, rotates and revokes tokens.
type TokenIssuer interface {
	IssuePair(user *account.User) (*token.Pair, error)
	Refresh(context context.Context, refreshToken string) (*token.Pair, error)
	ValidateRefresh(context context.Context, raw string) (*sec.Claims, error)
	RevokeClaims(context context.Context, claims *sec.Claims) error
}

// Federation resolves external identities.
type Federation interface {
	Authorize(provider string) (location, state string, err error)
	Callback(context context.Context, provider string, params oauth.CallbackParams) (*account.User, error)
}

// Service implements the authentication use cases.
type Service struct {
	accounts   Authenticator
	sessions   SessionRecorder
	tokens     TokenIssuer
	federation Federation
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// NewService constructs a new auth [Service].
func NewService(
	accounts Authenticator,
	sessions SessionRecorder,
	tokens TokenIssuer,
	federation Federation,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		tokens:     tokens,
		federation: federation,
		metrics:    recorder,
		logger:     logger,
	}
}

// # Local Login

// LoginInput holds the credentials and client metadata of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

/*
Login authenticates a user and opens a session.

Description: Wrong passwords and unknown emails produce the same error and
take comparable time.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *token.Pair: Access and refresh tokens
  - error: apperr.ValidationError, apperr.Unauthorized or storage errors
*/
func (service *Service) Login(context context.Context, input LoginInput) (*token.Pair, error) {
	validator := &validate.Validator{}
	validator.Required(account.FieldEmail, input.Email).Required(account.FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, ok, err := service.accounts.AuthenticateUser(context, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		service.metrics.LoginFailed(loginMethodPassword)
		service.logger.Warn("login_failed")
		return nil, apperr.Unauthorized(invalidCredentials)
	}

	return service.openSession(context, user, loginMethodPassword, input.UserAgent)
}

// # Federated Login

// AuthorizeURL returns the consent page of provider and the state the
// callback must present.
func (service *Service) AuthorizeURL(provider string) (string, string, error) {
	return service.federation.Authorize(provider)
}

/*
FederatedLogin completes an OAuth callback and opens a session.

Returns:
  - *token.Pair: Access and refresh tokens
  - error: Broker errors (NotFound, Misconfigured, Forbidden, Upstream) or
    storage errors
*/
func (service *Service) FederatedLogin(context context.Context, provider string, params oauth.CallbackParams, userAgent string) (*token.Pair, error) {
	user, err := service.federation.Callback(context, provider, params)
	if err != nil {
		return nil, err
	}
	return service.openSession(context, user, provider, userAgent)
}

func (service *Service) openSession(context context.Context, user *account.User, method, userAgent string) (*token.Pair, error) {
	recorded, err := service.sessions.Record(context, user.ID, userAgent)
	if err != nil {
		return nil, fmt.Errorf("auth_service_record_session_failed: %w", err)
	}

	pair, err := service.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}

	service.metrics.Login(method, string(recorded.DeviceClass))
	service.logger.Info("login_succeeded",
		slog.String("user_id", user.ID),
		slog.String("method", method),
		slog.String("device_class", string(recorded.DeviceClass)),
	)
	return pair, nil
}

// # Token Lifecycle

/*
Logout revokes the access token of the current request.

Description: When the client also hands over its refresh token, that token is
revoked too, provided it belongs to the same user.

Parameters:
  - context: context.Context
  - claims: *sec.Claims (the authenticated access token)
  - refreshToken: string (optional)

Returns:
  - error: apperr.Unauthorized for a foreign or invalid refresh token, registry errors
*/
func (service *Service) Logout(context context.Context, claims *sec.Claims, refreshToken string) error {
	if claims == nil {
		return apperr.Unauthorized("Authentication required")
	}

	if refreshToken != "" {
		refreshClaims, err := service.tokens.ValidateRefresh(context, refreshToken)
		if err != nil {
			return err
		}
		if refreshClaims.UserID != claims.UserID {
			return apperr.Unauthorized("Refresh token belongs to another user")
		}
		if err := service.tokens.RevokeClaims(context, refreshClaims); err != nil {
			return err
		}
	}

	return service.tokens.RevokeClaims(context, claims)
}

// Refresh exchanges a refresh token for a new pair.
func (service *Service) Refresh(context context.Context, refreshToken string) (*token.Pair, error) {
	if refreshToken == "" {
		return nil, validate.RequiredError(fieldRefreshToken, "Required")
	}
	return service.tokens.Refresh(context, refreshToken)
}

// # History

// History returns one page of the user's login sessions.
func (service *Service) History(context context.Context, userID string, params pagination.Params) ([]session.Session, int, error) {
	return service.sessions.List(context, userID, params)
}
