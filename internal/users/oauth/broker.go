// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	stdctx "context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/metrics"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
)

// CallbackPath is the route prefix of provider callbacks relative to the public base URL.
const CallbackPath = "/api/v1/auth/oauth"

// Exchange outcomes used as metric labels.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNoIdent  = "missing_identity"
	outcomeBadState = "state_mismatch"
	fieldOAuthCode  = "code"
	upstreamMessage = "Identity provider exchange failed"
)

// StateLength is the length of the random state sent to providers.
const StateLength = 32

// CallbackParams is what a provider callback delivers plus the state the
// browser was given at [Broker.Authorize].
type CallbackParams struct {
	Code  string
	State string

	// ExpectedState comes from the browser, not from the provider redirect.
	ExpectedState string
}

// IdentityResolver maps a provider subject to a local account.
type IdentityResolver interface {
	FindOrCreateUserBySocialIdentity(context stdctx.Context, provider, subjectID string) (*account.User, bool, error)
}

// Broker routes federated logins to the right [Provider].
type Broker struct {
	providers map[string]Provider
	accounts  IdentityResolver
	client    *http.Client
	timeout   time.Duration
	baseURL   string
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// BrokerOptions configures a [Broker].
type BrokerOptions struct {
	// PublicBaseURL is the externally reachable origin, without a trailing slash.
	PublicBaseURL string
	// Timeout bounds one complete exchange including the identity lookup.
	Timeout time.Duration
	// Transport overrides the HTTP transport; nil uses the default one.
	Transport http.RoundTripper
}

// NewBroker constructs a new [Broker] serving providers.
func NewBroker(providers []Provider, accounts IdentityResolver, options BrokerOptions, recorder metrics.Recorder, logger *slog.Logger) *Broker {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	byName := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		byName[provider.Name()] = provider
	}

	return &Broker{
		providers: byName,
		accounts:  accounts,
		client:    &http.Client{Timeout: options.Timeout, Transport: options.Transport},
		timeout:   options.Timeout,
		baseURL:   options.PublicBaseURL,
		metrics:   recorder,
		logger:    logger,
	}
}

// CallbackURL returns the redirect URI registered for provider.
func (broker *Broker) CallbackURL(provider string) string {
	return fmt.Sprintf("%s%s/%s/callback", broker.baseURL, CallbackPath, provider)
}

/*
Authorize returns the provider consent URL the client should be redirected to.

Description: A fresh random state is embedded in the URL. The caller must
bind it to the browser and hand it back as [CallbackParams.ExpectedState].

Returns:
  - string: Absolute URL
  - string: The state value
  - error: apperr.NotFound for an unknown provider, apperr.Misconfigured
    when its credentials are missing
*/
func (broker *Broker) Authorize(name string) (string, string, error) {
	provider, err := broker.lookup(name)
	if err != nil {
		return "", "", err
	}

	state, err := sec.RandomString(StateLength)
	if err != nil {
		return "", "", apperr.Internal(err)
	}
	return provider.AuthorizeURL(broker.CallbackURL(name), state), state, nil
}

/*
Callback completes a federated login.

Description: The returned state must match the one bound to the browser,
otherwise the code is never exchanged. The code is exchanged exactly once
within the configured timeout. Exchange failures and answers without a
subject surface as 502 and leave the credential store untouched.

Parameters:
  - context: context.Context
  - name: string (provider name from the URL)
  - params: CallbackParams

Returns:
  - *account.User: The linked local account
  - error: apperr.NotFound, apperr.Misconfigured, apperr.Forbidden,
    apperr.ValidationError, apperr.Upstream or storage errors
*/
func (broker *Broker) Callback(context stdctx.Context, name string, params CallbackParams) (*account.User, error) {
	provider, err := broker.lookup(name)
	if err != nil {
		return nil, err
	}

	if !stateMatches(params.State, params.ExpectedState) {
		broker.metrics.OAuthExchange(name, outcomeBadState)
		broker.logger.Warn("oauth_state_mismatch", slog.String("provider", name))
		return nil, apperr.Forbidden("OAuth state mismatch").WithCause(ErrStateMismatch)
	}

	code := params.Code
	if code == "" {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{Field: fieldOAuthCode, Message: "Required"})
	}

	subject, err := broker.exchange(context, provider, code)
	if err != nil {
		outcome := outcomeFailure
		if errors.Is(err, ErrMissingIdentity) {
			outcome = outcomeNoIdent
		}
		broker.metrics.OAuthExchange(name, outcome)
		broker.logger.Warn("oauth_exchange_failed",
			slog.String("provider", name),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Upstream(upstreamMessage, err)
	}
	broker.metrics.OAuthExchange(name, outcomeSuccess)

	user, created, err := broker.accounts.FindOrCreateUserBySocialIdentity(context, name, subject)
	if err != nil {
		return nil, err
	}

	broker.logger.Info("oauth_login",
		slog.String("provider", name),
		slog.String("user_id", user.ID),
		slog.Bool("created", created),
	)
	return user, nil
}

func (broker *Broker) exchange(context stdctx.Context, provider Provider, code string) (string, error) {
	if broker.timeout > 0 {
		var cancel stdctx.CancelFunc
		context, cancel = stdctx.WithTimeout(context, broker.timeout)
		defer cancel()
	}
	context = stdctx.WithValue(context, oauth2.HTTPClient, broker.client)

	return provider.ExchangeCode(context, code, broker.CallbackURL(provider.Name()))
}

func stateMatches(got, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func (broker *Broker) lookup(name string) (Provider, error) {
	provider, ok := broker.providers[name]
	if !ok {
		return nil, apperr.NotFound("OAuth provider")
	}
	if !provider.Configured() {
		return nil, apperr.Misconfigured(fmt.Sprintf("OAuth provider %q is not configured", name))
	}
	return provider, nil
}
