// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth federates identity from external OAuth 2.0 providers.

A [Provider] knows how to build its consent URL and how to turn an
authorization code into the provider-scoped user id. The [Broker] picks the
provider named in the request, bounds the exchange with a timeout and resolves
the subject to a local account.

Authorization codes are single-use, so nothing here retries an exchange.
*/
package oauth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
)

// Provider names as they appear in URLs and in the social account table.
const (
	ProviderYandex = "yandex"
	ProviderVK     = "vk"
)

var (
	// ErrMissingIdentity is returned when the provider answers without a user id.
	ErrMissingIdentity = errors.New("oauth: provider response carries no user id")

	// ErrStateMismatch is returned when a callback does not echo the state
	// issued to the same browser.
	ErrStateMismatch = errors.New("oauth: state mismatch")
)

// Provider is one identity-provider variant.
type Provider interface {
	Name() string

	// Configured reports whether client credentials are present.
	Configured() bool

	// AuthorizeURL returns the consent page URL that sends the user back to
	// redirectURL carrying state.
	AuthorizeURL(redirectURL, state string) string

	/*
		ExchangeCode trades an authorization code for the provider's user id.

		Description: The HTTP client is taken from the oauth2.HTTPClient
		context value, so the caller controls timeouts.
	*/
	ExchangeCode(context context.Context, code, redirectURL string) (string, error)
}

// base carries the OAuth 2.0 client registration shared by every variant.
type base struct {
	name   string
	config oauth2.Config
}

func newBase(name string, registration config.ProviderConfig, defaults oauth2.Endpoint) base {
	endpoint := oauth2.Endpoint{
		AuthURL:   defaults.AuthURL,
		TokenURL:  defaults.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	if registration.AuthorizeURL != "" {
		endpoint.AuthURL = registration.AuthorizeURL
	}
	if registration.TokenURL != "" {
		endpoint.TokenURL = registration.TokenURL
	}

	return base{
		name: name,
		config: oauth2.Config{
			ClientID:     registration.ClientID,
			ClientSecret: registration.ClientSecret,
			Endpoint:     endpoint,
		},
	}
}

func (provider base) Name() string { return provider.name }

func (provider base) Configured() bool {
	return provider.config.ClientID != "" && provider.config.ClientSecret != ""
}

// AuthorizeURL adds response_type=code, client_id, redirect_uri and state.
func (provider base) AuthorizeURL(redirectURL, state string) string {
	cfg := provider.config
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state)
}

func (provider base) exchange(context context.Context, code, redirectURL string) (*oauth2.Token, error) {
	cfg := provider.config
	cfg.RedirectURL = redirectURL
	return cfg.Exchange(context, code)
}

// NewProviders builds every supported variant from configuration.
func NewProviders(cfg *config.Config) []Provider {
	return []Provider{
		NewYandex(cfg.Yandex),
		NewVK(cfg.VK),
	}
}
