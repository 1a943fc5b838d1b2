// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
)

// defaultYandexIdentityURL is the Yandex ID profile endpoint.
const defaultYandexIdentityURL = "https://login.yandex.ru/info?format=json"

// maxIdentityBody bounds the profile response read from the provider.
const maxIdentityBody = 1 << 20

// Yandex resolves the subject with a second call to the profile endpoint.
type Yandex struct {
	base
	identityURL string
}

// NewYandex builds the Yandex variant. Empty endpoint fields use public defaults.
func NewYandex(registration config.ProviderConfig) *Yandex {
	identityURL := registration.IdentityURL
	if identityURL == "" {
		identityURL = defaultYandexIdentityURL
	}
	return &Yandex{
		base:        newBase(ProviderYandex, registration, endpoints.Yandex),
		identityURL: identityURL,
	}
}

type yandexProfile struct {
	ID string `json:"id"`
}

// ExchangeCode exchanges the code, then reads "id" from the profile endpoint.
func (provider *Yandex) ExchangeCode(context context.Context, code, redirectURL string) (string, error) {
	token, err := provider.exchange(context, code, redirectURL)
	if err != nil {
		return "", fmt.Errorf("oauth_yandex_exchange_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodGet, provider.identityURL, nil)
	if err != nil {
		return "", fmt.Errorf("oauth_yandex_identity_request_failed: %w", err)
	}
	request.Header.Set("Authorization", "OAuth "+token.AccessToken)

	response, err := httpClient(context).Do(request)
	if err != nil {
		return "", fmt.Errorf("oauth_yandex_identity_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth_yandex_identity_failed: status %d", response.StatusCode)
	}

	var profile yandexProfile
	if err := json.NewDecoder(io.LimitReader(response.Body, maxIdentityBody)).Decode(&profile); err != nil {
		return "", fmt.Errorf("oauth_yandex_identity_decode_failed: %w", err)
	}
	if profile.ID == "" {
		return "", ErrMissingIdentity
	}

	return profile.ID, nil
}

// httpClient returns the client stored under oauth2.HTTPClient, or the default one.
func httpClient(context context.Context) *http.Client {
	if client, ok := context.Value(oauth2.HTTPClient).(*http.Client); ok && client != nil {
		return client
	}
	return http.DefaultClient
}
