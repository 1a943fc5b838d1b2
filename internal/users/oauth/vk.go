// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/oauth2/endpoints"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
)

// VK reads the subject straight from the token response.
type VK struct {
	base
}

// NewVK builds the VK variant. Empty endpoint fields use public defaults.
func NewVK(registration config.ProviderConfig) *VK {
	return &VK{base: newBase(ProviderVK, registration, endpoints.Vk)}
}

// ExchangeCode exchanges the code and returns the "user_id" field of the token response.
func (provider *VK) ExchangeCode(context context.Context, code, redirectURL string) (string, error) {
	token, err := provider.exchange(context, code, redirectURL)
	if err != nil {
		return "", fmt.Errorf("oauth_vk_exchange_failed: %w", err)
	}

	subject := ""
	switch value := token.Extra("user_id").(type) {
	case string:
		subject = value
	case float64:
		subject = strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		subject = value.String()
	}

	if subject == "" {
		return "", ErrMissingIdentity
	}
	return subject, nil
}
