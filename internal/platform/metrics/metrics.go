// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes Prometheus counters for the credential lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services depend on. [Nop] satisfies it for tests.
type Recorder interface {
	TokensIssued(kind string)
	TokenRejected(reason string)
	TokenRevoked(kind string)
	Login(method, deviceClass string)
	LoginFailed(method string)
	OAuthExchange(provider, outcome string)
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	tokensIssued  *prometheus.CounterVec
	tokenRejected *prometheus.CounterVec
	tokenRevoked  *prometheus.CounterVec
	logins        *prometheus.CounterVec
	loginFailures *prometheus.CounterVec
	oauthExchange *prometheus.CounterVec
}

// NewCollector registers every auth metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_tokens_issued_total",
			Help: "Signed tokens issued, by token type.",
		}, []string{"type"}),
		tokenRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_token_rejected_total",
			Help: "Tokens rejected during validation, by reason.",
		}, []string{"reason"}),
		tokenRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_tokens_revoked_total",
			Help: "Token identifiers written to the revocation registry, by token type.",
		}, []string{"type"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_logins_total",
			Help: "Successful logins, by method and device class.",
		}, []string{"method", "device_class"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_login_failures_total",
			Help: "Rejected login attempts, by method.",
		}, []string{"method"}),
		oauthExchange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yomira_auth_oauth_exchanges_total",
			Help: "Authorization-code exchanges with identity providers, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.tokenRejected,
		c.tokenRevoked,
		c.logins,
		c.loginFailures,
		c.oauthExchange,
	)

	return c
}

func (c *Collector) TokensIssued(kind string) { c.tokensIssued.WithLabelValues(kind).Inc() }

func (c *Collector) TokenRejected(reason string) { c.tokenRejected.WithLabelValues(reason).Inc() }

func (c *Collector) TokenRevoked(kind string) { c.tokenRevoked.WithLabelValues(kind).Inc() }

func (c *Collector) Login(method, deviceClass string) {
	c.logins.WithLabelValues(method, deviceClass).Inc()
}

func (c *Collector) LoginFailed(method string) { c.loginFailures.WithLabelValues(method).Inc() }

func (c *Collector) OAuthExchange(provider, outcome string) {
	c.oauthExchange.WithLabelValues(provider, outcome).Inc()
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) TokensIssued(string)          {}
func (Nop) TokenRejected(string)         {}
func (Nop) TokenRevoked(string)          {}
func (Nop) Login(string, string)         {}
func (Nop) LoginFailed(string)           {}
func (Nop) OAuthExchange(string, string) {}
