// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives of the auth service.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing and
// parsing, role checks) from the domain logic. It knows nothing about the
// revocation registry; statefulness lives in the token service above it.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// # Token Types

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and foreign issuers.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrTokenExpired is returned when the exp claim lies in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa.
	ErrWrongTokenType = errors.New("sec: wrong token type")
)

// Claims is the payload embedded inside every token the service issues.
//
// The subject is the user's email. Roles and UserID are copied from the
// credential store at issuance and are not re-checked until the token is
// refreshed.
type Claims struct {
	jwt.RegisteredClaims

	Roles  []string  `json:"roles"`
	UserID string    `json:"user_id"`
	Type   TokenType `json:"type"`
}

// Email returns the identity the token was issued for.
func (claims *Claims) Email() string { return claims.Subject }

// TokenID returns the jti claim used as the revocation key.
func (claims *Claims) TokenID() string { return claims.ID }

// RemainingLifetime reports how long the token stays valid from now.
// It is never negative.
func (claims *Claims) RemainingLifetime(now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// # Signer

// Subject describes the identity a token is minted for.
type Subject struct {
	UserID string
	Email  string
	Roles  []string
}

// Signer mints and parses RS256 tokens.
type Signer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	now        func() time.Time
}

// NewSigner reads PEM-encoded RSA keys from the filesystem and builds a [Signer].
func NewSigner(privateKeyPath, publicKeyPath, issuer string) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewSignerFromKeys(privateKey, publicKey, issuer)
}

// NewSignerFromKeys builds a [Signer] from in-memory keys. The public key must
// be the private key's public half.
func NewSignerFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string) (*Signer, error) {
	if privateKey == nil || publicKey == nil {
		return nil, errors.New("sec: signing keys are required")
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, errors.New("sec: public key does not match private key")
	}
	return &Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		now:        time.Now,
	}, nil
}

// WithClock replaces the signer's time source. Used by tests.
func (signer *Signer) WithClock(now func() time.Time) *Signer {
	clone := *signer
	clone.now = now
	return &clone
}

// Sign mints a token of the given type for subject, valid for timeToLive.
// Every token gets a fresh jti.
func (signer *Signer) Sign(subject Subject, tokenType TokenType, timeToLive time.Duration) (string, *Claims, error) {
	tokenID, err := uuid.NewV7()
	if err != nil {
		return "", nil, fmt.Errorf("sec: failed to generate token id: %w", err)
	}

	issuedAt := signer.now()
	roles := subject.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   subject.Email,
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
		},
		Roles:  roles,
		UserID: subject.UserID,
		Type:   tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(signer.privateKey)
	if err != nil {
		return "", nil, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, claims, nil
}

// Parse verifies signature, issuer and expiry and checks the token type.
//
// The returned error wraps exactly one of [ErrTokenInvalid], [ErrTokenExpired]
// or [ErrWrongTokenType].
func (signer *Signer) Parse(raw string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			return signer.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}

	if claims.Type != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, expected)
	}

	return claims, nil
}
