// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 session tokens.
// It is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec creates a TokenCodec. The secret is required; there is no fallback.
// A ttl of zero selects DefaultSessionTTL.
func NewTokenCodec(secret, issuer string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, oops.Code("CONFIG_INVALID").With("key", "auth.jwt_secret").
			Errorf("jwt secret is required")
	}
	if issuer == "" {
		return nil, oops.Code("CONFIG_INVALID").With("key", "auth.jwt_issuer").
			Errorf("jwt issuer is required")
	}
	if ttl < 0 {
		return nil, oops.Code("CONFIG_INVALID").With("key", "auth.session_ttl").
			Errorf("session ttl cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	c := &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for userID and returns it with its expiry.
// Every token carries a unique id, so two tokens for the same user never collide.
func (c *TokenCodec) Sign(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Errorf("user ID cannot be empty")
	}

	issuedAt := c.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token's algorithm, signature, issuer and expiry and
// returns the embedded user id. Every failure wraps ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", oops.Code(CodeInvalidToken).With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if claims.UserID == "" {
		return "", oops.Code(CodeInvalidToken).With("reason", "missing userId claim").Wrap(ErrInvalidToken)
	}
	return claims.UserID, nil
}
