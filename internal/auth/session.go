// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is a persisted sign-in, identified by its token.
type Session struct {
	ID        ulid.ULID
	UserID    string
	Token     string
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session instance.
// UserAgent and IPAddress are optional and may be empty.
func NewSession(userID, token, userAgent, ipAddress string, expiresAt time.Time) (*Session, error) {
	if userID == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be empty")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("session token cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		Token:     token,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsExpiredAt reports whether the session is no longer valid at t.
// A session is valid only while t is strictly before ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by its exact token.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// DeleteByToken removes the session with the given token. Returns an
	// error wrapping ErrNotFound when no such session exists.
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired removes sessions with expires_at <= now and returns the
	// count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
