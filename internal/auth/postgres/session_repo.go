// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/youngcoder/youngcoder/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, session_token, expires_at, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		session.ID.String(),
		session.UserID,
		session.Token,
		session.ExpiresAt,
		nullIfEmpty(session.UserAgent),
		nullIfEmpty(session.IPAddress),
		session.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert user_session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByToken retrieves a session by its exact token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, session_token, expires_at, user_agent, ip_address, created_at
		FROM user_sessions
		WHERE session_token = $1
	`, token)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// DeleteByToken removes the session carrying token.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, token)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete user_session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes all sessions expiring at or before now and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired user_sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Scan errors are returned unwrapped; callers handle pgx.ErrNoRows and attach
// the operation's error code.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		s         auth.Session
		userAgent *string
		ipAddress *string
	)

	err := row.Scan(&idStr, &s.UserID, &s.Token, &s.ExpiresAt, &userAgent, &ipAddress, &s.CreatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach the operation code
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}
	s.ID = id
	s.UserAgent = derefString(userAgent)
	s.IPAddress = derefString(ipAddress)
	return &s, nil
}
