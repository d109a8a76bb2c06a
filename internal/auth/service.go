// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when the account is missing or has
// no password, so sign-in time does not reveal whether an email is registered.
// It is a well-formed cost-12 bcrypt hash that matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// SignUpInput is the validated data for a new account.
type SignUpInput struct {
	Email     string
	Password  string
	Name      string
	Role      Role
	AgeGroup  *AgeGroup
	PackageID *string
	UserAgent string
	IPAddress string
}

// SignInInput holds sign-in credentials and request metadata.
type SignInInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// Result is a signed-in user with the token of their new session.
type Result struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service provides authentication operations.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	tokens   *TokenCodec
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service using the default logger.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, tokens *TokenCodec) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, sessions SessionRepository, hasher PasswordHasher, tokens *TokenCodec, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token codec is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SessionTTL returns how long new sessions stay valid.
func (s *Service) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// SignUp creates an account and a first session for it.
//
// The user and session inserts are separate statements. If the session insert
// fails the account still exists; the caller gets an internal error and a
// later sign-in succeeds.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Result, error) {
	if len(in.Password) > MaxPasswordBytes {
		return nil, NewValidationError(PasswordTooLong())
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, errUserExists(in.Email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Email, hash, in.Name, in.Role, in.AgeGroup, in.PackageID)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, errUserExists(in.Email)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "persist user").
			Wrap(err)
	}

	return s.startSession(ctx, user, in.UserAgent, in.IPAddress)
}

// SignIn verifies credentials and opens a new session.
// Unknown email, inactive account, missing password hash and wrong password
// all return the same error.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Result, error) {
	user, lookupErr := s.users.GetByEmail(ctx, in.Email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	// Always verify, against a dummy hash if needed, to keep timing uniform.
	targetHash := dummyPasswordHash
	hasPassword := user != nil && user.HasPassword()
	if hasPassword {
		targetHash = *user.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(in.Password, targetHash)
	if verifyErr != nil {
		if !hasPassword {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}

	if !hasPassword || !valid || !user.IsActive {
		return nil, errInvalidCredentials()
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "update last login").
			With("user_id", user.ID).
			Wrap(err)
	}
	user.LastLoginAt = &now
	user.UpdatedAt = now

	s.upgradeHash(ctx, user, in.Password)

	return s.startSession(ctx, user, in.UserAgent, in.IPAddress)
}

// upgradeHash rehashes the password when the stored hash is weaker than the
// configured cost. Failures are logged and ignored.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(*user.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = &newHash
}

// SignOut deletes the session for token, if any. It never fails: a missing
// session is fine and store faults are logged.
func (s *Service) SignOut(ctx context.Context, token string) {
	if token == "" {
		return
	}
	err := s.sessions.DeleteByToken(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "sign-out session delete failed", "error", err)
	}
}

// Authenticate resolves a session token to its user.
// Returns an AUTH_NO_TOKEN error for an empty token and AUTH_UNAUTHENTICATED
// for every invalid, unknown or expired session.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, errNoToken()
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, errUnauthenticated("invalid_token")
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUnauthenticated("session_not_found")
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		return nil, errUnauthenticated("session_expired")
	}
	if session.UserID != userID {
		return nil, errUnauthenticated("user_mismatch")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUnauthenticated("user_not_found")
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get user by id").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return user, nil
}

// PurgeExpired removes every expired session and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, oops.Code("AUTH_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return n, nil
}

func (s *Service) startSession(ctx context.Context, user *User, userAgent, ipAddress string) (*Result, error) {
	token, expiresAt, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "sign token").
			With("user_id", user.ID).
			Wrap(err)
	}

	session, err := NewSession(user.ID, token, userAgent, ipAddress, expiresAt)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "build session").
			With("user_id", user.ID).
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID).
			Wrap(err)
	}

	return &Result{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
