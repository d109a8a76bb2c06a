// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/auth/mocks"
	"github.com/youngcoder/youngcoder/pkg/errutil"
)

type fixture struct {
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	hasher   *mocks.MockPasswordHasher
	codec    *auth.TokenCodec
	svc      *auth.Service
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    mocks.NewMockUserRepository(t),
		sessions: mocks.NewMockSessionRepository(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		logs:     &bytes.Buffer{},
	}
	codec, err := auth.NewTokenCodec("test-secret", "youngcoder", 0)
	require.NoError(t, err)
	f.codec = codec

	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	svc, err := auth.NewServiceWithLogger(f.users, f.sessions, f.hasher, codec, logger)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func strPtr(s string) *string { return &s }

func activeUser(id, email, hash string) *auth.User {
	return &auth.User{
		ID:                 id,
		Email:              email,
		PasswordHash:       strPtr(hash),
		Name:               "A",
		Role:               auth.RoleStudent,
		SubscriptionStatus: auth.SubscriptionPending,
		IsActive:           true,
	}
}

func TestNewService_NilDependencies(t *testing.T) {
	codec, err := auth.NewTokenCodec("s", "youngcoder", 0)
	require.NoError(t, err)

	tests := []struct {
		name        string
		users       auth.UserRepository
		sessions    auth.SessionRepository
		hasher      auth.PasswordHasher
		tokens      *auth.TokenCodec
		expectError string
	}{
		{"nil users repository", nil, mocks.NewMockSessionRepository(t), mocks.NewMockPasswordHasher(t), codec, "users repository is required"},
		{"nil sessions repository", mocks.NewMockUserRepository(t), nil, mocks.NewMockPasswordHasher(t), codec, "sessions repository is required"},
		{"nil password hasher", mocks.NewMockUserRepository(t), mocks.NewMockSessionRepository(t), nil, codec, "password hasher is required"},
		{"nil token codec", mocks.NewMockUserRepository(t), mocks.NewMockSessionRepository(t), mocks.NewMockPasswordHasher(t), nil, "token codec is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.sessions, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewServiceWithLogger_NilLogger(t *testing.T) {
	codec, err := auth.NewTokenCodec("s", "youngcoder", 0)
	require.NoError(t, err)

	svc, err := auth.NewServiceWithLogger(mocks.NewMockUserRepository(t), mocks.NewMockSessionRepository(t), mocks.NewMockPasswordHasher(t), codec, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()
	age := auth.AgeGroupJunior
	input := auth.SignUpInput{
		Email:     "a@x.com",
		Password:  "secret1",
		Name:      "A",
		Role:      auth.RoleStudent,
		AgeGroup:  &age,
		UserAgent: "Mozilla/5.0",
		IPAddress: "203.0.113.7",
	}

	t.Run("creates user and session", func(t *testing.T) {
		f := newFixture(t)
		var created *auth.User
		var stored *auth.Session

		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))
		f.hasher.On("Hash", "secret1").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*auth.User) }).
			Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*auth.Session) }).
			Return(nil)

		result, err := f.svc.SignUp(ctx, input)
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Same(t, created, result.User)
		assert.Equal(t, "$2a$12$hashed", *created.PasswordHash)
		assert.Equal(t, auth.SubscriptionPending, created.SubscriptionStatus)
		assert.True(t, created.IsActive)
		assert.Equal(t, &age, created.AgeGroup)

		require.NotNil(t, stored)
		assert.Equal(t, created.ID, stored.UserID)
		assert.Equal(t, result.Token, stored.Token)
		assert.Equal(t, "Mozilla/5.0", stored.UserAgent)
		assert.Equal(t, "203.0.113.7", stored.IPAddress)
		assert.Equal(t, result.ExpiresAt, stored.ExpiresAt)

		userID, err := f.codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, userID)

		assert.NotContains(t, f.logs.String(), "secret1")
	})

	t.Run("existing email is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "h"), nil)

		result, err := f.svc.SignUp(ctx, input)
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeUserExists)
	})

	t.Run("unique violation on insert is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "secret1").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken))

		_, err := f.svc.SignUp(ctx, input)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUserExists)
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.New("connection refused"))

		_, err := f.svc.SignUp(ctx, input)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNUP_FAILED")
	})

	t.Run("overlong password is rejected before the email lookup", func(t *testing.T) {
		f := newFixture(t)

		long := input
		long.Password = string(bytes.Repeat([]byte("a"), auth.MaxPasswordBytes+1))
		_, err := f.svc.SignUp(ctx, long)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
		require.Len(t, auth.ValidationDetails(err), 1)
		assert.Equal(t, "password", auth.ValidationDetails(err)[0].Field)
	})

	t.Run("session insert failure leaves user and is internal", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Hash", "secret1").Return("$2a$12$hashed", nil)
		f.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(errors.New("disk full"))

		_, err := f.svc.SignUp(ctx, input)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_CREATE_FAILED")
	})
}

func TestService_SignIn(t *testing.T) {
	ctx := context.Background()
	input := auth.SignInInput{Email: "a@x.com", Password: "secret1", UserAgent: "ua", IPAddress: "10.0.0.1"}

	t.Run("success updates last login and creates session", func(t *testing.T) {
		f := newFixture(t)
		user := activeUser("u1", "a@x.com", "$2a$12$stored")
		var loginAt time.Time

		f.users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		f.hasher.On("Verify", "secret1", "$2a$12$stored").Return(true, nil)
		f.users.On("UpdateLastLogin", ctx, "u1", mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) { loginAt = args.Get(2).(time.Time) }).
			Return(nil)
		f.hasher.On("NeedsUpgrade", "$2a$12$stored").Return(false)
		f.sessions.On("Create", ctx, mock.MatchedBy(func(s *auth.Session) bool {
			return s.UserID == "u1" && s.UserAgent == "ua" && s.IPAddress == "10.0.0.1"
		})).Return(nil)

		result, err := f.svc.SignIn(ctx, input)
		require.NoError(t, err)
		require.NotNil(t, result.User.LastLoginAt)
		assert.Equal(t, loginAt, *result.User.LastLoginAt)
		assert.WithinDuration(t, time.Now(), loginAt, 5*time.Second)

		userID, err := f.codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("unknown email still verifies against dummy hash", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, auth.ErrNotFound)
		f.hasher.On("Verify", "secret1", mock.AnythingOfType("string")).Return(false, nil)

		result, err := f.svc.SignIn(ctx, input)
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		f.hasher.AssertNumberOfCalls(t, "Verify", 1)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "h"), nil)
		f.hasher.On("Verify", "secret1", "h").Return(false, nil)

		_, err := f.svc.SignIn(ctx, input)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("inactive user with correct password", func(t *testing.T) {
		f := newFixture(t)
		user := activeUser("u1", "a@x.com", "h")
		user.IsActive = false
		f.users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		f.hasher.On("Verify", "secret1", "h").Return(true, nil)

		_, err := f.svc.SignIn(ctx, input)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("account without password hash", func(t *testing.T) {
		f := newFixture(t)
		user := activeUser("u1", "a@x.com", "")
		user.PasswordHash = nil
		f.users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		f.hasher.On("Verify", "secret1", mock.AnythingOfType("string")).Return(false, nil)

		_, err := f.svc.SignIn(ctx, input)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("all credential failures are indistinguishable", func(t *testing.T) {
		unknown := newFixture(t)
		unknown.users.On("GetByEmail", ctx, "a@x.com").Return(nil, auth.ErrNotFound)
		unknown.hasher.On("Verify", "secret1", mock.Anything).Return(false, nil)
		_, errUnknown := unknown.svc.SignIn(ctx, input)

		wrong := newFixture(t)
		wrong.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "h"), nil)
		wrong.hasher.On("Verify", "secret1", "h").Return(false, nil)
		_, errWrong := wrong.svc.SignIn(ctx, input)

		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, errutil.Code(errUnknown), errutil.Code(errWrong))
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.New("timeout"))

		_, err := f.svc.SignIn(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNIN_FAILED")
	})

	t.Run("corrupt stored hash is internal", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "bad"), nil)
		f.hasher.On("Verify", "secret1", "bad").Return(false, oops.Code("AUTH_INVALID_HASH").Errorf("bad hash"))

		_, err := f.svc.SignIn(ctx, input)
		require.Error(t, err)
		assert.NotEqual(t, auth.CodeInvalidCredentials, errutil.Code(err))
	})

	t.Run("last login update failure is internal", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "h"), nil)
		f.hasher.On("Verify", "secret1", "h").Return(true, nil)
		f.users.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(errors.New("boom"))

		_, err := f.svc.SignIn(ctx, input)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNIN_FAILED")
	})

	t.Run("weak hash is upgraded", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "weak"), nil)
		f.hasher.On("Verify", "secret1", "weak").Return(true, nil)
		f.users.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(nil)
		f.hasher.On("NeedsUpgrade", "weak").Return(true)
		f.hasher.On("Hash", "secret1").Return("strong", nil)
		f.users.On("UpdatePasswordHash", ctx, "u1", "strong").Return(nil)
		f.sessions.On("Create", ctx, mock.Anything).Return(nil)

		result, err := f.svc.SignIn(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "strong", *result.User.PasswordHash)
	})

	t.Run("hash upgrade failure does not block sign-in", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "weak"), nil)
		f.hasher.On("Verify", "secret1", "weak").Return(true, nil)
		f.users.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(nil)
		f.hasher.On("NeedsUpgrade", "weak").Return(true)
		f.hasher.On("Hash", "secret1").Return("strong", nil)
		f.users.On("UpdatePasswordHash", ctx, "u1", "strong").Return(errors.New("boom"))
		f.sessions.On("Create", ctx, mock.Anything).Return(nil)

		result, err := f.svc.SignIn(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "weak", *result.User.PasswordHash)
		assert.Contains(t, f.logs.String(), "password hash upgrade failed")
	})

	t.Run("each sign-in gets a distinct session", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByEmail", ctx, "a@x.com").Return(activeUser("u1", "a@x.com", "h"), nil)
		f.hasher.On("Verify", "secret1", "h").Return(true, nil)
		f.users.On("UpdateLastLogin", ctx, "u1", mock.Anything).Return(nil)
		f.hasher.On("NeedsUpgrade", "h").Return(false)
		f.sessions.On("Create", ctx, mock.Anything).Return(nil).Twice()

		first, err := f.svc.SignIn(ctx, input)
		require.NoError(t, err)
		second, err := f.svc.SignIn(ctx, input)
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)
	})
}

func TestService_SignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes session", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("DeleteByToken", ctx, "tok").Return(nil)
		f.svc.SignOut(ctx, "tok")
	})

	t.Run("missing session is fine", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("DeleteByToken", ctx, "tok").Return(oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound))
		f.svc.SignOut(ctx, "tok")
		assert.Empty(t, f.logs.String())
	})

	t.Run("store fault is logged and swallowed", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("DeleteByToken", ctx, "tok").Return(errors.New("connection reset"))
		f.svc.SignOut(ctx, "tok")
		assert.Contains(t, f.logs.String(), "sign-out session delete failed")
		assert.NotContains(t, f.logs.String(), `"tok"`)
	})

	t.Run("empty token does nothing", func(t *testing.T) {
		f := newFixture(t)
		f.svc.SignOut(ctx, "")
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session returns user", func(t *testing.T) {
		f := newFixture(t)
		token, expires, err := f.codec.Sign("u1")
		require.NoError(t, err)
		user := activeUser("u1", "a@x.com", "h")

		f.sessions.On("GetByToken", ctx, token).Return(&auth.Session{UserID: "u1", Token: token, ExpiresAt: expires}, nil)
		f.users.On("GetByID", ctx, "u1").Return(user, nil)

		got, err := f.svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Same(t, user, got)
	})

	t.Run("empty token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Authenticate(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeNoToken)
	})

	t.Run("infrastructure faults are internal", func(t *testing.T) {
		f := newFixture(t)
		token, expires, err := f.codec.Sign("u1")
		require.NoError(t, err)
		f.sessions.On("GetByToken", ctx, token).Return(&auth.Session{UserID: "u1", Token: token, ExpiresAt: expires}, nil)
		f.users.On("GetByID", ctx, "u1").Return(nil, errors.New("pool closed"))

		_, err = f.svc.Authenticate(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_AUTHENTICATE_FAILED")
	})

	t.Run("session lookup fault is internal", func(t *testing.T) {
		f := newFixture(t)
		token, _, err := f.codec.Sign("u1")
		require.NoError(t, err)
		f.sessions.On("GetByToken", ctx, token).Return(nil, errors.New("pool closed"))

		_, err = f.svc.Authenticate(ctx, token)
		errutil.AssertErrorCode(t, err, "AUTH_AUTHENTICATE_FAILED")
	})
}

func TestService_Authenticate_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	other, err := auth.NewTokenCodec("other-secret", "youngcoder", 0)
	require.NoError(t, err)

	cases := []struct {
		name  string
		setup func(t *testing.T, f *fixture) string
	}{
		{"bad signature", func(t *testing.T, _ *fixture) string {
			token, _, err := other.Sign("u1")
			require.NoError(t, err)
			return token
		}},
		{"malformed", func(*testing.T, *fixture) string { return "abc" }},
		{"no session row", func(t *testing.T, f *fixture) string {
			token, _, err := f.codec.Sign("u1")
			require.NoError(t, err)
			f.sessions.On("GetByToken", ctx, token).Return(nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound))
			return token
		}},
		{"expired session with valid signature", func(t *testing.T, f *fixture) string {
			token, _, err := f.codec.Sign("u1")
			require.NoError(t, err)
			f.sessions.On("GetByToken", ctx, token).
				Return(&auth.Session{UserID: "u1", Token: token, ExpiresAt: time.Now().Add(-time.Minute)}, nil)
			return token
		}},
		{"session belongs to another user", func(t *testing.T, f *fixture) string {
			token, expires, err := f.codec.Sign("u1")
			require.NoError(t, err)
			f.sessions.On("GetByToken", ctx, token).Return(&auth.Session{UserID: "u2", Token: token, ExpiresAt: expires}, nil)
			return token
		}},
		{"user deleted", func(t *testing.T, f *fixture) string {
			token, expires, err := f.codec.Sign("u1")
			require.NoError(t, err)
			f.sessions.On("GetByToken", ctx, token).Return(&auth.Session{UserID: "u1", Token: token, ExpiresAt: expires}, nil)
			f.users.On("GetByID", ctx, "u1").Return(nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))
			return token
		}},
	}

	var messages []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			token := tc.setup(t, f)

			user, err := f.svc.Authenticate(ctx, token)
			require.Error(t, err)
			assert.Nil(t, user)
			errutil.AssertErrorCode(t, err, auth.CodeUnauthenticated)
			messages = append(messages, err.Error())
		})
	}

	for _, m := range messages {
		assert.Equal(t, messages[0], m)
	}
}

func TestService_PurgeExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("returns count", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("DeleteExpired", ctx, mock.MatchedBy(func(now time.Time) bool {
			return time.Since(now) < 5*time.Second
		})).Return(int64(4), nil)

		n, err := f.svc.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("DeleteExpired", ctx, mock.Anything).Return(int64(0), errors.New("boom"))

		_, err := f.svc.PurgeExpired(ctx)
		errutil.AssertErrorCode(t, err, "AUTH_PURGE_FAILED")
	})
}
