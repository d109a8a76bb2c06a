// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/youngcoder/youngcoder/internal/auth"
)

const emailUniqueConstraint = "users_email_key"

const userColumns = `id, email, password_hash, name, role, age_group, package_id, subscription_status,
		school_id, parent_user_id, grade, subjects, last_login_at, is_active, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	var ageGroup *string
	if user.AgeGroup != nil {
		s := string(*user.AgeGroup)
		ageGroup = &s
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, age_group, package_id,
			subscription_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		ageGroup,
		user.PackageID,
		user.SubscriptionStatus,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isEmailConflict(err) {
			return oops.Code("USER_EMAIL_TAKEN").
				With("constraint", emailUniqueConstraint).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email. No case folding is applied.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// UpdateLastLogin records a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET last_login_at = $2, updated_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return oops.Code("USER_UPDATE_LAST_LOGIN_FAILED").
			With("operation", "update last_login_at").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id, hash)
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password_hash").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == emailUniqueConstraint
}

// scanUser scans a single row into a User.
// Scan errors are returned unwrapped; callers handle pgx.ErrNoRows and attach
// the operation's error code.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u        auth.User
		role     string
		ageGroup *string
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &ageGroup, &u.PackageID, &u.SubscriptionStatus,
		&u.SchoolID, &u.ParentUserID, &u.Grade, &u.Subjects, &u.LastLoginAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers attach the operation code
	}

	u.Role = auth.Role(role)
	if ageGroup != nil {
		g := auth.AgeGroup(*ageGroup)
		u.AgeGroup = &g
	}
	return &u, nil
}
