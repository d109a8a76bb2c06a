// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Role is the account type chosen at sign-up.
type Role string

// Known roles.
const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleParent      Role = "parent"
	RoleSchoolAdmin Role = "school_admin"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleStudent, RoleTeacher, RoleParent, RoleSchoolAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleSchoolAdmin:
		return true
	default:
		return false
	}
}

// AgeGroup is the learner age band a student account belongs to.
type AgeGroup string

// Known age groups.
const (
	AgeGroupJunior AgeGroup = "6-11"
	AgeGroupTeen   AgeGroup = "12-17"
)

// Valid reports whether g is a known age group.
func (g AgeGroup) Valid() bool {
	return g == AgeGroupJunior || g == AgeGroupTeen
}

// SubscriptionPending is the status of every newly created account.
const SubscriptionPending = "pending"

// User is a stored account.
type User struct {
	ID                 string
	Email              string
	PasswordHash       *string // nil for externally provisioned accounts
	Name               string
	Role               Role
	AgeGroup           *AgeGroup
	PackageID          *string
	SubscriptionStatus string
	SchoolID           *string
	ParentUserID       *string
	Grade              *string
	Subjects           *string
	LastLoginAt        *time.Time
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewUser creates a validated, active User with a pending subscription.
// ageGroup and packageID are optional.
func NewUser(email, passwordHash, name string, role Role, ageGroup *AgeGroup, packageID *string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if name == "" {
		return nil, oops.Code("USER_INVALID_NAME").Errorf("name cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("USER_INVALID_ROLE").With("role", string(role)).Errorf("unknown role")
	}
	if ageGroup != nil && !ageGroup.Valid() {
		return nil, oops.Code("USER_INVALID_AGE_GROUP").With("age_group", string(*ageGroup)).Errorf("unknown age group")
	}

	now := time.Now().UTC()
	return &User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       &passwordHash,
		Name:               name,
		Role:               role,
		AgeGroup:           ageGroup,
		PackageID:          packageID,
		SubscriptionStatus: SubscriptionPending,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrEmailTaken when
	// the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLastLogin sets LastLoginAt (and UpdatedAt) for a user.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
