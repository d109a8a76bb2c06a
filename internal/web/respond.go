// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/catalog"
	"github.com/youngcoder/youngcoder/pkg/errutil"
)

// PublicUser is the user record returned to clients. It never carries the
// password hash.
type PublicUser struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	AgeGroup           *string    `json:"ageGroup"`
	PackageID          *string    `json:"packageId"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	IsActive           bool       `json:"isActive"`
	LastLoginAt        *time.Time `json:"lastLoginAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// NewPublicUser projects u for a response.
func NewPublicUser(u *auth.User) PublicUser {
	pu := PublicUser{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               string(u.Role),
		PackageID:          u.PackageID,
		SubscriptionStatus: u.SubscriptionStatus,
		IsActive:           u.IsActive,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
	if u.AgeGroup != nil {
		g := string(*u.AgeGroup)
		pu.AgeGroup = &g
	}
	return pu
}

type sessionResponse struct {
	User         PublicUser `json:"user"`
	SessionToken string     `json:"sessionToken"`
}

type userResponse struct {
	User PublicUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details []auth.FieldError `json:"details,omitempty"`
}

type packagesResponse struct {
	Packages []catalog.Package `json:"packages"`
}

type packageResponse struct {
	Package catalog.Package `json:"package"`
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Outcome labels for the auth outcome metric.
const (
	outcomeSuccess  = "success"
	outcomeInternal = "internal_error"
)

// respondError writes the response for err and logs anything that is not a
// client error. It returns the outcome label for metrics.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, operation string, err error) string {
	code := errutil.Code(err)

	switch code {
	case auth.CodeValidation:
		details := auth.ValidationDetails(err)
		if details == nil {
			details = []auth.FieldError{}
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid input data", Details: details})
	case auth.CodeUserExists:
		writeError(w, http.StatusBadRequest, "User already exists")
	case auth.CodeInvalidCredentials:
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case auth.CodeNoToken:
		writeError(w, http.StatusUnauthorized, "No session token")
	case auth.CodeUnauthenticated:
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
	default:
		errutil.LogErrorContext(r.Context(), s.logger, operation+" failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return outcomeInternal
	}
	return outcomeLabel(code)
}

// failAuth responds to a failed auth operation and records its outcome.
func (s *Server) failAuth(w http.ResponseWriter, r *http.Request, operation string, err error) {
	s.metrics.RecordAuthOutcome(operation, s.respondError(w, r, operation, err))
}

// outcomeLabel turns AUTH_INVALID_CREDENTIALS into invalid_credentials.
func outcomeLabel(code string) string {
	return strings.ToLower(strings.TrimPrefix(code, "AUTH_"))
}
