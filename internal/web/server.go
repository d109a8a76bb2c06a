// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

// Package web serves the JSON HTTP API: authentication, the package catalog
// and a health probe.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/catalog"
	"github.com/youngcoder/youngcoder/internal/observability"
)

// AuthService is the authentication surface used by the handlers.
// *auth.Service implements it.
type AuthService interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*auth.Result, error)
	SignIn(ctx context.Context, in auth.SignInInput) (*auth.Result, error)
	SignOut(ctx context.Context, token string)
	Authenticate(ctx context.Context, token string) (*auth.User, error)
	SessionTTL() time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	auth          AuthService
	catalog       *catalog.Catalog
	schemas       *schemas
	logger        *slog.Logger
	metrics       *observability.Metrics
	secureCookies bool
	now           func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and internal errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request and auth outcome metrics. A nil Metrics is a no-op.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSecureCookies marks the session cookie Secure. Enable in production.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// NewServer creates a Server.
func NewServer(authSvc AuthService, cat *catalog.Catalog, opts ...Option) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Code("WEB_INVALID_SERVER").Errorf("auth service is required")
	}
	if cat == nil {
		return nil, oops.Code("WEB_INVALID_SERVER").Errorf("catalog is required")
	}

	sch, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	s := &Server{
		auth:    authSvc,
		catalog: cat,
		schemas: sch,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(methodNotAllowed(r))

	r.Post("/api/auth/signup", s.handleSignUp)
	r.Post("/api/auth/signin", s.handleSignIn)
	r.Post("/api/auth/signout", s.handleSignOut)
	r.Get("/api/auth/me", s.handleMe)

	r.Get("/api/packages", s.handleListPackages)
	r.Get("/api/packages/{id}", s.handleGetPackage)

	r.Get("/api/health", s.handleHealth)

	return r
}

var routableMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// methodNotAllowed answers 405 with the Allow header listing the methods
// registered for the path.
func methodNotAllowed(mux *chi.Mux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, m := range routableMethods {
			if mux.Match(chi.NewRouteContext(), m, r.URL.Path) {
				w.Header().Add("Allow", m)
			}
		}
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Time:   s.now().UTC().Format(time.RFC3339),
	})
}
