// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package web

import (
	"net/http"

	"github.com/youngcoder/youngcoder/internal/auth"
)

// Operation names used in logs and the auth outcome metric.
const (
	opSignUp  = "signup"
	opSignIn  = "signin"
	opSignOut = "signout"
	opMe      = "me"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeRequest(r, s.schemas.signUp, &req, passwordBytes); err != nil {
		s.failAuth(w, r, opSignUp, err)
		return
	}

	in := auth.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      auth.Role(req.Role),
		PackageID: req.PackageID,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
	if req.AgeGroup != nil {
		g := auth.AgeGroup(*req.AgeGroup)
		in.AgeGroup = &g
	}

	res, err := s.auth.SignUp(r.Context(), in)
	if err != nil {
		s.failAuth(w, r, opSignUp, err)
		return
	}
	s.startSession(w, opSignUp, res)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeRequest(r, s.schemas.signIn, &req); err != nil {
		s.failAuth(w, r, opSignIn, err)
		return
	}

	res, err := s.auth.SignIn(r.Context(), auth.SignInInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		s.failAuth(w, r, opSignIn, err)
		return
	}
	s.startSession(w, opSignIn, res)
}

func (s *Server) startSession(w http.ResponseWriter, operation string, res *auth.Result) {
	s.metrics.RecordAuthOutcome(operation, outcomeSuccess)
	setSessionCookie(w, res.Token, s.auth.SessionTTL(), s.secureCookies)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         NewPublicUser(res.User),
		SessionToken: res.Token,
	})
}

// handleSignOut always clears the cookie and succeeds.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(r.Context(), SessionToken(r))
	s.metrics.RecordAuthOutcome(opSignOut, outcomeSuccess)
	clearSessionCookie(w, s.secureCookies)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Successfully signed out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Authenticate(r.Context(), SessionToken(r))
	if err != nil {
		s.failAuth(w, r, opMe, err)
		return
	}
	s.metrics.RecordAuthOutcome(opMe, outcomeSuccess)
	writeJSON(w, http.StatusOK, userResponse{User: NewPublicUser(user)})
}
