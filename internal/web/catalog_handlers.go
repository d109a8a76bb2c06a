// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youngcoder/youngcoder/internal/auth"
	"github.com/youngcoder/youngcoder/internal/catalog"
)

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	audience := catalog.Audience(r.URL.Query().Get("audience"))
	if audience != "" && !audience.Valid() {
		s.respondError(w, r, "list packages", auth.NewValidationError(auth.FieldError{
			Field:   "audience",
			Message: "value must be one of 'student', 'school'",
		}))
		return
	}
	writeJSON(w, http.StatusOK, packagesResponse{Packages: s.catalog.List(audience)})
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, ok := s.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Package not found")
		return
	}
	writeJSON(w, http.StatusOK, packageResponse{Package: pkg})
}
