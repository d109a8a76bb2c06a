// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

// Package auth provides account and session authentication for YoungCoder.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a fresh id and validated fields
//   - NewSession - creates a Session bound to a user, token and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Sessions
//
// A session token is a signed JWT (see TokenCodec) that is also persisted in
// the session store. A request is authenticated only when the token verifies,
// a stored session with exactly that token exists and has not expired, and the
// session's user still exists.
//
// # Services
//
// Service coordinates sign-up, sign-in, sign-out and authentication.
// Janitor periodically removes expired sessions.
package auth
