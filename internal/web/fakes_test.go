// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package web_test

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/youngcoder/youngcoder/internal/auth"
)

// lockedBuffer is a bytes.Buffer safe for concurrent handlers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// memUsers is an in-memory auth.UserRepository.
type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*auth.User
	failing error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*auth.User)}
}

func (m *memUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return nil, m.failing
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return nil, m.failing
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	return nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = &hash
	return nil
}

func (m *memUsers) setActive(email string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			u.IsActive = active
		}
	}
}

// memSessions is an in-memory auth.SessionRepository.
type memSessions struct {
	mu      sync.Mutex
	byToken map[string]*auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: make(map[string]*auth.Session)}
}

func (m *memSessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byToken[s.Token] = &cp
	return nil
}

func (m *memSessions) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) DeleteByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byToken[token]; !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(m.byToken, token)
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.byToken {
		if !now.Before(s.ExpiresAt) {
			delete(m.byToken, token)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) get(token string) (*auth.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	return s, ok
}

func (m *memSessions) expire(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byToken[token]; ok {
		s.ExpiresAt = time.Now().Add(-time.Second)
	}
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byToken)
}
