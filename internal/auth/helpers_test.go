// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth_test

import (
	"bytes"
	"strings"
	"sync"
)

// lockedBuffer is a bytes.Buffer safe for a logger goroutine and a test reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}
