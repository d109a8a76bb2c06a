// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/youngcoder/youngcoder/internal/observability"
	"github.com/youngcoder/youngcoder/internal/store"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeMigrator struct {
	version uint
	dirty   bool
	upErr   error
	calls   []string
	closed  bool
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	if m.upErr != nil {
		return m.upErr
	}
	m.version = 2
	return nil
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	m.version = 0
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	v := int(m.version) + n
	if v < 0 {
		v = 0
	}
	m.version = uint(v)
	return nil
}

func (m *fakeMigrator) Force(version int) error {
	m.calls = append(m.calls, "force")
	m.version = uint(version)
	m.dirty = false
	return nil
}

func (m *fakeMigrator) Status() (*store.Status, error) {
	st := &store.Status{Version: m.version, Dirty: m.dirty}
	for _, v := range []uint{1, 2} {
		if v <= m.version {
			st.Applied = append(st.Applied, v)
		} else {
			st.Pending = append(st.Pending, v)
		}
	}
	return st, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

type fakeObservability struct {
	readiness observability.ReadinessChecker
	metrics   *observability.Metrics
	startErr  error
	started   bool
	stopped   bool
}

func newFakeObservability() *fakeObservability {
	return &fakeObservability{metrics: observability.NewMetrics(prometheus.NewRegistry())}
}

func (o *fakeObservability) Start() (<-chan error, error) {
	if o.startErr != nil {
		return nil, o.startErr
	}
	o.started = true
	return make(chan error), nil
}

func (o *fakeObservability) Stop(context.Context) error {
	o.stopped = true
	return nil
}

func (o *fakeObservability) Addr() string { return "127.0.0.1:9100" }
func (o *fakeObservability) Metrics() *observability.Metrics { return o.metrics }

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return mock
}

// testDeps returns deps that never touch a real database.
func testDeps(pool Pool, m *fakeMigrator, obs *fakeObservability) *Deps {
	return &Deps{
		PoolOpener: func(context.Context, string, *slog.Logger) (Pool, error) {
			return pool, nil
		},
		MigratorFactory: func(string) (Migrator, error) {
			return m, nil
		},
		ObservabilityServerFactory: func(_ string, readiness observability.ReadinessChecker, _ *slog.Logger) ObservabilityServer {
			obs.readiness = readiness
			return obs
		},
		LogOutput: io.Discard,
	}
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""
	cmd := newRootCmd(deps)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
