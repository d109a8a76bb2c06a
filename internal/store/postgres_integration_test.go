// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/youngcoder/youngcoder/internal/store"
)

var _ = Describe("Postgres store", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("youngcoder_test"),
			postgres.WithUsername("youngcoder"),
			postgres.WithPassword("youngcoder"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Open(ctx, connStr, slog.Default())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("reports ready while the database answers", func() {
		Expect(store.Readiness(pool)(ctx)).To(Succeed())
	})

	It("defaults user ids and timestamps", func() {
		var id string
		var active bool
		err := pool.QueryRow(ctx,
			`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) RETURNING id, is_active`,
			"default@example.com", "Default", "student").Scan(&id, &active)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		Expect(active).To(BeTrue())
	})

	It("rejects unknown roles", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO users (email, name, role) VALUES ($1, $2, $3)`,
			"badrole@example.com", "Bad", "admin")
		Expect(err).To(HaveOccurred())
	})

	It("cascades session deletes with the user", func() {
		var userID string
		Expect(pool.QueryRow(ctx,
			`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) RETURNING id`,
			"cascade@example.com", "Cascade", "parent").Scan(&userID)).To(Succeed())

		_, err := pool.Exec(ctx,
			`INSERT INTO user_sessions (id, user_id, session_token, expires_at) VALUES ($1, $2, $3, $4)`,
			"01HZZZZZZZZZZZZZZZZZZZZZZZ", userID, "cascade-token", time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		Expect(err).NotTo(HaveOccurred())

		var n int
		Expect(pool.QueryRow(ctx,
			`SELECT count(*) FROM user_sessions WHERE user_id = $1`, userID).Scan(&n)).To(Succeed())
		Expect(n).To(Equal(0))
	})

	It("fails fast when the context is already cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Open(cctx, connStr, slog.Default())
		Expect(err).To(HaveOccurred())
	})
})
