// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package testinfra provides container-backed infrastructure for
// integration tests.
//
// Everything here is behind the integration build tag and uses
// testcontainers-go, so the default test run needs neither Docker nor
// network access.
//
// # PostgreSQL Container
//
// PostgresContainer starts a disposable PostgreSQL server whose DSN can be
// handed straight to the pgx database driver:
//
//	func TestStoreOnPostgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg.Container)
//
//	    db, err := database.New(&config.DatabaseConfig{Driver: "pgx", DSN: pg.DSN})
//	    // ...
//	}
//
// Run with:
//
//	go test -tags integration ./internal/database/...
//
// First run downloads the image. Tests are skipped when Docker is unavailable.
package testinfra
