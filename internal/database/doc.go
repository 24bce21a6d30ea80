// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package database is the relational catalog store.
//
// # Overview
//
// The store holds movies, genres, actors and the two link tables between
// them. It runs on DuckDB (embedded, the default) or PostgreSQL through the
// pgx stdlib driver; the SQL is restricted to what both accept.
//
// # Files
//
//   - database.go: lifecycle (open, schema, close)
//   - database_schema.go: sequences, tables and indexes
//   - database_connection.go: pool configuration
//   - unit_of_work.go: the write transaction used by imports
//   - movies.go: read helpers, stats refresh and deletion
//   - errors.go: sentinel errors and error classification
//
// # Writes
//
// All multi-row writes for one import go through a UnitOfWork. Genres and
// actors are resolved by external id (lookup, insert on conflict do
// nothing, lookup again), so concurrent imports that share a genre or an
// actor converge on one row. Movies are unique by external id; InsertMovie
// reports a conflict instead of failing.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	uow, err := db.Begin(ctx)
//	...
package database
