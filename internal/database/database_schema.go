// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
database_schema.go - Catalog Schema

Tables:
  - movies: one row per external movie or series id
  - genres, actors: shared reference rows keyed by external id
  - movie_genres, movie_actors: link rows with composite primary keys

The DDL is written in the subset accepted by both DuckDB and PostgreSQL:
surrogate ids come from named sequences, there are no foreign keys (DuckDB
cannot cascade), and timestamps are supplied by the application. Link rows
are deleted together with their movie by DeleteMovie.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates sequences and tables
func (db *DB) createTables(ctx context.Context) error {
	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS movies_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS genres_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS actors_id_seq`,

		`CREATE TABLE IF NOT EXISTS movies (
			id BIGINT DEFAULT nextval('movies_id_seq') PRIMARY KEY,
			tmdb_id BIGINT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			media_type TEXT NOT NULL DEFAULT 'movie',
			release_year INTEGER NOT NULL DEFAULT 0,
			release_date DATE,
			rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
			runtime_minutes INTEGER,
			budget BIGINT,
			revenue BIGINT,
			description TEXT,
			tagline TEXT,
			poster_path TEXT,
			add_date TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS genres (
			id BIGINT DEFAULT nextval('genres_id_seq') PRIMARY KEY,
			tmdb_id BIGINT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS actors (
			id BIGINT DEFAULT nextval('actors_id_seq') PRIMARY KEY,
			tmdb_id BIGINT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			biography TEXT,
			birthday DATE,
			deathday DATE,
			popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
			profile_path TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS movie_genres (
			movie_id BIGINT NOT NULL,
			genre_id BIGINT NOT NULL,
			PRIMARY KEY (movie_id, genre_id)
		)`,

		`CREATE TABLE IF NOT EXISTS movie_actors (
			movie_id BIGINT NOT NULL,
			actor_id BIGINT NOT NULL,
			role_name TEXT,
			PRIMARY KEY (movie_id, actor_id)
		)`,
	}
}

// createIndexes adds lookup indexes for the reverse side of the link tables.
func (db *DB) createIndexes(ctx context.Context) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_movie_genres_genre ON movie_genres(genre_id)`,
		`CREATE INDEX IF NOT EXISTS idx_movie_actors_actor ON movie_actors(actor_id)`,
	}
	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
