// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

// UnitOfWork is one write transaction against the catalog store.
//
// Every UnitOfWork must end in exactly one Commit or Rollback. Rollback
// after Commit is a no-op, so callers can defer it unconditionally:
//
//	uow, err := db.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer uow.Rollback()
//	...
//	return uow.Commit()
type UnitOfWork struct {
	tx   *sql.Tx
	now  time.Time
	done bool
}

// Begin opens a unit of work.
func (db *DB) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx, now: db.now()}, nil
}

// Commit makes every write in the unit visible. Losing to a concurrent
// transaction yields an error wrapping ErrWriteConflict.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return ErrUnitOfWorkDone
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classifyConflict(err))
	}
	return nil
}

// Rollback discards every write in the unit. It is a no-op once the unit
// has finished.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Error().Err(err).Msg("Transaction rollback failed")
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// MovieIDByTMDB returns the surrogate id of a stored movie.
func (u *UnitOfWork) MovieIDByTMDB(ctx context.Context, tmdbID int64) (int64, bool, error) {
	if u.done {
		return 0, false, ErrUnitOfWorkDone
	}
	return selectID(ctx, u.tx, `SELECT id FROM movies WHERE tmdb_id = $1`, tmdbID)
}

// ResolveGenre returns the surrogate id of the genre with g's external id,
// creating the row if it does not exist yet. An existing row keeps its name.
func (u *UnitOfWork) ResolveGenre(ctx context.Context, g models.GenreCreate) (int64, error) {
	if u.done {
		return 0, ErrUnitOfWorkDone
	}
	return u.resolve(ctx, "genre", g.TMDBID,
		`SELECT id FROM genres WHERE tmdb_id = $1`,
		`INSERT INTO genres (tmdb_id, name) VALUES ($1, $2)
		ON CONFLICT (tmdb_id) DO NOTHING RETURNING id`,
		g.TMDBID, g.Name)
}

// ResolveActor returns the surrogate id of the actor with a's external id,
// creating the row if it does not exist yet. An existing row is not updated.
func (u *UnitOfWork) ResolveActor(ctx context.Context, a models.ActorCreate) (int64, error) {
	if u.done {
		return 0, ErrUnitOfWorkDone
	}
	return u.resolve(ctx, "actor", a.TMDBID,
		`SELECT id FROM actors WHERE tmdb_id = $1`,
		`INSERT INTO actors (tmdb_id, name, biography, birthday, deathday, popularity, profile_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tmdb_id) DO NOTHING RETURNING id`,
		a.TMDBID, a.Name, nullString(a.Biography), nullTime(a.Birthday), nullTime(a.Deathday),
		a.Popularity, nullString(a.ProfilePath))
}

// resolve implements lookup, insert-if-absent, lookup again. The second
// lookup picks up a row committed by a concurrent creator between the first
// lookup and the insert.
func (u *UnitOfWork) resolve(ctx context.Context, kind string, tmdbID int64, selectQuery, insertQuery string, insertArgs ...any) (int64, error) {
	id, found, err := selectID(ctx, u.tx, selectQuery, tmdbID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s %d: %w", kind, tmdbID, err)
	}
	if found {
		return id, nil
	}

	id, found, err = selectID(ctx, u.tx, insertQuery, insertArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %d: %w", kind, tmdbID, classifyConflict(err))
	}
	if found {
		return id, nil
	}

	id, found, err = selectID(ctx, u.tx, selectQuery, tmdbID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s %d: %w", kind, tmdbID, err)
	}
	if !found {
		return 0, fmt.Errorf("%s %d vanished after insert conflict", kind, tmdbID)
	}
	return id, nil
}

// InsertMovie stores a new movie. When a movie with the same external id
// already exists nothing is written and inserted is false; id is then the
// existing row's id.
func (u *UnitOfWork) InsertMovie(ctx context.Context, m *models.MovieCreate) (id int64, inserted bool, err error) {
	if u.done {
		return 0, false, ErrUnitOfWorkDone
	}

	var runtime any
	if m.Runtime != nil {
		runtime = int64(*m.Runtime)
	}
	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = models.MediaKindMovie
	}

	id, inserted, err = selectID(ctx, u.tx,
		`INSERT INTO movies (
			tmdb_id, title, media_type, release_year, release_date, rating, popularity,
			runtime_minutes, budget, revenue, description, tagline, poster_path,
			add_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tmdb_id) DO NOTHING RETURNING id`,
		m.TMDBID, m.Title, string(mediaType), int64(m.ReleaseYear), nullTime(m.ReleaseDate),
		m.Rating, m.Popularity, runtime, nullInt64(m.Budget), nullInt64(m.Revenue),
		nullString(m.Description), nullString(m.Tagline), nullString(m.PosterPath),
		u.now, u.now)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert movie %d: %w", m.TMDBID, classifyConflict(err))
	}
	if inserted {
		return id, true, nil
	}

	id, found, err := u.MovieIDByTMDB(ctx, m.TMDBID)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, fmt.Errorf("movie %d vanished after insert conflict", m.TMDBID)
	}
	return id, false, nil
}

// LinkGenre links a movie to a genre. Linking twice is a no-op.
func (u *UnitOfWork) LinkGenre(ctx context.Context, movieID, genreID int64) error {
	if u.done {
		return ErrUnitOfWorkDone
	}
	_, err := u.tx.ExecContext(ctx,
		`INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1, $2)
		ON CONFLICT (movie_id, genre_id) DO NOTHING`,
		movieID, genreID)
	if err != nil {
		return fmt.Errorf("failed to link movie %d to genre %d: %w", movieID, genreID, err)
	}
	return nil
}

// LinkActor links a movie to an actor with the character played. The
// first link for a (movie, actor) pair wins.
func (u *UnitOfWork) LinkActor(ctx context.Context, movieID, actorID int64, roleName string) error {
	if u.done {
		return ErrUnitOfWorkDone
	}
	var role any
	if roleName != "" {
		role = roleName
	}
	_, err := u.tx.ExecContext(ctx,
		`INSERT INTO movie_actors (movie_id, actor_id, role_name) VALUES ($1, $2, $3)
		ON CONFLICT (movie_id, actor_id) DO NOTHING`,
		movieID, actorID, role)
	if err != nil {
		return fmt.Errorf("failed to link movie %d to actor %d: %w", movieID, actorID, err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// selectID runs a query returning at most one id column.
func selectID(ctx context.Context, q queryRower, query string, args ...any) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
