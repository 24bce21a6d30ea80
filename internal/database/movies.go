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
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cinematch/internal/models"
)

// ActorRole is an actor together with the character played in one movie.
type ActorRole struct {
	models.Actor
	RoleName string `json:"role_name,omitempty"`
}

// MovieExists reports whether a movie with the external id is stored.
func (db *DB) MovieExists(ctx context.Context, tmdbID int64) (bool, error) {
	_, found, err := selectID(ctx, db.conn, `SELECT id FROM movies WHERE tmdb_id = $1`, tmdbID)
	if err != nil {
		return false, fmt.Errorf("failed to check movie %d: %w", tmdbID, err)
	}
	return found, nil
}

// ExistingMovieTMDBIDs returns the subset of ids that are already stored.
func (db *DB) ExistingMovieTMDBIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	//nolint:gosec // G202: only numbered placeholders are concatenated
	query := `SELECT tmdb_id FROM movies WHERE tmdb_id IN (` + strings.Join(placeholders, ", ") + `)`
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing movies: %w", err)
	}
	defer closeWithLog(rows, "existing movie rows")

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan movie id: %w", err)
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// CountMovies returns the number of stored movies.
func (db *DB) CountMovies(ctx context.Context) (int64, error) {
	return db.count(ctx, "movies")
}

// CountGenres returns the number of stored genres.
func (db *DB) CountGenres(ctx context.Context) (int64, error) {
	return db.count(ctx, "genres")
}

// CountActors returns the number of stored actors.
func (db *DB) CountActors(ctx context.Context) (int64, error) {
	return db.count(ctx, "actors")
}

func (db *DB) count(ctx context.Context, table string) (int64, error) {
	var n int64
	//nolint:gosec // G202: table names are constants from this package
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// OldestMovies returns the external ids of up to limit movies in ascending
// surrogate id order, i.e. the ones added first.
func (db *DB) OldestMovies(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		return []int64{}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tmdb_id FROM movies ORDER BY id ASC LIMIT $1`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest movies: %w", err)
	}
	defer closeWithLog(rows, "oldest movie rows")

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan movie id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateMovieStats overwrites rating and popularity of a stored movie and
// bumps updated_at. It reports whether a row matched.
func (db *DB) UpdateMovieStats(ctx context.Context, tmdbID int64, rating, popularity float64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE movies SET rating = $1, popularity = $2, updated_at = $3 WHERE tmdb_id = $4`,
		rating, popularity, db.now(), tmdbID)
	if err != nil {
		return false, fmt.Errorf("failed to update stats for movie %d: %w", tmdbID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteMovie removes a movie and its genre and actor links in one
// transaction. Shared genre and actor rows are kept.
func (db *DB) DeleteMovie(ctx context.Context, tmdbID int64) error {
	uow, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()

	movieID, found, err := uow.MovieIDByTMDB(ctx, tmdbID)
	if err != nil {
		return fmt.Errorf("failed to look up movie %d: %w", tmdbID, err)
	}
	if !found {
		return ErrMovieNotFound
	}

	for _, query := range []string{
		`DELETE FROM movie_genres WHERE movie_id = $1`,
		`DELETE FROM movie_actors WHERE movie_id = $1`,
		`DELETE FROM movies WHERE id = $1`,
	} {
		if _, err := uow.tx.ExecContext(ctx, query, movieID); err != nil {
			return fmt.Errorf("failed to delete movie %d: %w", tmdbID, err)
		}
	}
	return uow.Commit()
}

// GetMovieByTMDBID loads a stored movie. It returns ErrMovieNotFound when
// the id is unknown.
func (db *DB) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	var (
		m                        models.Movie
		mediaType                string
		releaseYear              int64
		releaseDate              sql.NullTime
		runtime, budget, revenue sql.NullInt64
		description, tagline     sql.NullString
		posterPath               sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, tmdb_id, title, media_type, release_year, release_date, rating, popularity,
			runtime_minutes, budget, revenue, description, tagline, poster_path, add_date, updated_at
		FROM movies WHERE tmdb_id = $1`, tmdbID).Scan(
		&m.ID, &m.TMDBID, &m.Title, &mediaType, &releaseYear, &releaseDate, &m.Rating, &m.Popularity,
		&runtime, &budget, &revenue, &description, &tagline, &posterPath, &m.AddDate, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", tmdbID, err)
	}

	m.MediaType = models.ParseMediaKind(mediaType)
	m.ReleaseYear = int(releaseYear)
	m.ReleaseDate = timePtr(releaseDate)
	if runtime.Valid {
		v := int(runtime.Int64)
		m.Runtime = &v
	}
	m.Budget = int64Ptr(budget)
	m.Revenue = int64Ptr(revenue)
	m.Description = stringPtr(description)
	m.Tagline = stringPtr(tagline)
	m.PosterPath = stringPtr(posterPath)
	return &m, nil
}

// MovieGenres returns the genres linked to a movie, ordered by name.
func (db *DB) MovieGenres(ctx context.Context, movieID int64) ([]models.Genre, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT g.id, g.tmdb_id, g.name
		FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id = $1
		ORDER BY g.name, g.id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres of movie %d: %w", movieID, err)
	}
	defer closeWithLog(rows, "genre rows")

	genres := []models.Genre{}
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.TMDBID, &g.Name); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// MovieActors returns the actors linked to a movie with their roles,
// ordered by actor surrogate id.
func (db *DB) MovieActors(ctx context.Context, movieID int64) ([]ActorRole, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT a.id, a.tmdb_id, a.name, a.biography, a.birthday, a.deathday,
			a.popularity, a.profile_path, ma.role_name
		FROM movie_actors ma JOIN actors a ON a.id = ma.actor_id
		WHERE ma.movie_id = $1
		ORDER BY a.id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actors of movie %d: %w", movieID, err)
	}
	defer closeWithLog(rows, "actor rows")

	actors := []ActorRole{}
	for rows.Next() {
		var (
			ar                           ActorRole
			biography, profile, roleName sql.NullString
			birthday, deathday           sql.NullTime
		)
		if err := rows.Scan(&ar.ID, &ar.TMDBID, &ar.Name, &biography, &birthday, &deathday,
			&ar.Popularity, &profile, &roleName); err != nil {
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		ar.Biography = stringPtr(biography)
		ar.Birthday = timePtr(birthday)
		ar.Deathday = timePtr(deathday)
		ar.ProfilePath = stringPtr(profile)
		ar.RoleName = roleName.String
		actors = append(actors, ar)
	}
	return actors, rows.Err()
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
