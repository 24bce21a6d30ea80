// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"

	"github.com/tomtom215/cinematch/internal/catalog"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/models"
)

// CatalogSource is the read side of the external catalog used by imports
// and stat refreshes. A false second return means the payload is
// unavailable; the reason has already been logged.
type CatalogSource interface {
	MovieDetails(ctx context.Context, tmdbID int64) (catalog.Payload, bool)
	MovieCredits(ctx context.Context, tmdbID int64) (catalog.Payload, bool)
	PersonDetails(ctx context.Context, personID int64) (catalog.Payload, bool)
}

// PopularLister returns the movie ids on one page of the popular listing.
// An empty slice with a nil error means the listing is exhausted.
type PopularLister interface {
	PopularMovieIDs(ctx context.Context, page int) ([]int64, error)
}

// ImportDispatcher hands a movie id to an asynchronous import.
type ImportDispatcher interface {
	DispatchImport(ctx context.Context, tmdbID int64) error
}

// StatsDispatcher hands a movie id to an asynchronous stats refresh.
type StatsDispatcher interface {
	DispatchStatsRefresh(ctx context.Context, tmdbID int64) error
}

// UnitOfWork is the transactional write surface of an import.
type UnitOfWork interface {
	MovieIDByTMDB(ctx context.Context, tmdbID int64) (int64, bool, error)
	ResolveGenre(ctx context.Context, g models.GenreCreate) (int64, error)
	ResolveActor(ctx context.Context, a models.ActorCreate) (int64, error)
	InsertMovie(ctx context.Context, m *models.MovieCreate) (int64, bool, error)
	LinkGenre(ctx context.Context, movieID, genreID int64) error
	LinkActor(ctx context.Context, movieID, actorID int64, roleName string) error
	Commit() error
	Rollback() error
}

// Store is the catalog store as seen by this package.
type Store interface {
	MovieExists(ctx context.Context, tmdbID int64) (bool, error)
	ExistingMovieTMDBIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	CountMovies(ctx context.Context) (int64, error)
	OldestMovies(ctx context.Context, limit int) ([]int64, error)
	UpdateMovieStats(ctx context.Context, tmdbID int64, rating, popularity float64) (bool, error)
	Begin(ctx context.Context) (UnitOfWork, error)
}

// NewStore adapts the database to Store.
func NewStore(db *database.DB) Store {
	return dbStore{DB: db}
}

type dbStore struct {
	*database.DB
}

func (s dbStore) Begin(ctx context.Context) (UnitOfWork, error) {
	uow, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return uow, nil
}
