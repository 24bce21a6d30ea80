// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cinematch/internal/catalog"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/transform"
)

// DefaultMaxCast is how many leading credits entries an import considers.
const DefaultMaxCast = 15

// ImportOutcome classifies a finished import.
type ImportOutcome string

const (
	// OutcomeImported means the movie and its links were committed.
	OutcomeImported ImportOutcome = "imported"
	// OutcomeAlreadyPresent means the movie was stored before; nothing was written.
	OutcomeAlreadyPresent ImportOutcome = "already_present"
	// OutcomeSourceUnavailable means the movie detail could not be fetched or
	// transformed; nothing was written.
	OutcomeSourceUnavailable ImportOutcome = "source_unavailable"
)

// ImportResult describes one import.
type ImportResult struct {
	TMDBID        int64         `json:"tmdb_id"`
	MovieID       int64         `json:"movie_id,omitempty"`
	Title         string        `json:"title,omitempty"`
	Outcome       ImportOutcome `json:"outcome"`
	Genres        int           `json:"genres"`
	Actors        int           `json:"actors"`
	SkippedActors int           `json:"skipped_actors"`
}

// castMember is a transformed person with the character from the credits.
type castMember struct {
	actor     *models.ActorCreate
	character string
}

// FetchedMovie is everything an import needs before opening a transaction.
type FetchedMovie struct {
	movie   *models.MovieCreate
	genres  []models.GenreCreate
	cast    []castMember
	skipped int
}

// Importer imports single movies. Safe for concurrent use.
type Importer struct {
	source  CatalogSource
	store   Store
	maxCast int
}

// NewImporter creates an importer. maxCast <= 0 selects DefaultMaxCast.
func NewImporter(source CatalogSource, store Store, maxCast int) *Importer {
	if maxCast <= 0 {
		maxCast = DefaultMaxCast
	}
	return &Importer{source: source, store: store, maxCast: maxCast}
}

// Import fetches a movie and writes it with its genres and cast in a unit
// of work of its own. Importing a stored movie again is a no-op reported as
// OutcomeAlreadyPresent.
//
// A write or commit that loses to a concurrent import of the same movie is
// also reported as OutcomeAlreadyPresent. Any other non-nil error means the
// write phase failed and was rolled back.
func (im *Importer) Import(ctx context.Context, tmdbID int64) (result *ImportResult, err error) {
	start := time.Now()
	log := logging.CtxWith(ctx).Str("component", "importer").Int64("tmdb_id", tmdbID).Logger()
	defer func() {
		outcome := ""
		skipped := 0
		if result != nil {
			outcome = string(result.Outcome)
			skipped = result.SkippedActors
		}
		metrics.RecordImport(outcome, time.Since(start), skipped, err)
	}()

	exists, err := im.store.MovieExists(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("check movie %d: %w", tmdbID, err)
	}
	if exists {
		log.Debug().Msg("Movie already stored, skipping import")
		return &ImportResult{TMDBID: tmdbID, Outcome: OutcomeAlreadyPresent}, nil
	}

	fetched, err := im.fetch(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if fetched == nil {
		log.Warn().Msg("Movie detail unavailable, nothing imported")
		return &ImportResult{TMDBID: tmdbID, Outcome: OutcomeSourceUnavailable}, nil
	}

	uow, err := im.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Rollback failed")
		}
	}()

	result, err = im.write(ctx, uow, fetched)
	if err != nil {
		return im.settleConflict(ctx, uow, tmdbID, err)
	}
	if result.Outcome != OutcomeImported {
		// lost a race with a concurrent import; the deferred rollback drops
		// any genres or actors resolved so far
		return result, nil
	}
	if err := uow.Commit(); err != nil {
		return im.settleConflict(ctx, uow, tmdbID, fmt.Errorf("import movie %d: %w", tmdbID, err))
	}

	log.Info().
		Int64("movie_id", result.MovieID).
		Str("title", result.Title).
		Int("genres", result.Genres).
		Int("actors", result.Actors).
		Int("skipped_actors", result.SkippedActors).
		Msg("Movie imported")
	return result, nil
}

// settleConflict rolls uow back after a failed write or commit. When the
// failure was a lost race and the winner stored this movie, the import is
// reported as OutcomeAlreadyPresent; otherwise err is returned.
func (im *Importer) settleConflict(ctx context.Context, uow UnitOfWork, tmdbID int64, err error) (*ImportResult, error) {
	log := logging.CtxWith(ctx).Str("component", "importer").Int64("tmdb_id", tmdbID).Logger()
	if rbErr := uow.Rollback(); rbErr != nil {
		log.Error().Err(rbErr).Msg("Rollback failed")
	}
	if !errors.Is(err, database.ErrWriteConflict) {
		log.Error().Err(err).Msg("Import write failed, rolled back")
		return nil, err
	}

	exists, checkErr := im.store.MovieExists(ctx, tmdbID)
	if checkErr != nil || !exists {
		log.Warn().Err(err).Msg("Import lost a write conflict, rolled back")
		return nil, err
	}
	log.Info().Err(err).Msg("Concurrent import stored the movie first")
	return &ImportResult{TMDBID: tmdbID, Outcome: OutcomeAlreadyPresent}, nil
}

// Fetch runs the network phase of an import on its own. It fails with
// ErrSourceUnavailable when the movie detail cannot be fetched or has no
// usable id.
func (im *Importer) Fetch(ctx context.Context, tmdbID int64) (*FetchedMovie, error) {
	fetched, err := im.fetch(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if fetched == nil {
		return nil, fmt.Errorf("%w: movie %d", ErrSourceUnavailable, tmdbID)
	}
	return fetched, nil
}

// ImportWithin writes a fetched movie inside a unit of work owned by the
// caller, who remains responsible for Commit or Rollback. Nothing is read
// from the catalog here, so several imports can share one short
// transaction.
func (im *Importer) ImportWithin(ctx context.Context, uow UnitOfWork, fetched *FetchedMovie) (*ImportResult, error) {
	if fetched == nil {
		return nil, fmt.Errorf("import within: %w", ErrSourceUnavailable)
	}
	return im.write(ctx, uow, fetched)
}

// fetch gathers the movie, its genres and its transformed cast. It returns
// nil when the movie itself is unavailable. An error is returned only when
// ctx ends during the fetch phase, since every fetch after that point would
// report absent and the import would silently lose its cast.
func (im *Importer) fetch(ctx context.Context, tmdbID int64) (*FetchedMovie, error) {
	raw, ok := im.source.MovieDetails(ctx, tmdbID)
	if !ok {
		return nil, ctx.Err()
	}
	movie := transform.Movie(raw)
	if movie == nil {
		logging.Ctx(ctx).Warn().
			Str("component", "importer").
			Int64("tmdb_id", tmdbID).
			Msg("Movie payload has no usable id")
		return nil, nil
	}

	f := &FetchedMovie{movie: movie, genres: transform.Genres(raw)}

	credits, ok := im.source.MovieCredits(ctx, tmdbID)
	if ok {
		for _, credit := range transform.CastEntries(credits, im.maxCast) {
			f.addCastMember(ctx, im.source, credit)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
	}
	return f, nil
}

func (f *FetchedMovie) addCastMember(ctx context.Context, source CatalogSource, credit models.CastCredit) {
	person, ok := source.PersonDetails(ctx, credit.PersonID)
	if !ok {
		f.skipped++
		return
	}
	actor := transform.Actor(person)
	if actor == nil {
		f.skipped++
		return
	}
	f.cast = append(f.cast, castMember{actor: actor, character: credit.Character})
}

// write performs the ordered writes of one import inside uow: genres,
// movie, genre links, actors and actor links.
func (im *Importer) write(ctx context.Context, uow UnitOfWork, f *FetchedMovie) (*ImportResult, error) {
	tmdbID := f.movie.TMDBID
	result := &ImportResult{TMDBID: tmdbID, Title: f.movie.Title, SkippedActors: f.skipped}

	if id, found, err := uow.MovieIDByTMDB(ctx, tmdbID); err != nil {
		return nil, fmt.Errorf("check movie %d: %w", tmdbID, err)
	} else if found {
		result.MovieID = id
		result.Outcome = OutcomeAlreadyPresent
		return result, nil
	}

	genreIDs := make([]int64, 0, len(f.genres))
	for _, g := range f.genres {
		id, err := uow.ResolveGenre(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
		}
		genreIDs = append(genreIDs, id)
	}

	movieID, inserted, err := uow.InsertMovie(ctx, f.movie)
	if err != nil {
		return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
	}
	result.MovieID = movieID
	if !inserted {
		result.Outcome = OutcomeAlreadyPresent
		return result, nil
	}

	for _, gid := range genreIDs {
		if err := uow.LinkGenre(ctx, movieID, gid); err != nil {
			return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
		}
	}
	result.Genres = len(genreIDs)

	linked := make(map[int64]struct{}, len(f.cast))
	for _, cm := range f.cast {
		actorID, err := uow.ResolveActor(ctx, *cm.actor)
		if err != nil {
			return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
		}
		if err := uow.LinkActor(ctx, movieID, actorID, cm.character); err != nil {
			return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
		}
		linked[actorID] = struct{}{}
	}
	result.Actors = len(linked)
	result.Outcome = OutcomeImported
	return result, nil
}

// compile-time check that the catalog client satisfies the port
var _ CatalogSource = (*catalog.Client)(nil)
