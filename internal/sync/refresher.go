// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"
	"fmt"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// DefaultRefreshBatch is the number of movies refreshed per scheduled run.
const DefaultRefreshBatch = 50

// StatsOutcome classifies a single stats refresh.
type StatsOutcome string

const (
	// StatsUpdated means rating and popularity were overwritten.
	StatsUpdated StatsOutcome = "updated"
	// StatsNotStored means the movie is not in the store; nothing was fetched.
	StatsNotStored StatsOutcome = "not_stored"
	// StatsSourceUnavailable means the movie detail could not be fetched or
	// lacked vote_average or popularity.
	StatsSourceUnavailable StatsOutcome = "source_unavailable"
)

// RefreshBatchResult summarizes one RefreshOldest run.
type RefreshBatchResult struct {
	BatchSize      int `json:"batch_size"`
	Selected       int `json:"selected"`
	Dispatched     int `json:"dispatched"`
	DispatchFailed int `json:"dispatch_failed"`
}

// StatsResult describes one RefreshStats call.
type StatsResult struct {
	TMDBID     int64        `json:"tmdb_id"`
	Outcome    StatsOutcome `json:"outcome"`
	Rating     float64      `json:"rating,omitempty"`
	Popularity float64      `json:"popularity,omitempty"`
}

// Refresher keeps the scores of stored movies current.
type Refresher struct {
	source   CatalogSource
	store    Store
	dispatch StatsDispatcher
}

// NewRefresher creates a refresher. dispatch may be nil for a refresher
// that only serves RefreshStats.
func NewRefresher(source CatalogSource, store Store, dispatch StatsDispatcher) *Refresher {
	return &Refresher{source: source, store: store, dispatch: dispatch}
}

// RefreshOldest dispatches a stats refresh for the batchSize movies with the
// lowest surrogate ids. It fails with ErrEmptyCatalog when no movie is
// stored; a zero batch on a non-empty store selects nothing and succeeds.
func (r *Refresher) RefreshOldest(ctx context.Context, batchSize int) (*RefreshBatchResult, error) {
	if batchSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, batchSize)
	}
	if r.dispatch == nil {
		return nil, fmt.Errorf("refresh oldest: no stats dispatcher configured")
	}

	total, err := r.store.CountMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh oldest: %w", err)
	}
	if total == 0 {
		return nil, ErrEmptyCatalog
	}

	ids, err := r.store.OldestMovies(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("refresh oldest: %w", err)
	}

	log := logging.CtxWith(ctx).Str("component", "refresher").Logger()
	result := &RefreshBatchResult{BatchSize: batchSize, Selected: len(ids)}
	for _, id := range ids {
		if err := r.dispatch.DispatchStatsRefresh(ctx, id); err != nil {
			result.DispatchFailed++
			log.Warn().Err(err).Int64("tmdb_id", id).Msg("Failed to dispatch stats refresh")
			continue
		}
		result.Dispatched++
	}
	metrics.RefreshDispatched.Add(float64(result.Dispatched))

	log.Info().
		Int("batch_size", batchSize).
		Int("selected", result.Selected).
		Int("dispatched", result.Dispatched).
		Msg("Stats refresh dispatched")
	return result, nil
}

// RefreshStats re-fetches one stored movie and overwrites its rating and
// popularity. Genres and cast are left alone.
func (r *Refresher) RefreshStats(ctx context.Context, tmdbID int64) (result *StatsResult, err error) {
	defer func() {
		outcome := "failed"
		if err == nil {
			outcome = string(result.Outcome)
		}
		metrics.RefreshTotal.WithLabelValues(outcome).Inc()
	}()

	log := logging.CtxWith(ctx).Str("component", "refresher").Int64("tmdb_id", tmdbID).Logger()

	exists, err := r.store.MovieExists(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("refresh stats %d: %w", tmdbID, err)
	}
	if !exists {
		log.Debug().Msg("Movie not stored, skipping stats refresh")
		return &StatsResult{TMDBID: tmdbID, Outcome: StatsNotStored}, nil
	}

	raw, ok := r.source.MovieDetails(ctx, tmdbID)
	if !ok {
		return &StatsResult{TMDBID: tmdbID, Outcome: StatsSourceUnavailable}, nil
	}
	rating, okRating := raw.Float("vote_average")
	popularity, okPopularity := raw.Float("popularity")
	if !okRating || !okPopularity {
		log.Warn().Msg("Movie payload lacks vote_average or popularity")
		return &StatsResult{TMDBID: tmdbID, Outcome: StatsSourceUnavailable}, nil
	}

	updated, err := r.store.UpdateMovieStats(ctx, tmdbID, rating, popularity)
	if err != nil {
		return nil, fmt.Errorf("refresh stats %d: %w", tmdbID, err)
	}
	if !updated {
		// deleted between the existence check and the update
		return &StatsResult{TMDBID: tmdbID, Outcome: StatsNotStored}, nil
	}

	log.Debug().Float64("rating", rating).Float64("popularity", popularity).Msg("Stats updated")
	return &StatsResult{TMDBID: tmdbID, Outcome: StatsUpdated, Rating: rating, Popularity: popularity}, nil
}
