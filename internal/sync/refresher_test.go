// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/cinematch/internal/catalog"
)

func TestRefreshOldest_EmptyCatalog(t *testing.T) {
	_, store := setupStore(t)
	r := NewRefresher(newFakeCatalog(), store, &recordingDispatcher{})

	for _, batch := range []int{0, 50} {
		if _, err := r.RefreshOldest(context.Background(), batch); !errors.Is(err, ErrEmptyCatalog) {
			t.Errorf("RefreshOldest(%d) on empty store = %v, want ErrEmptyCatalog", batch, err)
		}
	}
}

func TestRefreshOldest(t *testing.T) {
	db, store := setupStore(t)
	seedMovies(t, db, 300, 100, 200)
	ctx := context.Background()

	tests := []struct {
		batch int
		want  []int64
	}{
		{0, nil},
		{2, []int64{300, 100}},
		{50, []int64{300, 100, 200}},
	}
	for _, tt := range tests {
		dispatch := &recordingDispatcher{}
		res, err := NewRefresher(newFakeCatalog(), store, dispatch).RefreshOldest(ctx, tt.batch)
		if err != nil {
			t.Fatalf("RefreshOldest(%d) error: %v", tt.batch, err)
		}
		if !equalIDs(dispatch.stats, tt.want) {
			t.Errorf("RefreshOldest(%d) dispatched %v, want %v", tt.batch, dispatch.stats, tt.want)
		}
		if res.Selected != len(tt.want) || res.Dispatched != len(tt.want) {
			t.Errorf("RefreshOldest(%d) = %+v", tt.batch, res)
		}
	}

	if _, err := NewRefresher(newFakeCatalog(), store, &recordingDispatcher{}).RefreshOldest(ctx, -1); !errors.Is(err, ErrInvalidBatchSize) {
		t.Errorf("RefreshOldest(-1) error = %v, want ErrInvalidBatchSize", err)
	}
}

func TestRefreshOldest_DispatchFailure(t *testing.T) {
	db, store := setupStore(t)
	seedMovies(t, db, 1, 2)
	dispatch := &recordingDispatcher{failFor: map[int64]bool{1: true}}

	res, err := NewRefresher(newFakeCatalog(), store, dispatch).RefreshOldest(context.Background(), 10)
	if err != nil {
		t.Fatalf("RefreshOldest() error: %v", err)
	}
	if res.Dispatched != 1 || res.DispatchFailed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRefreshStats(t *testing.T) {
	db, store := setupStore(t)
	seedMovies(t, db, 550, 551)
	ctx := context.Background()

	src := newFakeCatalog()
	src.movies[550] = catalog.Payload{"id": 550, "vote_average": 8.8, "popularity": 99.5}
	src.movies[551] = catalog.Payload{"id": 551, "vote_average": 7.0}
	r := NewRefresher(src, store, nil)

	tests := []struct {
		id   int64
		want StatsOutcome
	}{
		{550, StatsUpdated},
		{551, StatsSourceUnavailable},
		{552, StatsNotStored},
	}
	for _, tt := range tests {
		res, err := r.RefreshStats(ctx, tt.id)
		if err != nil {
			t.Fatalf("RefreshStats(%d) error: %v", tt.id, err)
		}
		if res.Outcome != tt.want {
			t.Errorf("RefreshStats(%d) outcome = %q, want %q", tt.id, res.Outcome, tt.want)
		}
	}

	m, _ := db.GetMovieByTMDBID(ctx, 550)
	if m.Rating != 8.8 || m.Popularity != 99.5 {
		t.Errorf("stats = %v/%v, want 8.8/99.5", m.Rating, m.Popularity)
	}
	m, _ = db.GetMovieByTMDBID(ctx, 551)
	if m.Rating != 0 {
		t.Errorf("partial payload must not overwrite: rating = %v", m.Rating)
	}
	if src.movieCalls != 2 {
		t.Errorf("movie fetches = %d, want 2 (not stored ids are not fetched)", src.movieCalls)
	}

	if _, err := NewRefresher(src, store, nil).RefreshOldest(ctx, 1); err == nil {
		t.Error("RefreshOldest() without dispatcher should fail")
	}
}
