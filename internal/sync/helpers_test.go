// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/cinematch/internal/catalog"
	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/models"
)

// fakeCatalog serves canned payloads. A missing key is reported as absent.
type fakeCatalog struct {
	mu      sync.Mutex
	movies  map[int64]catalog.Payload
	credits map[int64]catalog.Payload
	persons map[int64]catalog.Payload

	popular    map[int][]int64
	popularErr map[int]error

	movieCalls  int
	personCalls []int64
	pageCalls   []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		movies:     map[int64]catalog.Payload{},
		credits:    map[int64]catalog.Payload{},
		persons:    map[int64]catalog.Payload{},
		popular:    map[int][]int64{},
		popularErr: map[int]error{},
	}
}

func (f *fakeCatalog) MovieDetails(_ context.Context, id int64) (catalog.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movieCalls++
	p, ok := f.movies[id]
	return p, ok
}

func (f *fakeCatalog) MovieCredits(_ context.Context, id int64) (catalog.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.credits[id]
	return p, ok
}

func (f *fakeCatalog) PersonDetails(_ context.Context, id int64) (catalog.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personCalls = append(f.personCalls, id)
	p, ok := f.persons[id]
	return p, ok
}

func (f *fakeCatalog) PopularMovieIDs(_ context.Context, page int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, page)
	if err := f.popularErr[page]; err != nil {
		return nil, err
	}
	return f.popular[page], nil
}

// addMovie registers a movie with genres and a cast of (person id, character) pairs.
func (f *fakeCatalog) addMovie(id int64, title string, genres []catalog.Payload, cast ...castPair) {
	gs := make([]any, len(genres))
	for i, g := range genres {
		gs[i] = map[string]any(g)
	}
	f.movies[id] = catalog.Payload{
		"id":           id,
		"title":        title,
		"release_date": "1999-10-15",
		"vote_average": 8.4,
		"popularity":   61.4,
		"genres":       gs,
	}
	entries := make([]any, len(cast))
	for i, c := range cast {
		entries[i] = map[string]any{"id": c.id, "character": c.character}
	}
	f.credits[id] = catalog.Payload{"id": id, "cast": entries}
}

func (f *fakeCatalog) addPerson(id int64, name string) {
	f.persons[id] = catalog.Payload{"id": id, "name": name, "popularity": 10.0}
}

type castPair struct {
	id        int64
	character string
}

func genre(id int64, name string) catalog.Payload {
	return catalog.Payload{"id": id, "name": name}
}

// recordingDispatcher collects dispatched ids; failFor ids return an error.
type recordingDispatcher struct {
	mu      sync.Mutex
	imports []int64
	stats   []int64
	failFor map[int64]bool
}

var errDispatch = errors.New("queue unavailable")

func (d *recordingDispatcher) DispatchImport(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[id] {
		return errDispatch
	}
	d.imports = append(d.imports, id)
	return nil
}

func (d *recordingDispatcher) DispatchStatsRefresh(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[id] {
		return errDispatch
	}
	d.stats = append(d.stats, id)
	return nil
}

// testDBSemaphore keeps one DuckDB instance alive at a time.
var testDBSemaphore = make(chan struct{}, 1)

func setupStore(t *testing.T) (*database.DB, Store) {
	t.Helper()
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Driver: database.DriverDuckDB, Path: ":memory:"})
	if err != nil {
		t.Fatalf("database.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, NewStore(db)
}

// seedMovies stores bare movies directly, in the given order.
func seedMovies(t *testing.T, db *database.DB, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	uow, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	defer func() { _ = uow.Rollback() }()
	for _, id := range ids {
		if _, _, err := uow.InsertMovie(ctx, &models.MovieCreate{TMDBID: id, Title: "seed", MediaType: models.MediaKindMovie}); err != nil {
			t.Fatalf("InsertMovie(%d) error: %v", id, err)
		}
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
}

// failingStore wraps a Store so that its units of work fail on LinkActor.
type failingStore struct {
	Store
}

func (s failingStore) Begin(ctx context.Context) (UnitOfWork, error) {
	uow, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingUnit{UnitOfWork: uow}, nil
}

var errLinkActor = errors.New("disk full")

type failingUnit struct {
	UnitOfWork
}

func (failingUnit) LinkActor(context.Context, int64, int64, string) error {
	return errLinkActor
}

// conflictingStore makes every commit lose to a concurrent writer. A
// non-zero winner is stored by that writer before the commit fails.
type conflictingStore struct {
	Store
	t         *testing.T
	db        *database.DB
	winner    int64
	commitErr error
}

func (s *conflictingStore) Begin(ctx context.Context) (UnitOfWork, error) {
	uow, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return conflictingUnit{UnitOfWork: uow, store: s}, nil
}

type conflictingUnit struct {
	UnitOfWork
	store *conflictingStore
}

func (u conflictingUnit) Commit() error {
	// Release the connection before the competing transaction runs.
	_ = u.UnitOfWork.Rollback()
	if u.store.winner != 0 {
		seedMovies(u.store.t, u.store.db, u.store.winner)
	}
	return fmt.Errorf("failed to commit transaction: %w", u.store.commitErr)
}
