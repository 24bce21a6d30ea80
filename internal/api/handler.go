// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package api exposes the task queue and the stored catalog over HTTP.
//
// Routes:
//
//	POST   /api/v1/tasks/import/{tmdb_id}         queue catalog.import_movie
//	POST   /api/v1/tasks/crawl                    queue catalog.crawl_popular (?start_page=&end_page=)
//	POST   /api/v1/tasks/refresh-oldest           queue catalog.refresh_oldest (?batch_size=)
//	POST   /api/v1/tasks/refresh-stats/{tmdb_id}  queue catalog.refresh_movie_stats
//	GET    /api/v1/tasks/{task_id}                task status and result
//	GET    /api/v1/movies/{tmdb_id}               stored movie with genres and cast
//	DELETE /api/v1/movies/{tmdb_id}               remove a stored movie
//	GET    /healthz                               liveness plus database ping
//	GET    /metrics                               Prometheus exposition
//
// Every trigger answers 202 Accepted with the task id as soon as the task
// is queued; clients poll the status route for the outcome.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/tasks"
)

// TaskStatusReader looks up task records.
type TaskStatusReader interface {
	Get(ctx context.Context, taskID string) (*tasks.Record, error)
}

// MovieStore is the slice of the database the API reads and deletes from.
type MovieStore interface {
	Ping(ctx context.Context) error
	GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*models.Movie, error)
	MovieGenres(ctx context.Context, movieID int64) ([]models.Genre, error)
	MovieActors(ctx context.Context, movieID int64) ([]database.ActorRole, error)
	DeleteMovie(ctx context.Context, tmdbID int64) error
}

var _ MovieStore = (*database.DB)(nil)

// Handler serves the API routes.
type Handler struct {
	submitter tasks.Submitter
	status    TaskStatusReader
	movies    MovieStore
	startTime time.Time
	version   string
}

// NewHandler wires the queue, the task status store and the movie store.
func NewHandler(submitter tasks.Submitter, status TaskStatusReader, movies MovieStore, version string) *Handler {
	return &Handler{
		submitter: submitter,
		status:    status,
		movies:    movies,
		startTime: time.Now(),
		version:   version,
	}
}
