// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/tasks"
)

// TaskAccepted is returned by every trigger route.
type TaskAccepted struct {
	TaskID  string       `json:"task_id"`
	Status  tasks.Status `json:"status"`
	Message string       `json:"message"`
}

// TaskStatusResponse is the polled view of one task.
type TaskStatusResponse struct {
	TaskID      string          `json:"task_id"`
	Name        string          `json:"name"`
	Status      tasks.Status    `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

type movieTaskRequest struct {
	TMDBID int64 `query:"tmdb_id" validate:"gt=0"`
}

type crawlRequest struct {
	StartPage int64 `query:"start_page" validate:"min=1,max=500"`
	EndPage   int64 `query:"end_page" validate:"gtefield=StartPage,max=500"`
}

type refreshOldestRequest struct {
	BatchSize int64 `query:"batch_size" validate:"min=0,max=1000"`
}

// ImportMovie queues catalog.import_movie.
func (h *Handler) ImportMovie(w http.ResponseWriter, r *http.Request) {
	h.submitMovieTask(w, r, tasks.TaskImportMovie)
}

// RefreshMovieStats queues catalog.refresh_movie_stats.
func (h *Handler) RefreshMovieStats(w http.ResponseWriter, r *http.Request) {
	h.submitMovieTask(w, r, tasks.TaskRefreshMovieStats)
}

func (h *Handler) submitMovieTask(w http.ResponseWriter, r *http.Request, name string) {
	id, apiErr := getInt64Path(r, "tmdb_id")
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	req := movieTaskRequest{TMDBID: id}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	h.submit(w, r, name, tasks.Args{tasks.ArgTMDBID: req.TMDBID})
}

// CrawlPopular queues catalog.crawl_popular. end_page defaults to
// start_page, start_page to 1.
func (h *Handler) CrawlPopular(w http.ResponseWriter, r *http.Request) {
	start, apiErr := getInt64Query(r, "start_page", 1)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	end, apiErr := getInt64Query(r, "end_page", start)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	req := crawlRequest{StartPage: start, EndPage: end}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	h.submit(w, r, tasks.TaskCrawlPopular, tasks.Args{
		tasks.ArgStartPage: req.StartPage,
		tasks.ArgEndPage:   req.EndPage,
	})
}

// RefreshOldest queues catalog.refresh_oldest. A given batch_size is passed
// on as is, 0 included; without one the worker's configured default applies.
func (h *Handler) RefreshOldest(w http.ResponseWriter, r *http.Request) {
	args := tasks.Args{}
	if r.URL.Query().Has("batch_size") {
		// An empty value fails validation instead of meaning "default".
		size, apiErr := getInt64Query(r, "batch_size", -1)
		if apiErr != nil {
			respondAPIError(w, r, http.StatusBadRequest, apiErr)
			return
		}
		req := refreshOldestRequest{BatchSize: size}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondAPIError(w, r, http.StatusBadRequest, apiErr)
			return
		}
		args[tasks.ArgBatchSize] = req.BatchSize
	}
	h.submit(w, r, tasks.TaskRefreshOldest, args)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, name string, args tasks.Args) {
	handle, err := h.submitter.Submit(r.Context(), name, args)
	switch {
	case err == nil:
	case errors.Is(err, tasks.ErrInvalidArgs), errors.Is(err, tasks.ErrUnknownTask):
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	case errors.Is(err, tasks.ErrQueueClosed):
		respondError(w, r, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "Task queue is shutting down", err)
		return
	default:
		respondError(w, r, http.StatusInternalServerError, "QUEUE_ERROR", "Failed to queue task", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("task_id", handle.TaskID).
		Str("task", name).
		Msg("task queued via API")

	respondSuccess(w, r, http.StatusAccepted, TaskAccepted{
		TaskID:  handle.TaskID,
		Status:  handle.Status,
		Message: fmt.Sprintf("%s queued", name),
	})
}

// TaskStatus reports the current state of a task.
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	rec, err := h.status.Get(r.Context(), id)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Unknown task id", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "STATUS_ERROR", "Failed to read task status", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, TaskStatusResponse{
		TaskID:      rec.TaskID,
		Name:        rec.Name,
		Status:      rec.Status,
		Result:      rec.Result,
		Error:       rec.Error,
		SubmittedAt: rec.SubmittedAt,
		FinishedAt:  rec.FinishedAt,
	})
}
