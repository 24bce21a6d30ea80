// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/models"
)

// Movie returns a stored movie with its genres and cast.
func (h *Handler) Movie(w http.ResponseWriter, r *http.Request) {
	id, apiErr := getInt64Path(r, "tmdb_id")
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx := r.Context()
	movie, err := h.movies.GetMovieByTMDBID(ctx, id)
	if errors.Is(err, database.ErrMovieNotFound) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Movie is not in the catalog", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load movie", err)
		return
	}

	genres, err := h.movies.MovieGenres(ctx, movie.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load genres", err)
		return
	}
	actors, err := h.movies.MovieActors(ctx, movie.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load cast", err)
		return
	}

	cast := make([]models.CastEntry, len(actors))
	for i, a := range actors {
		cast[i] = models.CastEntry{Actor: a.Actor, RoleName: a.RoleName}
	}
	respondSuccess(w, r, http.StatusOK, models.MovieDetail{
		Movie:  *movie,
		Genres: genres,
		Cast:   cast,
	})
}

// DeleteMovie removes a movie and its links. Shared genres and actors stay.
func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, apiErr := getInt64Path(r, "tmdb_id")
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	err := h.movies.DeleteMovie(r.Context(), id)
	if errors.Is(err, database.ErrMovieNotFound) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Movie is not in the catalog", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete movie", err)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("tmdb_id", id).Msg("movie deleted via API")
	w.WriteHeader(http.StatusNoContent)
}
