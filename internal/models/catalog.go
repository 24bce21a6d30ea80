// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package models holds the stored catalog entities and the creation records
// produced by the payload transformers.
package models

import "time"

// MediaKind distinguishes feature films from series.
type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

// ParseMediaKind maps a catalog media_type value; anything unknown is a movie.
func ParseMediaKind(s string) MediaKind {
	if MediaKind(s) == MediaKindTV {
		return MediaKindTV
	}
	return MediaKindMovie
}

// Movie is a stored movie or series. TMDBID never changes once stored.
type Movie struct {
	ID          int64      `json:"id"`
	TMDBID      int64      `json:"tmdb_id"`
	Title       string     `json:"title"`
	MediaType   MediaKind  `json:"media_type"`
	ReleaseYear int        `json:"release_year"` // 0 when unknown
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	Rating      float64    `json:"rating"`
	Popularity  float64    `json:"popularity"`
	Runtime     *int       `json:"runtime,omitempty"` // minutes
	Budget      *int64     `json:"budget,omitempty"`
	Revenue     *int64     `json:"revenue,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tagline     *string    `json:"tagline,omitempty"`
	PosterPath  *string    `json:"poster_path,omitempty"`
	AddDate     time.Time  `json:"add_date"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Genre is a stored genre, shared across movies.
type Genre struct {
	ID     int64  `json:"id"`
	TMDBID int64  `json:"tmdb_id"`
	Name   string `json:"name"`
}

// Actor is a stored person, shared across movies.
type Actor struct {
	ID          int64      `json:"id"`
	TMDBID      int64      `json:"tmdb_id"`
	Name        string     `json:"name"`
	Biography   *string    `json:"biography,omitempty"`
	Birthday    *time.Time `json:"birthday,omitempty"`
	Deathday    *time.Time `json:"deathday,omitempty"`
	Popularity  float64    `json:"popularity"`
	ProfilePath *string    `json:"profile_path,omitempty"`
}

// MovieGenre links a movie to a genre.
type MovieGenre struct {
	MovieID int64 `json:"movie_id"`
	GenreID int64 `json:"genre_id"`
}

// MovieActor links a movie to an actor with the character played.
type MovieActor struct {
	MovieID  int64  `json:"movie_id"`
	ActorID  int64  `json:"actor_id"`
	RoleName string `json:"role_name"`
}

// MovieCreate is a normalized movie ready to be inserted.
type MovieCreate struct {
	TMDBID      int64
	Title       string
	MediaType   MediaKind
	ReleaseYear int
	ReleaseDate *time.Time
	Rating      float64
	Popularity  float64
	Runtime     *int
	Budget      *int64
	Revenue     *int64
	Description *string
	Tagline     *string
	PosterPath  *string
	GenreIDs    []int64 // catalog genre ids, in payload order
}

// GenreCreate is a normalized genre.
type GenreCreate struct {
	TMDBID int64
	Name   string
}

// ActorCreate is a normalized person.
type ActorCreate struct {
	TMDBID      int64
	Name        string
	Biography   *string
	Birthday    *time.Time
	Deathday    *time.Time
	Popularity  float64
	ProfilePath *string
}

// CastCredit is one cast entry of a movie's credits.
type CastCredit struct {
	PersonID  int64
	Character string
}
