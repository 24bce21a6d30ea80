// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package transform maps raw catalog payloads to creation records.
//
// Every function here is pure. A payload without a usable external id maps
// to nil; other missing or malformed fields fall back to a neutral value
// (0 for scores) or stay nil when the field is optional.
package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cinematch/internal/catalog"
	"github.com/tomtom215/cinematch/internal/models"
)

// DateLayout is the catalog's calendar date format.
const DateLayout = "2006-01-02"

// UnknownName is used when a movie or person carries no usable name.
const UnknownName = "N/A"

// Movie normalizes a movie-detail payload. Series payloads (name,
// first_air_date) are accepted too.
func Movie(p catalog.Payload) *models.MovieCreate {
	id, ok := externalID(p)
	if !ok {
		return nil
	}

	dateStr := nonEmpty(p, "release_date")
	if dateStr == "" {
		dateStr = nonEmpty(p, "first_air_date")
	}

	m := &models.MovieCreate{
		TMDBID:      id,
		Title:       title(p),
		MediaType:   mediaKind(p),
		ReleaseYear: releaseYear(dateStr),
		ReleaseDate: parseDate(dateStr),
		Rating:      floatOrZero(p, "vote_average"),
		Popularity:  floatOrZero(p, "popularity"),
		Budget:      positiveInt64(p, "budget"),
		Revenue:     positiveInt64(p, "revenue"),
		Description: optionalString(p, "overview"),
		Tagline:     optionalString(p, "tagline"),
		PosterPath:  optionalString(p, "poster_path"),
	}
	if rt, ok := p.Int64("runtime"); ok && rt > 0 {
		v := int(rt)
		m.Runtime = &v
	}
	for _, g := range p.Objects("genres") {
		if gid, ok := externalID(g); ok {
			m.GenreIDs = append(m.GenreIDs, gid)
		}
	}
	return m
}

// Actor normalizes a person-detail payload.
func Actor(p catalog.Payload) *models.ActorCreate {
	id, ok := externalID(p)
	if !ok {
		return nil
	}
	name := nonEmpty(p, "name")
	if name == "" {
		name = UnknownName
	}
	return &models.ActorCreate{
		TMDBID:      id,
		Name:        name,
		Biography:   optionalString(p, "biography"),
		Birthday:    parseDate(nonEmpty(p, "birthday")),
		Deathday:    parseDate(nonEmpty(p, "deathday")),
		Popularity:  floatOrZero(p, "popularity"),
		ProfilePath: optionalString(p, "profile_path"),
	}
}

// Genre normalizes one entry of a movie's genres array. Both id and name
// are mandatory.
func Genre(p catalog.Payload) *models.GenreCreate {
	id, ok := externalID(p)
	if !ok {
		return nil
	}
	name := strings.TrimSpace(nonEmpty(p, "name"))
	if name == "" {
		return nil
	}
	return &models.GenreCreate{TMDBID: id, Name: name}
}

// Genres normalizes the genres array of a movie-detail payload, dropping
// malformed entries and repeated ids.
func Genres(movie catalog.Payload) []models.GenreCreate {
	raw := movie.Objects("genres")
	out := make([]models.GenreCreate, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, g := range raw {
		gc := Genre(g)
		if gc == nil {
			continue
		}
		if _, dup := seen[gc.TMDBID]; dup {
			continue
		}
		seen[gc.TMDBID] = struct{}{}
		out = append(out, *gc)
	}
	return out
}

// CastEntries returns the usable credits among the first limit cast
// entries. Entries without an id still count toward the limit. A limit
// of zero or less means no limit.
func CastEntries(credits catalog.Payload, limit int) []models.CastCredit {
	cast := credits.Objects("cast")
	if limit > 0 && len(cast) > limit {
		cast = cast[:limit]
	}
	out := make([]models.CastCredit, 0, len(cast))
	for _, c := range cast {
		id, ok := externalID(c)
		if !ok {
			continue
		}
		character, _ := c.String("character")
		out = append(out, models.CastCredit{PersonID: id, Character: character})
	}
	return out
}

func externalID(p catalog.Payload) (int64, bool) {
	id, ok := p.Int64("id")
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func title(p catalog.Payload) string {
	if t := nonEmpty(p, "title"); t != "" {
		return t
	}
	if n := nonEmpty(p, "name"); n != "" {
		return n
	}
	return UnknownName
}

// mediaKind prefers an explicit media_type; otherwise a first_air_date
// marks a series.
func mediaKind(p catalog.Payload) models.MediaKind {
	if mt, ok := p.String("media_type"); ok && mt != "" {
		return models.ParseMediaKind(mt)
	}
	if nonEmpty(p, "first_air_date") != "" {
		return models.MediaKindTV
	}
	return models.MediaKindMovie
}

// releaseYear reads the year component of a date string. The date itself
// does not have to be valid: "1999-13-45" still yields 1999.
func releaseYear(date string) int {
	if date == "" {
		return 0
	}
	head, _, _ := strings.Cut(date, "-")
	y, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || y < 0 {
		return 0
	}
	return y
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func nonEmpty(p catalog.Payload, key string) string {
	s, _ := p.String(key)
	return s
}

func optionalString(p catalog.Payload, key string) *string {
	s, ok := p.String(key)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func floatOrZero(p catalog.Payload, key string) float64 {
	f, _ := p.Float(key)
	return f
}

func positiveInt64(p catalog.Payload, key string) *int64 {
	v, ok := p.Int64(key)
	if !ok || v <= 0 {
		return nil
	}
	return &v
}
