// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import "errors"

var (
	// ErrEmptyCatalog is returned by RefreshOldest when no movie is stored.
	ErrEmptyCatalog = errors.New("catalog is empty: nothing to refresh")

	// ErrInvalidBatchSize is returned for a negative refresh batch.
	ErrInvalidBatchSize = errors.New("batch size must not be negative")

	// ErrSourceUnavailable is returned by Importer.Fetch when the movie
	// detail is missing upstream or has no usable id.
	ErrSourceUnavailable = errors.New("movie unavailable from the catalog")

	// ErrInvalidPageRange is returned when a crawl range is empty or starts below page 1.
	ErrInvalidPageRange = errors.New("invalid page range")
)
