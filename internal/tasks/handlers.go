// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"

	"github.com/tomtom215/cinematch/internal/sync"
)

// CatalogServices are the sync components the catalog tasks run on.
type CatalogServices struct {
	Importer  *sync.Importer
	Crawler   *sync.Crawler
	Refresher *sync.Refresher

	// DefaultBatchSize applies to refresh_oldest tasks without batch_size.
	DefaultBatchSize int
}

// CatalogHandlers returns the handler registry for the four catalog tasks.
func CatalogHandlers(s CatalogServices) map[string]Handler {
	defaultBatch := s.DefaultBatchSize
	if defaultBatch <= 0 {
		defaultBatch = sync.DefaultRefreshBatch
	}

	return map[string]Handler{
		TaskImportMovie: func(ctx context.Context, args Args) (any, error) {
			return s.Importer.Import(ctx, args[ArgTMDBID])
		},
		TaskCrawlPopular: func(ctx context.Context, args Args) (any, error) {
			return s.Crawler.Crawl(ctx, int(args[ArgStartPage]), int(args[ArgEndPage]))
		},
		TaskRefreshOldest: func(ctx context.Context, args Args) (any, error) {
			batch := defaultBatch
			if b, ok := args.Int(ArgBatchSize); ok {
				batch = int(b)
			}
			return s.Refresher.RefreshOldest(ctx, batch)
		},
		TaskRefreshMovieStats: func(ctx context.Context, args Args) (any, error) {
			return s.Refresher.RefreshStats(ctx, args[ArgTMDBID])
		},
	}
}
