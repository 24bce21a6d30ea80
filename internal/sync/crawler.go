// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// DefaultPageDelay is the pause between two listing pages.
const DefaultPageDelay = time.Second

// CrawlResult summarizes one crawl.
type CrawlResult struct {
	StartPage      int  `json:"start_page"`
	EndPage        int  `json:"end_page"`
	PagesFetched   int  `json:"pages_fetched"`
	PagesFailed    int  `json:"pages_failed"`
	Discovered     int  `json:"discovered"`
	AlreadyStored  int  `json:"already_stored"`
	Dispatched     int  `json:"dispatched"`
	DispatchFailed int  `json:"dispatch_failed"`
	Exhausted      bool `json:"exhausted"`
}

// Crawler walks the popular listing and dispatches imports for unknown movies.
type Crawler struct {
	lister    PopularLister
	store     Store
	dispatch  ImportDispatcher
	pageDelay time.Duration
}

// NewCrawler creates a crawler. A negative pageDelay selects DefaultPageDelay.
func NewCrawler(lister PopularLister, store Store, dispatch ImportDispatcher, pageDelay time.Duration) *Crawler {
	if pageDelay < 0 {
		pageDelay = DefaultPageDelay
	}
	return &Crawler{lister: lister, store: store, dispatch: dispatch, pageDelay: pageDelay}
}

// Crawl processes pages start..end inclusive. An empty page ends the crawl
// early; a failing page is logged and skipped. Ids seen twice within one
// crawl are dispatched once. Crawl does not wait for the dispatched imports.
//
// The only errors returned are ErrInvalidPageRange and the context error
// when ctx ends mid-crawl; the partial result is returned alongside it.
func (c *Crawler) Crawl(ctx context.Context, start, end int) (*CrawlResult, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidPageRange, start, end)
	}

	log := logging.CtxWith(ctx).Str("component", "crawler").Logger()
	result := &CrawlResult{StartPage: start, EndPage: end}
	seen := make(map[int64]struct{})

	for page := start; page <= end; page++ {
		if page > start {
			if err := sleepCtx(ctx, c.pageDelay); err != nil {
				return result, err
			}
		}

		ids, err := c.lister.PopularMovieIDs(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.PagesFailed++
			metrics.RecordCrawlPage("failed", 0)
			log.Warn().Err(err).Int("page", page).Msg("Listing page failed, continuing")
			continue
		}
		result.PagesFetched++

		if len(ids) == 0 {
			result.Exhausted = true
			metrics.RecordCrawlPage("empty", 0)
			log.Info().Int("page", page).Msg("Listing exhausted, stopping crawl")
			break
		}

		fresh := make([]int64, 0, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			fresh = append(fresh, id)
		}
		result.Discovered += len(fresh)

		dispatched, err := c.processPage(ctx, fresh, result)
		if err != nil {
			result.PagesFailed++
			metrics.RecordCrawlPage("failed", dispatched)
			log.Warn().Err(err).Int("page", page).Msg("Page processing failed, continuing")
			continue
		}
		metrics.RecordCrawlPage("ok", dispatched)
		log.Debug().Int("page", page).Int("ids", len(ids)).Int("dispatched", dispatched).Msg("Page processed")
	}

	log.Info().
		Int("start_page", start).
		Int("end_page", end).
		Int("pages_fetched", result.PagesFetched).
		Int("pages_failed", result.PagesFailed).
		Int("dispatched", result.Dispatched).
		Bool("exhausted", result.Exhausted).
		Msg("Crawl finished")
	return result, nil
}

// processPage dispatches an import for every id that is not stored yet.
func (c *Crawler) processPage(ctx context.Context, ids []int64, result *CrawlResult) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	existing, err := c.store.ExistingMovieTMDBIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("look up stored movies: %w", err)
	}

	dispatched := 0
	for _, id := range ids {
		if _, ok := existing[id]; ok {
			result.AlreadyStored++
			continue
		}
		if err := c.dispatch.DispatchImport(ctx, id); err != nil {
			result.DispatchFailed++
			logging.Ctx(ctx).Warn().Err(err).
				Str("component", "crawler").
				Int64("tmdb_id", id).
				Msg("Failed to dispatch import")
			continue
		}
		dispatched++
	}
	result.Dispatched += dispatched
	return dispatched, nil
}

// sleepCtx pauses for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
