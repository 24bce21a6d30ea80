// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package catalog is the read-only client for the TMDB catalog API.
//
// Two failure contracts coexist on purpose:
//
//   - Fetch and the detail helpers built on it normalize every failure
//     (transport error, non-2xx status, undecodable body, open circuit)
//     to "absent" and log it. Callers only see (nil, false).
//   - PopularMovieIDs propagates failures as errors so the crawler can tell
//     a failed page from an exhausted listing.
//
// Requests carry a Bearer token and the configured language, pass through
// a token-bucket limiter and a circuit breaker, and retry on HTTP 429.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cinematch/internal/cache"
	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// maxErrorBodySize bounds how much of an error response is kept.
const maxErrorBodySize = 64 * 1024

// retryWaitFactor caps one 429 backoff at this many request timeouts, so a
// large Retry-After cannot park a worker slot.
const retryWaitFactor = 3

// defaultMaxRetryWait applies when no request timeout is configured.
const defaultMaxRetryWait = 30 * time.Second

// ErrRateLimited is returned when HTTP 429 persists past the retry budget.
var ErrRateLimited = errors.New("catalog: rate limit exceeded")

// StatusError is a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the catalog API. Safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	language string

	http           *http.Client
	limiter        *rate.Limiter
	breaker        *breaker
	persons        *cache.LRU[int64, Payload]
	maxRetries     int
	retryBaseDelay time.Duration
	maxRetryWait   time.Duration
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.CatalogConfig) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		token:          cfg.APIToken,
		language:       cfg.Language,
		http:           &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:        newBreaker("tmdb-api", cfg),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		maxRetryWait:   defaultMaxRetryWait,
	}
	if cfg.Timeout > 0 {
		c.maxRetryWait = retryWaitFactor * cfg.Timeout
	}
	if cfg.PersonCacheSize > 0 {
		c.persons = cache.NewLRU[int64, Payload](cfg.PersonCacheSize, cfg.PersonCacheTTL)
	}
	return c
}

// Fetch performs a GET on endpoint (relative to the base URL, e.g.
// "/movie/550") and returns the decoded object. Every failure is logged and
// reported as absent.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (Payload, bool) {
	p, err := c.get(ctx, endpoint, params)
	if err != nil {
		l := logging.CtxWith(ctx).Str("component", "catalog").Logger()
		ev := l.Warn()
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			ev = l.Debug()
		}
		ev.Err(err).Str("endpoint", endpoint).Msg("catalog fetch failed")
		return nil, false
	}
	return p, true
}

// MovieDetails fetches /movie/{id}.
func (c *Client) MovieDetails(ctx context.Context, id int64) (Payload, bool) {
	return c.Fetch(ctx, "/movie/"+strconv.FormatInt(id, 10), nil)
}

// MovieCredits fetches /movie/{id}/credits.
func (c *Client) MovieCredits(ctx context.Context, id int64) (Payload, bool) {
	return c.Fetch(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil)
}

// PersonDetails fetches /person/{id}, served from the person cache when warm.
func (c *Client) PersonDetails(ctx context.Context, id int64) (Payload, bool) {
	if c.persons != nil {
		if p, ok := c.persons.Get(id); ok {
			metrics.PersonCacheLookups.WithLabelValues("hit").Inc()
			return p, true
		}
		metrics.PersonCacheLookups.WithLabelValues("miss").Inc()
	}
	p, ok := c.Fetch(ctx, "/person/"+strconv.FormatInt(id, 10), nil)
	if ok && c.persons != nil {
		c.persons.Add(id, p)
	}
	return p, ok
}

// PopularMovieIDs returns the ids on one page of /movie/popular, in listing
// order. An empty slice with a nil error means the listing is exhausted.
func (c *Client) PopularMovieIDs(ctx context.Context, page int) ([]int64, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	p, err := c.get(ctx, "/movie/popular", params)
	if err != nil {
		return nil, fmt.Errorf("popular page %d: %w", page, err)
	}

	results := p.Objects("results")
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if id, ok := r.Int64("id"); ok && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// get runs one logical request through the breaker.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (Payload, error) {
	label := endpointLabel(endpoint)
	start := time.Now()

	p, err := c.breaker.execute(func() (Payload, error) {
		return c.do(ctx, endpoint, params)
	})

	metrics.RecordCatalogRequest(label, outcomeOf(err), time.Since(start))
	return p, err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (Payload, error) {
	q := url.Values{}
	if c.language != "" {
		q.Set("language", c.language)
	}
	for k, vs := range params {
		q[k] = vs
	}
	reqURL := c.baseURL + endpoint
	if enc := q.Encode(); enc != "" {
		reqURL += "?" + enc
	}

	resp, err := c.doWithRateLimit(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	var p Payload
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &decodeError{endpoint: endpoint, err: err}
	}
	if p == nil {
		return nil, &decodeError{endpoint: endpoint, err: errors.New("response is not a JSON object")}
	}
	return p, nil
}

// doWithRateLimit waits on the local limiter, then retries HTTP 429 with
// exponential backoff, honoring Retry-After when present. No single wait
// exceeds maxRetryWait.
func (c *Client) doWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.CatalogRateLimited.Inc()
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w after %d retries", ErrRateLimited, c.maxRetries)
		}

		t := time.NewTimer(c.retryDelay(attempt, resp.Header.Get("Retry-After")))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}

// retryDelay is the wait before retry attempt+1: Retry-After seconds when
// given, exponential backoff otherwise, capped at maxRetryWait.
func (c *Client) retryDelay(attempt int, retryAfter string) time.Duration {
	delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	return min(delay, c.maxRetryWait)
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

type decodeError struct {
	endpoint string
	err      error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("catalog: failed to decode %s response: %v", e.endpoint, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

// endpointLabel collapses ids out of a path for metric labels.
func endpointLabel(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	switch {
	case len(parts) >= 3 && parts[2] == "credits":
		return "credits"
	case len(parts) >= 2 && parts[1] == "popular":
		return "popular"
	case len(parts) >= 1 && parts[0] != "":
		return parts[0]
	default:
		return "root"
	}
}

func outcomeOf(err error) string {
	var se *StatusError
	var de *decodeError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCircuitOpen):
		return "rejected"
	case errors.As(err, &se):
		return "http_error"
	case errors.As(err, &de):
		return "decode_error"
	default:
		return "transport_error"
	}
}
