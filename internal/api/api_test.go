// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/models"
	"github.com/tomtom215/cinematch/internal/tasks"
)

type submission struct {
	name string
	args tasks.Args
}

type fakeSubmitter struct {
	mu   sync.Mutex
	subs []submission
	err  error
}

func (f *fakeSubmitter) Submit(_ context.Context, name string, args tasks.Args) (tasks.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tasks.Handle{}, f.err
	}
	if err := tasks.ValidateArgs(name, args); err != nil {
		return tasks.Handle{}, err
	}
	f.subs = append(f.subs, submission{name: name, args: args})
	return tasks.Handle{TaskID: fmt.Sprintf("task-%d", len(f.subs)), Status: tasks.StatusPending}, nil
}

func (f *fakeSubmitter) last() submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return submission{}
	}
	return f.subs[len(f.subs)-1]
}

type fakeStatus map[string]*tasks.Record

func (f fakeStatus) Get(_ context.Context, id string) (*tasks.Record, error) {
	if rec, ok := f[id]; ok {
		return rec, nil
	}
	return nil, tasks.ErrTaskNotFound
}

type fakeMovies struct {
	movies  map[int64]*models.Movie
	pingErr error
	deleted []int64
}

func (f *fakeMovies) Ping(context.Context) error { return f.pingErr }

func (f *fakeMovies) GetMovieByTMDBID(_ context.Context, id int64) (*models.Movie, error) {
	if m, ok := f.movies[id]; ok {
		return m, nil
	}
	return nil, database.ErrMovieNotFound
}

func (f *fakeMovies) MovieGenres(context.Context, int64) ([]models.Genre, error) {
	return []models.Genre{{ID: 1, TMDBID: 16, Name: "Animation"}}, nil
}

func (f *fakeMovies) MovieActors(context.Context, int64) ([]database.ActorRole, error) {
	return []database.ActorRole{{
		Actor:    models.Actor{ID: 7, TMDBID: 12073, Name: "Mike Myers"},
		RoleName: "Shrek",
	}}, nil
}

func (f *fakeMovies) DeleteMovie(_ context.Context, id int64) error {
	if _, ok := f.movies[id]; !ok {
		return database.ErrMovieNotFound
	}
	delete(f.movies, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type testServer struct {
	handler   http.Handler
	submitter *fakeSubmitter
	movies    *fakeMovies
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	status := fakeStatus{
		"done": {
			TaskID:     "done",
			Name:       tasks.TaskImportMovie,
			Status:     tasks.StatusSuccess,
			Result:     json.RawMessage(`{"outcome":"imported"}`),
			FinishedAt: &finished,
		},
		"broken": {
			TaskID: "broken",
			Name:   tasks.TaskCrawlPopular,
			Status: tasks.StatusFailure,
			Error:  "catalog returned no movies",
		},
	}
	movies := &fakeMovies{movies: map[int64]*models.Movie{
		808: {ID: 1, TMDBID: 808, Title: "Shrek", MediaType: models.MediaKindMovie, ReleaseYear: 2001},
	}}
	sub := &fakeSubmitter{}

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	router := NewRouter(NewHandler(sub, status, movies, "test"), cfg)
	return &testServer{handler: router.SetupChi(), submitter: sub, movies: movies}
}

func (s *testServer) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, *models.APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if rec.Body.Len() == 0 {
		return rec, nil
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, target, err, rec.Body.String())
	}
	return rec, &resp
}

// decodeData re-decodes the envelope's data into out.
func decodeData(t *testing.T, resp *models.APIResponse, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-encode data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestTaskTriggers(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantTask string
		wantArgs tasks.Args
	}{
		{"import", "/api/v1/tasks/import/808", tasks.TaskImportMovie, tasks.Args{tasks.ArgTMDBID: 808}},
		{"refresh stats", "/api/v1/tasks/refresh-stats/550", tasks.TaskRefreshMovieStats, tasks.Args{tasks.ArgTMDBID: 550}},
		{"crawl range", "/api/v1/tasks/crawl?start_page=2&end_page=7", tasks.TaskCrawlPopular, tasks.Args{tasks.ArgStartPage: 2, tasks.ArgEndPage: 7}},
		{"crawl single page", "/api/v1/tasks/crawl?start_page=4", tasks.TaskCrawlPopular, tasks.Args{tasks.ArgStartPage: 4, tasks.ArgEndPage: 4}},
		{"crawl defaults", "/api/v1/tasks/crawl", tasks.TaskCrawlPopular, tasks.Args{tasks.ArgStartPage: 1, tasks.ArgEndPage: 1}},
		{"refresh oldest", "/api/v1/tasks/refresh-oldest?batch_size=25", tasks.TaskRefreshOldest, tasks.Args{tasks.ArgBatchSize: 25}},
		{"refresh oldest default", "/api/v1/tasks/refresh-oldest", tasks.TaskRefreshOldest, tasks.Args{}},
		{"refresh oldest zero batch", "/api/v1/tasks/refresh-oldest?batch_size=0", tasks.TaskRefreshOldest, tasks.Args{tasks.ArgBatchSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec, resp := s.do(t, http.MethodPost, tt.target)
			if rec.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
			}

			var accepted TaskAccepted
			decodeData(t, resp, &accepted)
			if accepted.TaskID == "" || accepted.Status != tasks.StatusPending {
				t.Errorf("accepted = %+v", accepted)
			}

			got := s.submitter.last()
			if got.name != tt.wantTask {
				t.Errorf("task = %q, want %q", got.name, tt.wantTask)
			}
			if len(got.args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", got.args, tt.wantArgs)
			}
			for k, v := range tt.wantArgs {
				if got.args[k] != v {
					t.Errorf("args[%s] = %d, want %d", k, got.args[k], v)
				}
			}
		})
	}
}

func TestTaskTriggers_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantField string
	}{
		{"non-numeric id", "/api/v1/tasks/import/abc", "tmdb_id"},
		{"zero id", "/api/v1/tasks/import/0", "tmdb_id"},
		{"negative stats id", "/api/v1/tasks/refresh-stats/-3", "tmdb_id"},
		{"reversed range", "/api/v1/tasks/crawl?start_page=5&end_page=2", "end_page"},
		{"page zero", "/api/v1/tasks/crawl?start_page=0&end_page=2", "start_page"},
		{"page beyond catalog", "/api/v1/tasks/crawl?start_page=1&end_page=501", "end_page"},
		{"garbage page", "/api/v1/tasks/crawl?start_page=one", "start_page"},
		{"negative batch", "/api/v1/tasks/refresh-oldest?batch_size=-1", "batch_size"},
		{"empty batch", "/api/v1/tasks/refresh-oldest?batch_size=", "batch_size"},
		{"batch too large", "/api/v1/tasks/refresh-oldest?batch_size=1001", "batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec, resp := s.do(t, http.MethodPost, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
				t.Fatalf("error = %+v, want VALIDATION_ERROR", resp.Error)
			}
			if _, ok := resp.Error.Details[tt.wantField]; !ok {
				t.Errorf("details = %v, want a %s entry", resp.Error.Details, tt.wantField)
			}
			if got := s.submitter.last(); got.name != "" {
				t.Errorf("task %q was submitted despite invalid input", got.name)
			}
		})
	}
}

func TestTaskTriggers_SubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"queue closed", tasks.ErrQueueClosed, http.StatusServiceUnavailable},
		{"publish failure", errors.New("nats: no responders"), http.StatusInternalServerError},
		{"invalid args", fmt.Errorf("%w: tmdb_id must be positive", tasks.ErrInvalidArgs), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.submitter.err = tt.err
			rec, resp := s.do(t, http.MethodPost, "/api/v1/tasks/import/808")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp.Status != "error" {
				t.Errorf("envelope status = %q, want error", resp.Status)
			}
			if strings.Contains(rec.Body.String(), "no responders") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestTaskStatus(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/tasks/done")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var done TaskStatusResponse
	decodeData(t, resp, &done)
	if done.Status != tasks.StatusSuccess || string(done.Result) != `{"outcome":"imported"}` {
		t.Errorf("done = %+v (result %s)", done, done.Result)
	}
	if done.FinishedAt == nil {
		t.Error("finished_at missing")
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/tasks/broken")
	var broken TaskStatusResponse
	decodeData(t, resp, &broken)
	if broken.Status != tasks.StatusFailure || broken.Error == "" {
		t.Errorf("broken = %+v", broken)
	}

	rec, resp = s.do(t, http.MethodGet, "/api/v1/tasks/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown task status = %d, want 404", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMovieRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/movies/808")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var detail models.MovieDetail
	decodeData(t, resp, &detail)
	if detail.Title != "Shrek" || len(detail.Genres) != 1 || len(detail.Cast) != 1 {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Cast[0].RoleName != "Shrek" || detail.Cast[0].Name != "Mike Myers" {
		t.Errorf("cast = %+v", detail.Cast)
	}

	if rec, _ := s.do(t, http.MethodGet, "/api/v1/movies/1"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown movie status = %d, want 404", rec.Code)
	}

	if rec, _ := s.do(t, http.MethodDelete, "/api/v1/movies/808"); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodDelete, "/api/v1/movies/808"); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if len(s.movies.deleted) != 1 {
		t.Errorf("deleted = %v", s.movies.deleted)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health HealthStatus
	decodeData(t, resp, &health)
	if health.Status != "healthy" || !health.DatabaseConnected || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}

	s.movies.pingErr = errors.New("database is locked")
	rec, resp = s.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	decodeData(t, resp, &health)
	if health.DatabaseConnected {
		t.Error("database_connected = true after a failed ping")
	}
}

func TestRouter_EnvelopeAndRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done", nil)
	req.Header.Set("X-Request-ID", "req-42")
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Metadata.RequestID != "req-42" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	s := newTestServer(t)

	if rec, resp := s.do(t, http.MethodGet, "/api/v2/nothing"); rec.Code != http.StatusNotFound || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route = %d %+v", rec.Code, resp)
	}
	if rec, _ := s.do(t, http.MethodPut, "/api/v1/tasks/import/808"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d, want 405", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/healthz")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/healthz"`) {
		t.Error("metrics output has no /healthz request series")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	sub := &fakeSubmitter{}
	handler := NewRouter(NewHandler(sub, fakeStatus{}, &fakeMovies{}, ""), cfg).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tasks/import/808", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [202 202 429]", codes)
	}
}

func TestChiMiddlewareConfigFrom(t *testing.T) {
	cfg := ChiMiddlewareConfigFrom(nil)
	if cfg.RateLimitRequests != 60 {
		t.Errorf("default requests = %d", cfg.RateLimitRequests)
	}

	cfg = ChiMiddlewareConfigFrom(&config.APIConfig{RateLimitRequests: 0})
	if !cfg.RateLimitDisabled {
		t.Error("zero request budget should disable rate limiting")
	}

	cfg = ChiMiddlewareConfigFrom(&config.APIConfig{
		RateLimitRequests: 10,
		RateLimitWindow:   time.Second,
		CORSOrigins:       []string{"https://ui.example.com"},
	})
	if cfg.RateLimitDisabled || cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != time.Second {
		t.Errorf("rate limit = %d/%v disabled=%v", cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitDisabled)
	}
	if len(cfg.CORSAllowedOrigins) != 1 {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestCORS(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	cfg.CORSAllowedOrigins = []string{"https://ui.example.com"}
	handler := NewRouter(NewHandler(&fakeSubmitter{}, fakeStatus{}, &fakeMovies{}, ""), cfg).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks/crawl", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ui.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	// Without configured origins no CORS headers are emitted.
	plain := newTestServer(t)
	rec = httptest.NewRecorder()
	plain.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q", got)
	}
}
