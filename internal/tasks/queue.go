// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/sync"
)

// Submitter enqueues a named task for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, name string, args Args) (Handle, error)
}

// Queue publishes tasks on the tasks topic. It implements the dispatch
// ports the crawler and refresher use, so fan-out tasks go through the same
// path as API and scheduler submissions.
type Queue struct {
	publisher message.Publisher
	topic     string
	source    string
	status    *StatusStore

	mu     gosync.RWMutex
	closed bool
	now    func() time.Time
}

var (
	_ Submitter             = (*Queue)(nil)
	_ sync.ImportDispatcher = (*Queue)(nil)
	_ sync.StatsDispatcher  = (*Queue)(nil)
)

// NewQueue creates a queue publishing to topic. source is recorded on each
// envelope (for example "api" or "scheduler"). status may be nil.
func NewQueue(publisher message.Publisher, topic, source string, status *StatusStore) *Queue {
	return &Queue{
		publisher: publisher,
		topic:     topic,
		source:    source,
		status:    status,
		now:       time.Now,
	}
}

// WithSource returns a queue sharing the publisher and status store that
// stamps a different source on its envelopes.
func (q *Queue) WithSource(source string) *Queue {
	return NewQueue(q.publisher, q.topic, source, q.status)
}

// Submit validates and publishes a task. The task is recorded as PENDING
// before it is published so a status lookup never misses it.
func (q *Queue) Submit(ctx context.Context, name string, args Args) (Handle, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return Handle{}, ErrQueueClosed
	}

	if err := ValidateArgs(name, args); err != nil {
		return Handle{}, err
	}

	t := &Task{
		ID:          uuid.NewString(),
		Name:        name,
		Args:        copyArgs(args),
		SubmittedAt: q.now().UTC(),
		Source:      q.source,
	}
	msg, err := encodeTask(t)
	if err != nil {
		return Handle{}, err
	}
	msg.SetContext(ctx)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	if q.status != nil {
		if err := q.status.MarkPending(ctx, t); err != nil {
			return Handle{}, fmt.Errorf("record pending task: %w", err)
		}
	}

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		if q.status != nil {
			_ = q.status.Complete(ctx, &Result{
				TaskID:     t.ID,
				Name:       t.Name,
				Status:     StatusFailure,
				Error:      "publish failed: " + err.Error(),
				FinishedAt: q.now().UTC(),
			})
		}
		return Handle{}, fmt.Errorf("publish %s: %w", name, err)
	}

	metrics.TasksSubmitted.WithLabelValues(name).Inc()
	logging.Ctx(ctx).Debug().
		Str("task_id", t.ID).
		Str("task_name", name).
		Str("source", q.source).
		Msg("task submitted")

	return Handle{TaskID: t.ID, Status: StatusPending}, nil
}

// DispatchImport submits a single-movie import.
func (q *Queue) DispatchImport(ctx context.Context, tmdbID int64) error {
	_, err := q.Submit(ctx, TaskImportMovie, Args{ArgTMDBID: tmdbID})
	return err
}

// DispatchStatsRefresh submits a stats refresh for one movie.
func (q *Queue) DispatchStatsRefresh(ctx context.Context, tmdbID int64) error {
	_, err := q.Submit(ctx, TaskRefreshMovieStats, Args{ArgTMDBID: tmdbID})
	return err
}

// Close stops accepting submissions. The publisher belongs to the
// transport and is not closed here.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func copyArgs(args Args) Args {
	out := make(Args, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
