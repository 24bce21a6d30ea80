// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	gosync "sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
)

// Handler executes one task. The returned value is JSON-encoded into the
// task result.
type Handler func(ctx context.Context, args Args) (any, error)

// Worker consumes tasks and runs each to completion with its registered
// handler. Every delivered task is acknowledged once its result has been
// published, whatever the outcome.
//
// The router hands each delivered message to its own goroutine, so slots
// bounds how many tasks execute at once; the rest wait for a free slot.
type Worker struct {
	transport    *Transport
	tasksTopic   string
	resultsTopic string
	handlers     map[string]Handler
	slots        *semaphore.Weighted
	ready        chan struct{}
	readyOnce    gosync.Once
	now          func() time.Time
}

// NewWorker creates a worker for the given handler registry running at most
// concurrency tasks at a time. Values below 1 mean one.
func NewWorker(transport *Transport, tasksTopic, resultsTopic string, handlers map[string]Handler, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	missing, unknown := checkHandlers(handlers)
	for _, name := range missing {
		logging.Warn().Str("task", name).Msg("no handler registered, such tasks will fail")
	}
	for _, name := range unknown {
		logging.Warn().Str("task", name).Msg("handler registered for an unknown task name")
	}
	return &Worker{
		transport:    transport,
		tasksTopic:   tasksTopic,
		resultsTopic: resultsTopic,
		handlers:     handlers,
		slots:        semaphore.NewWeighted(int64(concurrency)),
		ready:        make(chan struct{}),
		now:          time.Now,
	}
}

// checkHandlers compares a registry with the known task names. Both
// results are sorted.
func checkHandlers(handlers map[string]Handler) (missing, unknown []string) {
	for _, name := range Names() {
		if _, ok := handlers[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range handlers {
		if !KnownTask(name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(missing)
	slices.Sort(unknown)
	return missing, unknown
}

// Running is closed once the worker has subscribed to the tasks topic for
// the first time.
func (w *Worker) Running() <-chan struct{} {
	return w.ready
}

// Serve runs the worker until ctx is canceled. It implements suture.Service;
// each call builds a fresh router, so the supervisor can restart it.
func (w *Worker) Serve(ctx context.Context) error {
	router, err := newRouter("task-worker")
	if err != nil {
		return err
	}

	router.AddHandler(
		"task-worker",
		w.tasksTopic,
		w.transport.WorkSubscriber,
		w.resultsTopic,
		w.transport.Publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			return w.handleMessage(ctx, msg)
		},
	)

	go signalRunning(ctx, router, &w.readyOnce, w.ready)

	logging.Info().
		Str("topic", w.tasksTopic).
		Int("handlers", len(w.handlers)).
		Msg("task worker started")

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("task worker: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// String implements fmt.Stringer for supervisor logs.
func (w *Worker) String() string {
	return "task-worker"
}

func (w *Worker) handleMessage(ctx context.Context, msg *message.Message) ([]*message.Message, error) {
	task, err := decodeTask(msg)
	if err != nil {
		// Undecodable messages can never succeed; drop them.
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed task")
		return nil, nil
	}

	ctx = logging.ContextWithCorrelationID(ctx, task.ID)
	ctx = logging.ContextWithTaskName(ctx, task.Name)

	// Only fails when ctx ends; the nack hands the task back to the transport.
	if err := w.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for worker slot: %w", err)
	}
	res := w.Execute(ctx, task)
	w.slots.Release(1)

	out, err := encodeResult(res)
	if err != nil {
		return nil, err
	}
	return []*message.Message{out}, nil
}

// Execute runs task in the calling goroutine and returns its terminal
// result. Handler panics become FAILURE results.
func (w *Worker) Execute(ctx context.Context, task *Task) (res *Result) {
	start := w.now()
	res = &Result{TaskID: task.ID, Name: task.Name}
	log := logging.CtxWith(ctx).Str("component", "task-worker").Str("task_id", task.ID).Logger()

	metrics.TasksInFlight.Inc()
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailure
			res.Result = nil
			res.Error = fmt.Sprintf("panic: %v", r)
			log.Error().Interface("panic", r).Msg("task panicked")
		}
		metrics.TasksInFlight.Dec()
		res.FinishedAt = w.now().UTC()
		metrics.RecordTaskCompletion(task.Name, string(res.Status), w.now().Sub(start))
	}()

	handler, ok := w.handlers[task.Name]
	if !ok {
		res.Status = StatusFailure
		res.Error = fmt.Errorf("%w: %q", ErrUnknownTask, task.Name).Error()
		log.Warn().Msg("no handler for task")
		return res
	}
	if err := ValidateArgs(task.Name, task.Args); err != nil && !errors.Is(err, ErrUnknownTask) {
		res.Status = StatusFailure
		res.Error = err.Error()
		log.Warn().Err(err).Msg("rejecting task arguments")
		return res
	}

	log.Info().Interface("args", task.Args).Msg("task started")

	value, err := handler(ctx, task.Args)
	if err != nil {
		res.Status = StatusFailure
		res.Error = err.Error()
		log.Error().Err(err).Dur("elapsed", w.now().Sub(start)).Msg("task failed")
		return res
	}

	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			res.Status = StatusFailure
			res.Error = fmt.Sprintf("encode result: %v", err)
			return res
		}
		res.Result = data
	}
	res.Status = StatusSuccess
	log.Info().Dur("elapsed", w.now().Sub(start)).Msg("task succeeded")
	return res
}
