// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/cinematch/internal/logging"
)

// Recorder keeps the status store in step with the transport: it marks
// every observed task PENDING and stores every published result, so tasks
// submitted by other processes (the scheduler, crawler fan-out) can be
// looked up here.
type Recorder struct {
	subscriber   message.Subscriber
	store        *StatusStore
	tasksTopic   string
	resultsTopic string
	ready        chan struct{}
	readyOnce    gosync.Once
}

// NewRecorder creates a recorder reading from subscriber.
func NewRecorder(subscriber message.Subscriber, store *StatusStore, tasksTopic, resultsTopic string) *Recorder {
	return &Recorder{
		subscriber:   subscriber,
		store:        store,
		tasksTopic:   tasksTopic,
		resultsTopic: resultsTopic,
		ready:        make(chan struct{}),
	}
}

// Running is closed once both topics are subscribed for the first time.
func (r *Recorder) Running() <-chan struct{} {
	return r.ready
}

// Serve runs until ctx is canceled. It implements suture.Service.
func (r *Recorder) Serve(ctx context.Context) error {
	router, err := newRouter("task-recorder")
	if err != nil {
		return err
	}

	router.AddConsumerHandler("task-recorder-submissions", r.tasksTopic, r.subscriber, func(msg *message.Message) error {
		return r.recordTask(ctx, msg)
	})
	router.AddConsumerHandler("task-recorder-results", r.resultsTopic, r.subscriber, func(msg *message.Message) error {
		return r.recordResult(ctx, msg)
	})

	go signalRunning(ctx, router, &r.readyOnce, r.ready)

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("task recorder: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// String implements fmt.Stringer for supervisor logs.
func (r *Recorder) String() string {
	return "task-recorder"
}

func (r *Recorder) recordTask(ctx context.Context, msg *message.Message) error {
	task, err := decodeTask(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("recorder skipping malformed task")
		return nil
	}
	return r.store.MarkPending(ctx, task)
}

func (r *Recorder) recordResult(ctx context.Context, msg *message.Message) error {
	res, err := decodeResult(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("recorder skipping malformed result")
		return nil
	}
	if err := r.store.Complete(ctx, res); err != nil {
		return err
	}
	logging.Debug().
		Str("task_id", res.TaskID).
		Str("task_name", res.Name).
		Str("status", string(res.Status)).
		Msg("task result recorded")
	return nil
}
