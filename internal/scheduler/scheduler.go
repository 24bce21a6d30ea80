// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package scheduler submits catalog tasks on recurring cron cadences.
//
// The loop wakes every CheckInterval, submits each entry whose next run
// time has passed, and then computes the entry's following run time from
// the current clock. A run missed while the process was down or the loop
// was late fires once, not once per missed slot.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/metrics"
	"github.com/tomtom215/cinematch/internal/tasks"
)

// Entry is one row of the recurring schedule.
type Entry struct {
	Name string
	Expr string
	Task string
	Args tasks.Args

	cron *Cron
	next time.Time
}

// NextRun returns when the entry fires next. Zero before Start.
func (e *Entry) NextRun() time.Time {
	return e.next
}

// Scheduler owns the schedule table and its loop.
type Scheduler struct {
	submitter tasks.Submitter
	entries   []*Entry
	interval  time.Duration
	loc       *time.Location
	now       func() time.Time
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a scheduler from configuration. Every entry is validated up
// front: a bad cron expression or task argument fails startup instead of
// failing silently at fire time.
func New(cfg *config.SchedulerConfig, submitter tasks.Submitter) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	entries := make([]*Entry, 0, len(cfg.Entries))
	seen := make(map[string]bool, len(cfg.Entries))
	for _, ce := range cfg.Entries {
		if seen[ce.Name] {
			return nil, fmt.Errorf("duplicate schedule entry %q", ce.Name)
		}
		seen[ce.Name] = true

		cron, err := ParseCron(ce.Cron)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", ce.Name, err)
		}
		args := tasks.Args(ce.Args)
		if err := tasks.ValidateArgs(ce.Task, args); err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", ce.Name, err)
		}
		entries = append(entries, &Entry{
			Name: ce.Name,
			Expr: ce.Cron,
			Task: ce.Task,
			Args: args,
			cron: cron,
		})
	}

	return &Scheduler{
		submitter: submitter,
		entries:   entries,
		interval:  interval,
		loc:       loc,
		now:       time.Now,
		logger:    logging.WithComponent("scheduler"),
	}, nil
}

// Entries returns the schedule table.
func (s *Scheduler) Entries() []*Entry {
	return s.entries
}

// Start computes the first run of every entry and launches the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.plan(s.now())
	for _, e := range s.entries {
		s.logger.Info().
			Str("entry", e.Name).
			Str("cron", e.Expr).
			Str("task", e.Task).
			Time("next_run", e.next).
			Msg("schedule entry registered")
	}

	go s.run(ctx)
	return nil
}

// Stop ends the loop and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, s.now())
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// plan sets every entry's next run relative to now.
func (s *Scheduler) plan(now time.Time) {
	local := now.In(s.loc)
	for _, e := range s.entries {
		e.next = e.cron.Next(local)
	}
}

// tick fires every due entry once and reschedules it. It returns how many
// entries fired.
func (s *Scheduler) tick(ctx context.Context, now time.Time) int {
	local := now.In(s.loc)
	fired := 0
	for _, e := range s.entries {
		if e.next.IsZero() || local.Before(e.next) {
			continue
		}
		s.fire(ctx, e)
		fired++
		e.next = e.cron.Next(local)
	}
	return fired
}

func (s *Scheduler) fire(ctx context.Context, e *Entry) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	h, err := s.submitter.Submit(ctx, e.Task, e.Args)
	if err != nil {
		metrics.ScheduleFirings.WithLabelValues(e.Name, "error").Inc()
		s.logger.Error().Err(err).
			Str("entry", e.Name).
			Str("task", e.Task).
			Msg("scheduled submission failed")
		return
	}

	metrics.ScheduleFirings.WithLabelValues(e.Name, "submitted").Inc()
	s.logger.Info().
		Str("entry", e.Name).
		Str("task", e.Task).
		Str("task_id", h.TaskID).
		Msg("scheduled task submitted")
}
