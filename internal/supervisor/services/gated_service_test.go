// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type startRecorder struct {
	started chan struct{}
}

func (s *startRecorder) Serve(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	return ctx.Err()
}

func (s *startRecorder) String() string { return "catalog-scheduler" }

var _ suture.Service = (*GatedService)(nil)

func TestGatedService_WaitsForReady(t *testing.T) {
	ready := make(chan struct{})
	inner := &startRecorder{started: make(chan struct{})}
	svc := NewGatedService(ready, inner)

	if got := svc.String(); got != "catalog-scheduler" {
		t.Errorf("String() = %q, want the wrapped name", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-inner.started:
		t.Fatal("wrapped service started before ready closed")
	case <-time.After(50 * time.Millisecond):
	}

	close(ready)
	select {
	case <-inner.started:
	case <-time.After(time.Second):
		t.Fatal("wrapped service did not start after ready closed")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestGatedService_CanceledBeforeReady(t *testing.T) {
	inner := &startRecorder{started: make(chan struct{})}
	svc := NewGatedService(make(chan struct{}), inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	select {
	case <-inner.started:
		t.Error("wrapped service started without ready")
	default:
	}
}
