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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/cinematch/internal/logging"
)

// routerCloseTimeout bounds how long Close waits for in-flight handlers.
const routerCloseTimeout = 30 * time.Second

// newRouter creates a Watermill router with panic recovery. There is no
// retry middleware: a failed task is reported, not re-run.
func newRouter(component string) (*message.Router, error) {
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger(component))

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: routerCloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create %s router: %w", component, err)
	}
	router.AddMiddleware(middleware.Recoverer)
	return router, nil
}

// signalRunning closes ready once router has subscribed all its handlers.
// A restarted service reuses the same channel, so once guards the close.
func signalRunning(ctx context.Context, router *message.Router, once *gosync.Once, ready chan struct{}) {
	select {
	case <-router.Running():
		once.Do(func() { close(ready) })
	case <-ctx.Done():
	}
}
