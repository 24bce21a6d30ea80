// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// GatedService holds back a service until ready is closed. The in-process
// transport drops tasks nobody is subscribed to, so producers wait for the
// local consumers.
type GatedService struct {
	ready   <-chan struct{}
	service suture.Service
}

// NewGatedService wraps service so Serve starts it only after ready closes.
func NewGatedService(ready <-chan struct{}, service suture.Service) *GatedService {
	return &GatedService{ready: ready, service: service}
}

// Serve waits for ready or ctx, then runs the wrapped service.
func (g *GatedService) Serve(ctx context.Context) error {
	select {
	case <-g.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.service.Serve(ctx)
}

// String implements fmt.Stringer for logging.
func (g *GatedService) String() string {
	return fmt.Sprint(g.service)
}
