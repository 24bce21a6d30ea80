// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer is one child supervisor of the process tree. A service that keeps
// failing only backs off its own layer.
type Layer int

const (
	// LayerStatus holds the task status recorder.
	LayerStatus Layer = iota
	// LayerTasks holds the task worker and the scheduler.
	LayerTasks
	// LayerAPI holds the HTTP server.
	LayerAPI

	layerCount
)

var layerNames = [layerCount]string{"status-layer", "tasks-layer", "api-layer"}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// RestartPolicy controls how the tree restarts failing services. Zero
// fields take the DefaultRestartPolicy value.
type RestartPolicy struct {
	// FailureThreshold is the decayed failure count that triggers backoff.
	FailureThreshold float64
	// FailureDecay is the failure half-life in seconds.
	FailureDecay float64
	// FailureBackoff is how long a layer pauses restarts after the threshold.
	FailureBackoff time.Duration
	// StopTimeout is how long each service gets to return from Serve.
	StopTimeout time.Duration
}

// DefaultRestartPolicy matches suture's defaults.
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		StopTimeout:      10 * time.Second,
	}
}

func (p RestartPolicy) withDefaults() RestartPolicy {
	d := DefaultRestartPolicy()
	if p.FailureThreshold == 0 {
		p.FailureThreshold = d.FailureThreshold
	}
	if p.FailureDecay == 0 {
		p.FailureDecay = d.FailureDecay
	}
	if p.FailureBackoff == 0 {
		p.FailureBackoff = d.FailureBackoff
	}
	if p.StopTimeout == 0 {
		p.StopTimeout = d.StopTimeout
	}
	return p
}

func (p RestartPolicy) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: p.FailureThreshold,
		FailureDecay:     p.FailureDecay,
		FailureBackoff:   p.FailureBackoff,
		Timeout:          p.StopTimeout,
	}
}

// Tree supervises every long-lived service of one cinematch process.
type Tree struct {
	root   *suture.Supervisor
	layers [layerCount]*suture.Supervisor
	policy RestartPolicy
}

// NewTree builds the root supervisor and its layers. Supervisor events are
// logged through logger.
func NewTree(logger *slog.Logger, policy RestartPolicy) *Tree {
	policy = policy.withDefaults()

	rootSpec := policy.spec()
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &Tree{
		root:   suture.New("cinematch", rootSpec),
		policy: policy,
	}
	// Layers inherit the root's event hook when added.
	for l := range layerCount {
		t.layers[l] = suture.New(l.String(), policy.spec())
		t.root.Add(t.layers[l])
	}
	return t
}

// Add registers svc in layer. Services may be added while the tree runs.
func (t *Tree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	return t.layers[layer].Add(svc)
}

// ServeBackground runs the tree until ctx ends. The channel receives the
// root supervisor's exit error.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed StopTimeout during the
// last shutdown.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
