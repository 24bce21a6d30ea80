// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of /healthz.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version,omitempty"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime_seconds"`
}

const healthPingTimeout = 2 * time.Second

// Health answers 200 when the database responds and 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	health := HealthStatus{
		Status:            "healthy",
		Version:           h.version,
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	status := http.StatusOK
	if err := h.movies.Ping(ctx); err != nil {
		health.Status = "degraded"
		health.DatabaseConnected = false
		status = http.StatusServiceUnavailable
	}

	respondSuccess(w, r, status, health)
}
