// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package models

import "time"

// APIResponse is the envelope of every HTTP response.
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
//	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "...", "message": "..."}}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable code plus a human-readable message.
// Details carries per-field validation failures.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// MovieDetail is a stored movie with its genres and cast.
type MovieDetail struct {
	Movie
	Genres []Genre     `json:"genres"`
	Cast   []CastEntry `json:"cast"`
}

// CastEntry is an actor together with the character they played.
type CastEntry struct {
	Actor
	RoleName string `json:"role_name,omitempty"`
}
