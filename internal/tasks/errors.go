// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import "errors"

var (
	// ErrTaskNotFound is returned by the status store for unknown or expired ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnknownTask is returned for a name with no registered handler.
	ErrUnknownTask = errors.New("unknown task")

	// ErrInvalidArgs is returned when task arguments are missing or out of range.
	ErrInvalidArgs = errors.New("invalid task arguments")

	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("task queue is closed")
)
