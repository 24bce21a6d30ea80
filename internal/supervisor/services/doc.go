// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package services adapts components whose lifecycle is not already
context-driven to suture's Serve pattern.

  - HTTPServerService: ListenAndServe / Shutdown of the API server
  - SchedulerService: Start / Stop of the recurring task scheduler

Each Serve blocks until its context is canceled and then stops the wrapped
component, returning ctx.Err() so the supervisor does not restart it.
Start failures are returned immediately and count towards suture's backoff.
*/
package services
