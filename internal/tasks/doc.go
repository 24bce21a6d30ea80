// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package tasks is the background task layer: a named-task envelope, a
queue that publishes it, workers that execute it, and a status store that
answers "what happened to task X".

# Tasks

	catalog.import_movie         {tmdb_id}
	catalog.crawl_popular        {start_page, end_page}
	catalog.refresh_oldest       {batch_size}   (optional)
	catalog.refresh_movie_stats  {tmdb_id}

# Flow

	Queue.Submit -> tasks topic -> Worker (router) -> handler
	                     |                                |
	                     v                                v
	                 Recorder  <------- results topic <---+
	                     |
	                     v
	                StatusStore (Badger, TTL)

A task moves PENDING -> SUCCESS | FAILURE. Workers acknowledge a task
after its result is published, whether it succeeded or not; nothing is
retried automatically. JetStream redelivers only when a worker dies
mid-task, and the handlers tolerate running twice.

# Backends

The memory backend runs everything over one in-process gochannel and
executes one task at a time. The nats backend uses JetStream with a shared
queue group for workers, so any number of worker processes can consume the
same topic; an embedded server can be started for single-host setups.
*/
package tasks
