// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Command server runs the cinematch catalog synchronization pipeline.

One binary carries three roles, selected with SERVER_ROLES (default: all):

	api        HTTP task triggers, task status, movie reads
	worker     executes catalog tasks against TMDB and the store
	scheduler  submits the recurring crawl and refresh tasks

All roles share a task queue. With QUEUE_BACKEND=memory everything runs in
one process; with QUEUE_BACKEND=nats the roles can be split across
processes that talk through NATS JetStream, optionally embedded in one of
them (NATS_EMBEDDED=true).

# Process layout

	cinematch
	├── status-layer  task-recorder     (api role)
	├── tasks-layer   task-worker       (worker role)
	│                 catalog-scheduler (scheduler role)
	└── api-layer     http-server       (api role)

With the memory backend the scheduler and the HTTP server start only after
the local worker and recorder have subscribed, since the in-process channel
drops tasks nobody is listening for.

# Configuration

Koanf v2, highest priority wins:

	Environment variables > config file (CONFIG_PATH, ./config.yaml) > defaults

Common environment variables:

	TMDB_API_TOKEN=<v4 read token>     # required for the worker role
	TMDB_LANGUAGE=ru-RU
	DATABASE_DRIVER=duckdb             # duckdb or pgx
	DUCKDB_PATH=/data/cinematch.duckdb
	DATABASE_URL=postgres://...        # with DATABASE_DRIVER=pgx
	QUEUE_BACKEND=memory               # memory or nats
	NATS_URL=nats://127.0.0.1:4222
	STREAM_MAX_AGE=72h                 # JetStream retention per topic
	WORKER_CONCURRENCY=2
	HTTP_LISTEN_ADDR=:8080
	LOG_LEVEL=info
	LOG_FORMAT=json

# Example

	export TMDB_API_TOKEN=...
	./server &
	curl -X POST localhost:8080/api/v1/tasks/crawl?start_page=1&end_page=5
	curl localhost:8080/api/v1/tasks/<task_id>

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for up to SHUTDOWN_TIMEOUT and the worker stops taking
new tasks. Once the supervisor tree has stopped, the transport, the status
store and the database are closed in that order.
*/
package main
