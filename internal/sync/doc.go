// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package sync keeps the local catalog store in step with the external catalog.

Key Components:

  - Importer: fetches one movie with its credits and cast, then writes the
    movie, its genres, its actors and all link rows in one unit of work
  - Crawler: walks pages of the popular listing and dispatches one import
    per movie that is not stored yet
  - Refresher: selects the movies added first and dispatches a stats
    refresh for each; RefreshStats re-fetches one movie and overwrites its
    rating and popularity

Failure Handling:

Catalog failures never surface as errors here. A missing movie payload
ends an import with OutcomeSourceUnavailable and nothing written; a missing
person payload drops that actor only. Errors returned by Import come from
the store, after the unit of work has been rolled back.

All fetches of an import happen before its transaction opens, so no
transaction is held across a network call. Cast members are fetched
sequentially in credits order.

Ports:

The crawler and refresher never talk to the task queue directly; they hand
ids to an ImportDispatcher or StatsDispatcher, which the tasks package
implements and tests replace with in-memory fakes.
*/
package sync
