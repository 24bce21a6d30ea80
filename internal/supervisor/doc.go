// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

/*
Package supervisor runs the long-lived parts of a cinematch process under a
suture v4 tree.

# Overview

Services are grouped into three layers so that a crash in one does not take
the others down:

	cinematch
	├── status-layer (LayerStatus)
	│   └── task-recorder        keeps the task status store current
	├── tasks-layer (LayerTasks)
	│   ├── task-worker          runs catalog tasks (role: worker)
	│   └── catalog-scheduler    submits recurring tasks (role: scheduler)
	└── api-layer (LayerAPI)
	    └── http-server          task triggers and status (role: api)

Which services exist depends on server.roles; a process may carry any
subset. The worker and recorder implement suture.Service themselves, the
scheduler and HTTP server are adapted by package services.

# Usage

	tree := supervisor.NewTree(logging.NewComponentSlogLogger("supervisor"), supervisor.DefaultRestartPolicy())
	tree.Add(supervisor.LayerStatus, recorder)
	tree.Add(supervisor.LayerTasks, worker)
	tree.Add(supervisor.LayerTasks, services.NewSchedulerService(sched))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err := <-tree.ServeBackground(ctx) // ctx canceled or the root gave up

Restarts back off after FailureThreshold failures (decaying over
FailureDecay seconds). Services that do not stop within ShutdownTimeout
show up in UnstoppedServiceReport.
*/
package supervisor
