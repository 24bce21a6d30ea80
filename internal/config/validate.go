// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cinematch/internal/validation"
)

// Validate checks struct rules first, then rules that span sections.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateScheduler()
}

// validateCatalog requires a token only where the catalog is called.
func (c *Config) validateCatalog() error {
	if c.Server.HasRole(RoleWorker) && c.Catalog.APIToken == "" {
		return errors.New("catalog.api_token is required when the worker role is enabled (set TMDB_API_TOKEN)")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Backend == "memory" {
		// gochannel pub/sub does not cross process boundaries
		if !c.Server.HasRole(RoleWorker) {
			return errors.New("queue.backend=memory needs the worker role in the same process; use nats to split roles")
		}
		return nil
	}
	if !c.Queue.EmbeddedServer && c.Queue.NATSURL == "" {
		return errors.New("queue.nats_url is required when the embedded server is disabled")
	}
	if c.Queue.EmbeddedServer && c.Queue.StoreDir == "" {
		return errors.New("queue.store_dir is required for the embedded server")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Server.HasRole(RoleScheduler) {
		return nil
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	seen := make(map[string]bool, len(c.Scheduler.Entries))
	for _, e := range c.Scheduler.Entries {
		if seen[e.Name] {
			return fmt.Errorf("scheduler.entries: duplicate name %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}
