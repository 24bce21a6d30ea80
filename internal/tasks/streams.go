// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// streamDuplicateWindow matches the publisher's message-id tracking.
const streamDuplicateWindow = 2 * time.Minute

// streamConfig is the JetStream stream for one watermill topic. Watermill
// names the stream and its only subject after the topic, and only creates
// it when missing, so provisioning it first sets the limits it runs with.
//
// Tasks are read by both the worker durable and the recorder durable, which
// rules out work-queue retention; messages age out after maxAge instead.
func streamConfig(topic string, maxAge time.Duration) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       topic,
		Subjects:   []string{topic},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     maxAge,
		Duplicates: min(streamDuplicateWindow, maxAge),
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// ensureStreams creates or updates the stream for every topic. It is
// idempotent, so each process may run it at startup.
func ensureStreams(ctx context.Context, nc *natsgo.Conn, maxAge time.Duration, topics ...string) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	for _, topic := range topics {
		cfg := streamConfig(topic, maxAge)

		_, err := js.Stream(ctx, topic)
		switch {
		case err == nil:
			if _, err := js.UpdateStream(ctx, cfg); err != nil {
				return fmt.Errorf("update stream %s: %w", topic, err)
			}
		case errors.Is(err, jetstream.ErrStreamNotFound):
			if _, err := js.CreateStream(ctx, cfg); err != nil {
				return fmt.Errorf("create stream %s: %w", topic, err)
			}
		default:
			return fmt.Errorf("check stream %s: %w", topic, err)
		}
	}
	return nil
}

// provisionStreams opens a short-lived connection for ensureStreams.
func provisionStreams(url string, natsOpts []natsgo.Option, maxAge time.Duration, topics ...string) error {
	nc, err := natsgo.Connect(url, natsOpts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return ensureStreams(ctx, nc, maxAge, topics...)
}
