// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"context"
	"net"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cinematch/internal/config"
)

func TestMemoryTransport_KeepsNoBacklog(t *testing.T) {
	transport := NewMemoryTransport(nil)
	t.Cleanup(func() { _ = transport.Close() })

	for i := range 3 {
		msg, err := encodeTask(&Task{ID: "early", Name: TaskImportMovie, Args: Args{ArgTMDBID: int64(i + 1)}})
		if err != nil {
			t.Fatalf("encodeTask() error = %v", err)
		}
		if err := transport.Publisher.Publish("tasks", msg); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := transport.WorkSubscriber.Subscribe(ctx, "tasks")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		t.Fatalf("late subscriber received %s; published messages must not be retained", msg.UUID)
	case <-time.After(200 * time.Millisecond):
	}

	live, _ := encodeTask(&Task{ID: "live", Name: TaskImportMovie, Args: Args{ArgTMDBID: 9}})
	if err := transport.Publisher.Publish("tasks", live); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case msg := <-msgs:
		msg.Ack()
		if msg.UUID != live.UUID {
			t.Errorf("received %s, want %s", msg.UUID, live.UUID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not receive a message published after subscribing")
	}
}

func TestStreamConfig(t *testing.T) {
	tests := []struct {
		name       string
		maxAge     time.Duration
		wantDupWin time.Duration
	}{
		{name: "long retention keeps the publisher dedup window", maxAge: 72 * time.Hour, wantDupWin: streamDuplicateWindow},
		{name: "dedup window never exceeds retention", maxAge: 30 * time.Second, wantDupWin: 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := streamConfig("cinematch-tasks", tt.maxAge)
			if cfg.Name != "cinematch-tasks" || len(cfg.Subjects) != 1 || cfg.Subjects[0] != "cinematch-tasks" {
				t.Errorf("name/subjects = %q/%v, want the topic for both", cfg.Name, cfg.Subjects)
			}
			if cfg.MaxAge != tt.maxAge {
				t.Errorf("MaxAge = %v, want %v", cfg.MaxAge, tt.maxAge)
			}
			if cfg.Duplicates != tt.wantDupWin {
				t.Errorf("Duplicates = %v, want %v", cfg.Duplicates, tt.wantDupWin)
			}
			if cfg.Retention != jetstream.LimitsPolicy {
				t.Errorf("Retention = %v, want limits", cfg.Retention)
			}
		})
	}
}

func TestEnsureStreams_AppliesMaxAge(t *testing.T) {
	srv, err := StartEmbeddedServer(&config.QueueConfig{
		NATSURL:  freeNATSURL(t),
		StoreDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("StartEmbeddedServer() error = %v", err)
	}
	t.Cleanup(srv.Shutdown)

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(nc.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream.New() error = %v", err)
	}

	steps := []struct {
		name   string
		maxAge time.Duration
	}{
		{name: "creates missing streams", maxAge: time.Hour},
		{name: "updates existing streams", maxAge: 2 * time.Hour},
	}
	for _, step := range steps {
		if err := ensureStreams(ctx, nc, step.maxAge, "tasks", "results"); err != nil {
			t.Fatalf("%s: ensureStreams() error = %v", step.name, err)
		}
		for _, topic := range []string{"tasks", "results"} {
			stream, err := js.Stream(ctx, topic)
			if err != nil {
				t.Fatalf("%s: Stream(%s) error = %v", step.name, topic, err)
			}
			if got := stream.CachedInfo().Config.MaxAge; got != step.maxAge {
				t.Errorf("%s: %s MaxAge = %v, want %v", step.name, topic, got, step.maxAge)
			}
		}
	}
}

func freeNATSURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return "nats://" + l.Addr().String()
}
