// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/logging"
)

// Transport bundles the pub/sub endpoints shared by the queue, the
// workers and the status recorder.
type Transport struct {
	Publisher message.Publisher

	// WorkSubscriber feeds workers. On NATS, subscribers share a queue
	// group so each task reaches exactly one worker.
	WorkSubscriber message.Subscriber

	// WatchSubscriber sees every task and result; it feeds the recorder.
	WatchSubscriber message.Subscriber

	closers []func() error
}

// Close shuts down every endpoint and, when embedded, the NATS server.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}

// NewTransport builds the backend selected by cfg.Backend.
func NewTransport(cfg *config.QueueConfig) (*Transport, error) {
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("watermill"))
	switch cfg.Backend {
	case "memory":
		return NewMemoryTransport(logger), nil
	case "nats":
		return NewNATSTransport(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Backend)
	}
}

// NewMemoryTransport runs everything over one in-process gochannel. It only
// suits single-process deployments. The channel keeps nothing: a message
// published while a topic has no subscriber is dropped, so the process
// accepts submissions only after its worker and recorder are subscribed.
func NewMemoryTransport(logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
		Persistent:          false,
	}, logger)

	return &Transport{
		Publisher:       pubSub,
		WorkSubscriber:  pubSub,
		WatchSubscriber: pubSub,
		closers:         []func() error{pubSub.Close},
	}
}

// NewNATSTransport connects to NATS JetStream, starting an embedded server
// first when configured to. The task and result streams are created with
// an age limit before watermill sees them.
func NewNATSTransport(cfg *config.QueueConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	t := &Transport{}

	url := cfg.NATSURL
	if cfg.EmbeddedServer {
		srv, err := StartEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, func() error {
			srv.Shutdown()
			return nil
		})
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	if err := provisionStreams(url, natsOpts, cfg.StreamMaxAge, cfg.TasksTopic, cfg.ResultsTopic); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("provision task streams: %w", err)
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("create task publisher: %w", err)
	}
	t.Publisher = pub
	t.closers = append(t.closers, pub.Close)

	work, err := newJetStreamSubscriber(url, natsOpts, cfg.QueueGroup, cfg.DurablePrefix+"-worker", cfg.Workers, cfg.AckWait, logger)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("create worker subscriber: %w", err)
	}
	t.WorkSubscriber = work
	t.closers = append(t.closers, work.Close)

	watch, err := newJetStreamSubscriber(url, natsOpts, "", cfg.DurablePrefix+"-recorder", 1, cfg.AckWait, logger)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("create recorder subscriber: %w", err)
	}
	t.WatchSubscriber = watch
	t.closers = append(t.closers, watch.Close)

	return t, nil
}

func newJetStreamSubscriber(
	url string,
	natsOpts []natsgo.Option,
	queueGroup, durable string,
	count int,
	ackWait time.Duration,
	logger watermill.LoggerAdapter,
) (message.Subscriber, error) {
	if count < 1 {
		count = 1
	}
	subOpts := []natsgo.SubOpt{
		natsgo.AckWait(ackWait),
		natsgo.DeliverAll(),
	}

	return wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: count,
		AckWaitTimeout:   ackWait,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:    true,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    durable,
			DurableCalculator: func(prefix, topic string) string {
				return prefix + "-" + topic
			},
		},
	}, logger)
}
