// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Package events carries task mutation events from the HTTP handlers to
// the websocket hub over a Watermill pub/sub bus. The default transport
// is the in-process gochannel; NATS is available for deployments that
// already run one, optionally embedded in this process.
package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/milascristina/TasksManager/internal/config"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/models"
)

// TopicTaskEvents is the single topic all task mutations flow through.
const TopicTaskEvents = "tasks.events"

// Bus is a thin wrapper over a Watermill publisher/subscriber pair.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *EmbeddedServer
}

// NewBus constructs the bus for the configured transport.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	logger := newWatermillLogger()

	switch cfg.Transport {
	case "gochannel":
		pubsub := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger)
		return &Bus{publisher: pubsub, subscriber: pubsub}, nil

	case "nats":
		return newNATSBus(cfg, logger)

	default:
		return nil, fmt.Errorf("unknown events transport %q", cfg.Transport)
	}
}

// newNATSBus connects publisher and subscriber to a NATS server,
// starting an embedded one first when configured. JetStream is disabled:
// realtime notifications are fire-and-forget, there is nothing to replay.
func newNATSBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	url := cfg.NATSURL
	var embedded *EmbeddedServer
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		embedded = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &Bus{publisher: pub, subscriber: sub, embedded: embedded}, nil
}

// PublishTask publishes a task mutation event. Failures are logged, not
// returned: the HTTP mutation already committed and must not be rolled
// back because a notification could not be sent.
func (b *Bus) PublishTask(ctx context.Context, event models.TaskEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to marshal task event")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event", event.Event)
	msg.Metadata.Set("owner_id", strconv.FormatInt(event.OwnerID, 10))

	if err := b.publisher.Publish(TopicTaskEvents, msg); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("event", event.Event).
			Msg("failed to publish task event")
	}
}

// Subscribe returns the raw event stream for TopicTaskEvents.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, TopicTaskEvents)
}

// Close shuts down the transport, including the embedded NATS server
// when one was started.
func (b *Bus) Close() error {
	err := b.publisher.Close()
	if any(b.subscriber) != any(b.publisher) {
		if serr := b.subscriber.Close(); err == nil {
			err = serr
		}
	}
	if b.embedded != nil {
		if serr := b.embedded.Shutdown(context.Background()); err == nil {
			err = serr
		}
	}
	return err
}
