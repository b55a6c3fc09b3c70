// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package events

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/models"
)

// RoomPublisher is the hub-side sink for forwarded task events.
type RoomPublisher interface {
	Publish(event models.TaskEvent)
}

// Forwarder pipes task events from the bus into the websocket hub.
// It implements suture.Service via Serve.
type Forwarder struct {
	bus *Bus
	hub RoomPublisher
}

// NewForwarder creates a forwarder between the bus and the hub.
func NewForwarder(bus *Bus, hub RoomPublisher) *Forwarder {
	return &Forwarder{bus: bus, hub: hub}
}

// Serve consumes the task event stream until the context is canceled.
// Undecodable messages are acked and dropped; redelivering them would
// fail the same way forever.
func (f *Forwarder) Serve(ctx context.Context) error {
	messages, err := f.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	logging.Info().Str("component", "event-forwarder").Msg("forwarding task events to hub")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}

			var event models.TaskEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logging.Warn().Err(err).
					Str("message_uuid", msg.UUID).
					Msg("dropping undecodable task event")
				msg.Ack()
				continue
			}

			// OwnerID travels in metadata; the JSON envelope omits it so
			// clients never see another user's id on the wire.
			if raw := msg.Metadata.Get("owner_id"); raw != "" {
				if ownerID, err := strconv.ParseInt(raw, 10, 64); err == nil {
					event.OwnerID = ownerID
				}
			}

			f.hub.Publish(event)
			msg.Ack()
		}
	}
}

// String identifies the forwarder in supervisor logs.
func (f *Forwarder) String() string {
	return "event-forwarder"
}
