// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Package websocket implements the realtime notifier: a hub that groups
// connections into per-user rooms and fans each task mutation event out
// to every connection of the task's owner. Delivery is fire-and-forget;
// a slow client is disconnected rather than buffered indefinitely.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/metrics"
	"github.com/milascristina/TasksManager/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub owns the room registry. All membership changes flow through the
// Register/Unregister channels and are applied by the hub goroutine, so
// connections of the same user never race on the room map.
type Hub struct {
	// rooms groups connections by user id. A room exists only while at
	// least one of the user's connections is open.
	rooms map[int64]map[*Client]bool

	publish    chan models.TaskEvent
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		publish:    make(chan models.TaskEvent, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[int64]map[*Client]bool),
	}
}

// RunWithContext runs the hub event loop until the context is canceled.
// Designed for suture supervision: on cancellation all clients are
// closed and ctx.Err() is returned, so the supervisor can restart the
// hub without leaking connections.
//
// Selection is priority-based: shutdown first, then lifecycle events,
// then event fan-out. Client state is therefore always settled before a
// broadcast is processed.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case event := <-h.publish:
			h.broadcastToRoom(event)
		}
	}
}

// Publish queues a task event for fan-out to the owner's room. Never
// blocks; the event is dropped when the hub is saturated.
func (h *Hub) Publish(event models.TaskEvent) {
	select {
	case h.publish <- event:
	default:
		metrics.WSEventsDropped.Inc()
		logging.Warn().
			Str("event", event.Event).
			Int64("owner_id", event.OwnerID).
			Msg("publish channel full, dropping task event")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.userID] = room
	}
	room[client] = true
	h.mu.Unlock()

	metrics.WSConnectionsActive.Inc()
	logging.Info().
		Int64("user_id", client.userID).
		Int("room_size", len(room)).
		Msg("websocket client joined room")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.userID]
	if ok {
		if _, member := room[client]; member {
			delete(room, client)
			close(client.send)
			if len(room) == 0 {
				delete(h.rooms, client.userID)
			}
			metrics.WSConnectionsActive.Dec()
		}
	}
	h.mu.Unlock()

	logging.Info().
		Int64("user_id", client.userID).
		Msg("websocket client left room")
}

// broadcastToRoom delivers an event to every connection in the owner's
// room. Clients are walked in id order so delivery order is stable.
// A client whose send buffer is full is dropped from the room.
func (h *Hub) broadcastToRoom(event models.TaskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[event.OwnerID]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- event:
			metrics.WSEventsDelivered.WithLabelValues(event.Event).Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(room, client)
		metrics.WSConnectionsActive.Dec()
		metrics.WSEventsDropped.Inc()
	}
	if len(room) == 0 {
		delete(h.rooms, event.OwnerID)
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation
// is the expected shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every connection in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var clients []*Client
	for _, room := range h.rooms {
		for client := range room {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
	}
	h.rooms = make(map[int64]map[*Client]bool)
	metrics.WSConnectionsActive.Set(0)
}

// GetClientCount returns the number of connected clients across all rooms.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, room := range h.rooms {
		count += len(room)
	}
	return count
}

// GetRoomSize returns the number of connections in one user's room.
func (h *Hub) GetRoomSize(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
