// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/milascristina/TasksManager/internal/models"
)

// startHub runs the hub loop for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// register adds a client and waits until the hub has applied it.
func register(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.Register <- client

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetRoomSize(client.userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func recvEvent(t *testing.T, client *Client) models.TaskEvent {
	t.Helper()
	select {
	case event := <-client.send:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return models.TaskEvent{}
	}
}

func TestPublishReachesOwnerRoom(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, 1)
	register(t, hub, alice)

	hub.Publish(models.TaskEvent{Event: models.EventTaskCreated, OwnerID: 1, Data: models.TaskRef{ID: "t1"}})

	event := recvEvent(t, alice)
	if event.Event != models.EventTaskCreated {
		t.Errorf("event = %q, want %q", event.Event, models.EventTaskCreated)
	}
}

func TestPublishIsolatedBetweenRooms(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, 1)
	bob := NewClient(hub, nil, 2)
	register(t, hub, alice)
	register(t, hub, bob)

	hub.Publish(models.TaskEvent{Event: models.EventTaskUpdated, OwnerID: 1, Data: models.TaskRef{ID: "t1"}})

	recvEvent(t, alice)

	select {
	case event := <-bob.send:
		t.Errorf("bob received %q for alice's task", event.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishFansOutToAllConnections(t *testing.T) {
	hub := startHub(t)

	first := NewClient(hub, nil, 1)
	second := NewClient(hub, nil, 1)
	register(t, hub, first)
	register(t, hub, second)

	if size := hub.GetRoomSize(1); size != 2 {
		t.Fatalf("room size = %d, want 2", size)
	}

	hub.Publish(models.TaskEvent{Event: models.EventTaskDeleted, OwnerID: 1, Data: models.TaskRef{ID: "t1"}})

	for _, client := range []*Client{first, second} {
		event := recvEvent(t, client)
		if event.Event != models.EventTaskDeleted {
			t.Errorf("event = %q, want %q", event.Event, models.EventTaskDeleted)
		}
	}
}

func TestUnregisterClosesRoom(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1)
	register(t, hub, client)

	hub.Unregister <- client

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetRoomSize(1) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("room not torn down in time")
		}
		time.Sleep(time.Millisecond)
	}

	// The send channel is closed as part of removal.
	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestShutdownClosesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := NewClient(hub, nil, 1)
	hub.Register <- client

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered in time")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if count := hub.GetClientCount(); count != 0 {
		t.Errorf("GetClientCount() = %d after shutdown, want 0", count)
	}
}
