// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package models

// Task mutation event names as delivered to WebSocket clients.
const (
	EventTaskCreated = "taskCreated"
	EventTaskUpdated = "taskUpdated"
	EventTaskDeleted = "taskDeleted"
)

// TaskEvent is the envelope for realtime task notifications. Data holds
// the full task for creates and updates, and only the id for deletes.
type TaskEvent struct {
	Event   string      `json:"event"`
	OwnerID int64       `json:"-"`
	Data    interface{} `json:"data"`
}

// TaskRef is the delete payload: just enough for a client to drop the
// task from its local state.
type TaskRef struct {
	ID string `json:"id"`
}
