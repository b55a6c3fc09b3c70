// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package client

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func testTask(id, title string) *models.Task {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Task{
		ID:        id,
		OwnerID:   1,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreTaskRoundTrip(t *testing.T) {
	store := newTestStore(t)

	task := testTask("t1", "write report")
	if err := store.PutTask(task); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}

	got, err := store.GetTask("t1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Title != "write report" {
		t.Errorf("Title = %q", got.Title)
	}

	if err := store.DeleteTask("t1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}

	if _, err := store.GetTask("t1"); !errors.Is(err, ErrTaskNotCached) {
		t.Errorf("GetTask() after delete error = %v, want ErrTaskNotCached", err)
	}

	// Deleting a missing task is not an error.
	if err := store.DeleteTask("t1"); err != nil {
		t.Errorf("DeleteTask() repeated error = %v", err)
	}
}

func TestStoreListTasksSorted(t *testing.T) {
	store := newTestStore(t)

	early := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	undated := testTask("a-undated", "undated")
	dueLate := testTask("b-late", "late")
	dueLate.DueDate = &late
	dueEarly := testTask("c-early", "early")
	dueEarly.DueDate = &early
	done := testTask("d-done", "done")
	done.DueDate = &early
	done.Completed = true

	for _, task := range []*models.Task{undated, dueLate, dueEarly, done} {
		if err := store.PutTask(task); err != nil {
			t.Fatalf("PutTask() error = %v", err)
		}
	}

	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}

	wantOrder := []string{"c-early", "b-late", "a-undated", "d-done"}
	if len(tasks) != len(wantOrder) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(wantOrder))
	}
	for i, want := range wantOrder {
		if tasks[i].ID != want {
			t.Errorf("position %d = %q, want %q", i, tasks[i].ID, want)
		}
	}
}

func TestStoreReplaceTasks(t *testing.T) {
	store := newTestStore(t)

	if err := store.PutTask(testTask("stale", "stale task")); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}

	if err := store.ReplaceTasks([]*models.Task{testTask("fresh", "fresh task")}); err != nil {
		t.Fatalf("ReplaceTasks() error = %v", err)
	}

	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "fresh" {
		t.Errorf("tasks = %+v, want only fresh", tasks)
	}
}

func TestStoreAuthRoundTrip(t *testing.T) {
	store := newTestStore(t)

	token, userID, err := store.LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth() error = %v", err)
	}
	if token != "" || userID != "" {
		t.Errorf("fresh store has auth: token=%q userID=%q", token, userID)
	}

	if err := store.SaveAuth("jwt-token", 42); err != nil {
		t.Fatalf("SaveAuth() error = %v", err)
	}

	token, userID, err = store.LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth() error = %v", err)
	}
	if token != "jwt-token" || userID != "42" {
		t.Errorf("LoadAuth() = %q, %q", token, userID)
	}

	if err := store.ClearAuth(); err != nil {
		t.Fatalf("ClearAuth() error = %v", err)
	}
	token, _, err = store.LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth() error = %v", err)
	}
	if token != "" {
		t.Errorf("token = %q after ClearAuth", token)
	}
}

func TestOpQueueOrder(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	// Append out of order; replay order must follow timestamps.
	for _, offset := range []int{2, 0, 1} {
		err := store.AppendOp(&Operation{
			Type:      OpUpdate,
			TaskID:    string(rune('a' + offset)),
			Payload:   json.RawMessage(`{}`),
			Timestamp: base.Add(time.Duration(offset) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendOp() error = %v", err)
		}
	}

	ops, err := store.PendingOps()
	if err != nil {
		t.Fatalf("PendingOps() error = %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	for i, want := range []string{"a", "b", "c"} {
		if ops[i].TaskID != want {
			t.Errorf("op %d task = %q, want %q", i, ops[i].TaskID, want)
		}
	}
}

func TestRemoveOps(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		err := store.AppendOp(&Operation{
			Type:      OpDelete,
			TaskID:    "t1",
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendOp() error = %v", err)
		}
	}

	ops, err := store.PendingOps()
	if err != nil {
		t.Fatalf("PendingOps() error = %v", err)
	}

	if err := store.RemoveOps([]string{ops[0].ID, ops[2].ID}); err != nil {
		t.Fatalf("RemoveOps() error = %v", err)
	}

	remaining, err := store.PendingOps()
	if err != nil {
		t.Fatalf("PendingOps() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != ops[1].ID {
		t.Errorf("remaining = %+v, want only middle op", remaining)
	}
}

func TestRewriteTaskID(t *testing.T) {
	store := newTestStore(t)

	localID := NewLocalID()
	if !IsLocalID(localID) {
		t.Fatalf("NewLocalID() = %q, not recognized as local", localID)
	}

	if err := store.PutTask(testTask(localID, "offline task")); err != nil {
		t.Fatalf("PutTask() error = %v", err)
	}
	err := store.AppendOp(&Operation{
		Type:      OpUpdate,
		TaskID:    localID,
		Payload:   json.RawMessage(`{"completed":true}`),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AppendOp() error = %v", err)
	}

	if err := store.RewriteTaskID(localID, "server-id"); err != nil {
		t.Fatalf("RewriteTaskID() error = %v", err)
	}

	if _, err := store.GetTask(localID); !errors.Is(err, ErrTaskNotCached) {
		t.Errorf("local id still in mirror: %v", err)
	}
	task, err := store.GetTask("server-id")
	if err != nil {
		t.Fatalf("GetTask(server-id) error = %v", err)
	}
	if task.Title != "offline task" {
		t.Errorf("Title = %q", task.Title)
	}

	ops, err := store.PendingOps()
	if err != nil {
		t.Fatalf("PendingOps() error = %v", err)
	}
	if len(ops) != 1 || ops[0].TaskID != "server-id" {
		t.Errorf("ops = %+v, want task id rewritten", ops)
	}
}
