// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/milascristina/TasksManager/internal/config"
)

// newTestDB opens a fresh database in a temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "256MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "alice", "hash1")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("CreateUser() did not assign an id")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want alice", user.Username)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	second, err := db.CreateUser(ctx, "bob", "hash2")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if second.ID == user.ID {
		t.Error("two users share an id")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "hash1"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	_, err := db.CreateUser(ctx, "alice", "hash2")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrDuplicateUsername", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateUser(ctx, "alice", "hash1")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user, err := db.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("ID = %d, want %d", user.ID, created.ID)
	}
	if user.PasswordHash != "hash1" {
		t.Errorf("PasswordHash = %q, want hash1", user.PasswordHash)
	}

	_, err = db.GetUserByUsername(ctx, "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByUsername(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateUser(ctx, "alice", "hash1")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user, err := db.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want alice", user.Username)
	}

	_, err = db.GetUserByID(ctx, 99999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByID(99999) error = %v, want ErrNotFound", err)
	}
}
