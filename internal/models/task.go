// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package models

import "time"

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     int64      `json:"ownerId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries the mutable fields of a task update. Nil fields are
// left unchanged.
type TaskPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *bool      `json:"completed"`
}

// TaskFilter narrows and pages a task listing. OwnerID is mandatory;
// every query is scoped to a single owner.
type TaskFilter struct {
	OwnerID int64

	// Search matches a case-insensitive substring against title or
	// description. Empty means no text filter.
	Search string

	// Completed filters by completion state when non-nil.
	Completed *bool

	// Page is 1-based. Limit caps the page size.
	Page  int
	Limit int
}

// TaskPage is one page of a filtered task listing. Total counts the
// entire filtered set, not just this page.
type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
