// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/validation"
)

// maxRequestBody caps request bodies at 1 MiB. Task payloads are tiny;
// anything larger is abuse.
const maxRequestBody = 1 << 20

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateTaskRequest is the body for POST /api/tasks. DueDate accepts
// RFC 3339 timestamps; Completed is ignored on create, new tasks always
// start incomplete.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest is the body for PUT /api/tasks/{id}. Every field is
// a pointer: absent fields leave the stored value unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *bool      `json:"completed"`
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validation.ValidateStruct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Validation failed: %s", err.Error()))
		return false
	}

	return true
}
