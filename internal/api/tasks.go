// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/database"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/metrics"
	"github.com/milascristina/TasksManager/internal/models"
)

// ListTasks handles GET /api/tasks. Supports search, completed
// filtering, and pagination; the total always reflects the filtered
// count, not the page size.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	filter := &models.TaskFilter{
		OwnerID: claims.UserID,
		Search:  strings.TrimSpace(r.URL.Query().Get("search")),
		Page:    1,
		Limit:   h.cfg.API.DefaultPageSize,
	}

	if raw := r.URL.Query().Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid completed filter, expected true or false")
			return
		}
		filter.Completed = &completed
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeMessage(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		filter.Page = page
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeMessage(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		if limit > h.cfg.API.MaxPageSize {
			limit = h.cfg.API.MaxPageSize
		}
		filter.Limit = limit
	}

	page, err := h.db.ListTasks(r.Context(), filter)
	if err != nil {
		metrics.RecordTaskOperation("list", err)
		writeInternalError(w, r, err, "failed to list tasks")
		return
	}

	metrics.RecordTaskOperation("list", nil)
	writeJSON(w, http.StatusOK, page)
}

// GetTask handles GET /api/tasks/{id}. A task owned by someone else is
// indistinguishable from one that does not exist.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.db.GetTask(r.Context(), taskID, claims.UserID)
	if err != nil {
		metrics.RecordTaskOperation("get", err)
		if errors.Is(err, database.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		writeInternalError(w, r, err, "failed to get task")
		return
	}

	metrics.RecordTaskOperation("get", nil)
	writeJSON(w, http.StatusOK, task)
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task := &models.Task{
		OwnerID:     claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}

	created, err := h.db.CreateTask(r.Context(), task)
	if err != nil {
		metrics.RecordTaskOperation("create", err)
		writeInternalError(w, r, err, "failed to create task")
		return
	}

	metrics.RecordTaskOperation("create", nil)
	logging.Ctx(r.Context()).Info().
		Str("task_id", created.ID).
		Int64("user_id", claims.UserID).
		Msg("task created")

	h.bus.PublishTask(r.Context(), models.TaskEvent{
		Event:   models.EventTaskCreated,
		OwnerID: claims.UserID,
		Data:    created,
	})

	writeJSON(w, http.StatusCreated, created)
}

// UpdateTask handles PUT /api/tasks/{id}. Absent fields in the body are
// left unchanged.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	patch := &models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	}

	updated, err := h.db.UpdateTask(r.Context(), taskID, claims.UserID, patch)
	if err != nil {
		metrics.RecordTaskOperation("update", err)
		if errors.Is(err, database.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		writeInternalError(w, r, err, "failed to update task")
		return
	}

	metrics.RecordTaskOperation("update", nil)
	logging.Ctx(r.Context()).Info().
		Str("task_id", updated.ID).
		Int64("user_id", claims.UserID).
		Msg("task updated")

	h.bus.PublishTask(r.Context(), models.TaskEvent{
		Event:   models.EventTaskUpdated,
		OwnerID: claims.UserID,
		Data:    updated,
	})

	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
		return
	}

	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteTask(r.Context(), taskID, claims.UserID); err != nil {
		metrics.RecordTaskOperation("delete", err)
		if errors.Is(err, database.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		writeInternalError(w, r, err, "failed to delete task")
		return
	}

	metrics.RecordTaskOperation("delete", nil)
	logging.Ctx(r.Context()).Info().
		Str("task_id", taskID).
		Int64("user_id", claims.UserID).
		Msg("task deleted")

	h.bus.PublishTask(r.Context(), models.TaskEvent{
		Event:   models.EventTaskDeleted,
		OwnerID: claims.UserID,
		Data:    models.TaskRef{ID: taskID},
	})

	w.WriteHeader(http.StatusNoContent)
}

// taskIDParam extracts and sanity-checks the {id} path parameter.
// Blank ids and the literal "undefined" (a common broken-client
// artifact) are rejected with 400 before touching the database.
func taskIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" || taskID == "undefined" || taskID == "null" {
		writeMessage(w, http.StatusBadRequest, "Invalid task ID")
		return "", false
	}
	return taskID, true
}
