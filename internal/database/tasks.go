// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/milascristina/TasksManager/internal/models"
)

// CreateTask inserts a new task for the given owner. The id and
// timestamps are assigned here; client-supplied values are ignored.
func (db *DB) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	created := &models.Task{
		ID:          uuid.New().String(),
		OwnerID:     task.OwnerID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, owner_id, title, description, due_date, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.OwnerID, created.Title,
		nullString(created.Description), nullTime(created.DueDate),
		created.Completed, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return created, nil
}

// GetTask fetches a single task scoped to its owner. A task owned by a
// different user yields ErrNotFound, same as a missing one.
func (db *DB) GetTask(ctx context.Context, id string, ownerID int64) (*models.Task, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, due_date, completed, created_at, updated_at
		 FROM tasks WHERE id = ? AND owner_id = ?`,
		id, ownerID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a partial update to an owned task and returns the
// updated row. Nil patch fields are left unchanged. The id and owner
// can never be rewritten through this path.
func (db *DB) UpdateTask(ctx context.Context, id string, ownerID int64, patch *models.TaskPatch) (*models.Task, error) {
	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if patch.Title != nil {
		setClauses = append(setClauses, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.DueDate != nil {
		setClauses = append(setClauses, "due_date = ?")
		args = append(args, patch.DueDate.UTC())
	}
	if patch.Completed != nil {
		setClauses = append(setClauses, "completed = ?")
		args = append(args, *patch.Completed)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = ? AND owner_id = ?`,
		strings.Join(setClauses, ", "))

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return db.GetTask(ctx, id, ownerID)
}

// DeleteTask removes an owned task. Returns ErrNotFound when the task
// does not exist or belongs to someone else.
func (db *DB) DeleteTask(ctx context.Context, id string, ownerID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns one page of the owner's tasks. This is the single
// authoritative implementation of filtering, sorting and pagination:
// incomplete tasks sort first, then by due date ascending with undated
// tasks last. Total counts the whole filtered set.
func (db *DB) ListTasks(ctx context.Context, filter *models.TaskFilter) (*models.TaskPage, error) {
	where := []string{"owner_id = ?"}
	args := []interface{}{filter.OwnerID}

	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		where = append(where, `(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *filter.Completed)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tasks WHERE %s`, whereClause)
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	listQuery := fmt.Sprintf(
		`SELECT id, owner_id, title, description, due_date, completed, created_at, updated_at
		 FROM tasks WHERE %s
		 ORDER BY completed ASC, due_date ASC NULLS LAST, created_at ASC
		 LIMIT ? OFFSET ?`, whereClause)
	listArgs := append(args, limit, (page-1)*limit)

	rows, err := db.conn.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer closeQuietly(rows)

	tasks := make([]models.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return &models.TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var description sql.NullString
	var dueDate sql.NullTime

	err := row.Scan(&task.ID, &task.OwnerID, &task.Title, &description,
		&dueDate, &task.Completed, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	return task, nil
}

// escapeLike escapes LIKE metacharacters so user search input matches
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
