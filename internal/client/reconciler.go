// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/milascristina/TasksManager/internal/logging"
)

// Reconciler replays queued offline operations against the server.
// Operations replay in the order they were queued; an operation leaves
// the queue only after the server confirms it, except for operations
// against tasks the server no longer knows, which are dropped.
type Reconciler struct {
	api     *API
	store   *Store
	limiter *rate.Limiter
}

// NewReconciler creates a reconciler pacing replays at 10 requests per
// second so a long offline backlog does not hammer the server.
func NewReconciler(api *API, store *Store) *Reconciler {
	return &Reconciler{
		api:     api,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
}

// Reconcile runs one replay pass over the queue. It returns the number
// of operations confirmed. A transport or auth failure ends the pass
// early with an error; the remaining operations stay queued for the
// next pass.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	ops, err := r.store.PendingOps()
	if err != nil {
		return 0, fmt.Errorf("read pending operations: %w", err)
	}
	if len(ops) == 0 {
		return 0, nil
	}

	logging.Debug().Int("pending", len(ops)).Msg("reconciling queued operations")

	confirmed := 0
	for _, op := range ops {
		if err := r.limiter.Wait(ctx); err != nil {
			return confirmed, err
		}

		serverID, err := r.replay(ctx, op)
		switch {
		case err == nil:
			if rmErr := r.store.RemoveOps([]string{op.ID}); rmErr != nil {
				return confirmed, fmt.Errorf("remove confirmed operation: %w", rmErr)
			}
			confirmed++

			// A confirmed create may have renamed a local id. Later
			// queued operations were already loaded, so patch them in
			// memory to match the rewrite persisted by replay.
			if serverID != "" && serverID != op.TaskID {
				for _, later := range ops {
					if later.TaskID == op.TaskID {
						later.TaskID = serverID
					}
				}
			}

		case errors.Is(err, ErrNotFound):
			// The task is gone server-side; replaying later cannot
			// succeed. Drop the operation without surfacing an error.
			logging.Debug().
				Str("op", op.Type).
				Str("task_id", op.TaskID).
				Msg("dropping queued operation for missing task")
			if rmErr := r.store.RemoveOps([]string{op.ID}); rmErr != nil {
				return confirmed, fmt.Errorf("drop stale operation: %w", rmErr)
			}

		case errors.Is(err, ErrBadRequest), errors.Is(err, ErrConflict):
			// Permanently rejected; keeping it would wedge the queue.
			logging.Warn().Err(err).
				Str("op", op.Type).
				Str("task_id", op.TaskID).
				Msg("dropping rejected queued operation")
			if rmErr := r.store.RemoveOps([]string{op.ID}); rmErr != nil {
				return confirmed, fmt.Errorf("drop rejected operation: %w", rmErr)
			}

		default:
			// Transport, auth, or server failure. Stop here; everything
			// from this operation onward stays queued.
			return confirmed, err
		}
	}

	return confirmed, nil
}

// replay sends one operation to the server and applies the result to
// the local mirror. For creates it returns the server-assigned task id.
func (r *Reconciler) replay(ctx context.Context, op *Operation) (string, error) {
	switch op.Type {
	case OpCreate:
		var body map[string]interface{}
		if err := json.Unmarshal(op.Payload, &body); err != nil {
			return "", fmt.Errorf("%w: undecodable create payload", ErrBadRequest)
		}

		created, err := r.api.CreateTask(ctx, body)
		if err != nil {
			return "", err
		}

		if IsLocalID(op.TaskID) {
			if err := r.store.RewriteTaskID(op.TaskID, created.ID); err != nil {
				return "", fmt.Errorf("rewrite local task id: %w", err)
			}
		}
		return created.ID, r.store.PutTask(created)

	case OpUpdate:
		var body map[string]interface{}
		if err := json.Unmarshal(op.Payload, &body); err != nil {
			return "", fmt.Errorf("%w: undecodable update payload", ErrBadRequest)
		}

		updated, err := r.api.UpdateTask(ctx, op.TaskID, body)
		if err != nil {
			return "", err
		}
		return "", r.store.PutTask(updated)

	case OpDelete:
		if err := r.api.DeleteTask(ctx, op.TaskID); err != nil {
			return "", err
		}
		return "", r.store.DeleteTask(op.TaskID)

	default:
		return "", fmt.Errorf("%w: unknown operation type %q", ErrBadRequest, op.Type)
	}
}
