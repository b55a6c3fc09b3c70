// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Package client implements the Go client: an HTTP API wrapper, a
// BadgerDB-backed local mirror of the user's tasks, an offline
// operation queue, and the reconciler that replays queued operations
// once connectivity returns.
package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/milascristina/TasksManager/internal/models"
)

// Key prefixes and keys for BadgerDB storage.
const (
	taskKeyPrefix = "task:"
	opKeyPrefix   = "op:"
	authTokenKey  = "auth:token"
	authUserIDKey = "auth:user_id"
)

// localIDPrefix marks task ids minted offline. They are replaced with
// the server-assigned id when the queued create is confirmed.
const localIDPrefix = "local-"

// Operation types queued while offline.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ErrTaskNotCached is returned when the local mirror has no entry for
// the requested task.
var ErrTaskNotCached = errors.New("task not in local store")

// Operation is one queued mutation awaiting replay against the server.
type Operation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	TaskID    string          `json:"taskId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is the local mirror plus operation queue, backed by BadgerDB.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the local store at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewLocalID mints a temporary id for a task created offline.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was minted offline.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// SaveAuth persists the session token and user id.
func (s *Store) SaveAuth(token string, userID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(authTokenKey), []byte(token)); err != nil {
			return err
		}
		return txn.Set([]byte(authUserIDKey), []byte(fmt.Sprintf("%d", userID)))
	})
}

// LoadAuth returns the stored token, or empty strings when logged out.
func (s *Store) LoadAuth() (token string, userID string, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(authTokenKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			token = string(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(authUserIDKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})
	return token, userID, err
}

// ClearAuth removes the stored credentials.
func (s *Store) ClearAuth() error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{authTokenKey, authUserIDKey} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// PutTask stores one task in the mirror.
func (s *Store) PutTask(task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(taskKeyPrefix+task.ID), data)
	})
}

// GetTask retrieves one task from the mirror.
func (s *Store) GetTask(id string) (*models.Task, error) {
	var task models.Task

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(taskKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTaskNotCached
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &task)
		})
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// DeleteTask removes one task from the mirror. Missing keys are not an
// error.
func (s *Store) DeleteTask(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(taskKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ListTasks returns every mirrored task, sorted the way the server
// sorts: incomplete first, then due date ascending with missing due
// dates last, then creation time.
func (s *Store) ListTasks() ([]*models.Task, error) {
	var tasks []*models.Task

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(taskKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var task models.Task
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &task)
			})
			if err != nil {
				return err
			}
			tasks = append(tasks, &task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})

	return tasks, nil
}

// ReplaceTasks atomically replaces the whole mirror with the given
// snapshot, used after a full refresh from the server.
func (s *Store) ReplaceTasks(tasks []*models.Task) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := []byte(taskKeyPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for _, task := range tasks {
			data, err := json.Marshal(task)
			if err != nil {
				return fmt.Errorf("marshal task: %w", err)
			}
			if err := txn.Set([]byte(taskKeyPrefix+task.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendOp queues an operation for later replay. The key embeds the
// timestamp so iteration order is replay order.
func (s *Store) AppendOp(op *Operation) error {
	if op.ID == "" {
		op.ID = fmt.Sprintf("%s%020d:%s", opKeyPrefix, op.Timestamp.UnixNano(), uuid.NewString())
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(op.ID), data)
	})
}

// PendingOps returns all queued operations in timestamp order.
func (s *Store) PendingOps() ([]*Operation, error) {
	var ops []*Operation

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(opKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var op Operation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &op)
			})
			if err != nil {
				return err
			}
			ops = append(ops, &op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys embed zero-padded nanosecond timestamps, so Badger's lexical
	// iteration already yields timestamp order. The explicit sort guards
	// against records written by older key schemes.
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Timestamp.Before(ops[j].Timestamp)
	})

	return ops, nil
}

// RemoveOps deletes the given operations from the queue.
func (s *Store) RemoveOps(ids []string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete([]byte(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// RewriteTaskID replaces a local task id with the server-assigned one,
// both in the mirror and in any queued operations that reference it.
func (s *Store) RewriteTaskID(localID, serverID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(taskKeyPrefix + localID))
		if err == nil {
			var task models.Task
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &task)
			}); err != nil {
				return err
			}
			task.ID = serverID
			data, err := json.Marshal(&task)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(taskKeyPrefix+serverID), data); err != nil {
				return err
			}
			if err := txn.Delete([]byte(taskKeyPrefix + localID)); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)

		prefix := []byte(opKeyPrefix)
		type rewrite struct {
			key  []byte
			data []byte
		}
		var rewrites []rewrite

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var op Operation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &op)
			})
			if err != nil {
				it.Close()
				return err
			}
			if op.TaskID != localID {
				continue
			}
			op.TaskID = serverID
			data, err := json.Marshal(&op)
			if err != nil {
				it.Close()
				return err
			}
			rewrites = append(rewrites, rewrite{key: it.Item().KeyCopy(nil), data: data})
		}
		it.Close()

		for _, rw := range rewrites {
			if err := txn.Set(rw.key, rw.data); err != nil {
				return err
			}
		}
		return nil
	})
}
