// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package database

import (
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist, or when a task
	// exists but belongs to a different owner. The two cases are
	// deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when registering an already-taken
	// username.
	ErrDuplicateUsername = errors.New("username already exists")
)

// isDuplicateKeyError recognizes DuckDB unique constraint violations.
// The driver does not expose structured constraint errors, so this
// matches on the message text.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") || strings.Contains(msg, "Constraint Error")
}

// closeQuietly closes a resource and explicitly ignores any error.
// Used in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
