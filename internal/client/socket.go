// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/models"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// wireEvent is the envelope the server pushes over the websocket.
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Listener maintains the websocket connection to the server, keeps the
// local mirror current with pushed events, and triggers a reconcile
// pass each time the connection is (re)established.
type Listener struct {
	api        *API
	store      *Store
	reconciler *Reconciler
	wsURL      string
}

// NewListener creates a listener for the server at baseURL.
func NewListener(api *API, store *Store, reconciler *Reconciler, baseURL string) (*Listener, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	return &Listener{
		api:        api,
		store:      store,
		reconciler: reconciler,
		wsURL:      wsURL,
	}, nil
}

// websocketURL converts an http(s) base URL into the ws(s) endpoint.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"
	return u.String(), nil
}

// Run connects and listens until the context is canceled, reconnecting
// with exponential backoff on failures.
func (l *Listener) Run(ctx context.Context) error {
	delay := reconnectBaseDelay

	for {
		err := l.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logging.Warn().Err(err).Dur("retry_in", delay).Msg("websocket disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// runOnce dials, reconciles the offline backlog, refreshes the mirror,
// and then consumes events until the connection drops.
func (l *Listener) runOnce(ctx context.Context) error {
	// The browser-style token query parameter keeps the dial simple;
	// the server accepts it specifically for websocket handshakes.
	dialURL := l.wsURL + "?token=" + url.QueryEscape(l.api.Token())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	logging.Info().Msg("websocket connected")

	// Connectivity is back: push queued offline work before trusting
	// the event stream, then resync the mirror from the server.
	if confirmed, err := l.reconciler.Reconcile(ctx); err != nil {
		logging.Warn().Err(err).Int("confirmed", confirmed).Msg("reconcile pass incomplete")
	} else if confirmed > 0 {
		logging.Info().Int("confirmed", confirmed).Msg("offline operations confirmed")
	}

	if err := l.refreshMirror(ctx); err != nil {
		logging.Warn().Err(err).Msg("mirror refresh failed")
	}

	// Close the connection when the context is canceled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}

		var event wireEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logging.Warn().Err(err).Msg("undecodable websocket event")
			continue
		}

		if err := l.apply(event); err != nil {
			logging.Warn().Err(err).Str("event", event.Event).Msg("failed to apply event to mirror")
		}
	}
}

// refreshMirror replaces the local mirror with the server's current
// task list, paging through until everything is fetched.
func (l *Listener) refreshMirror(ctx context.Context) error {
	var all []*models.Task

	page := 1
	for {
		result, err := l.api.ListTasks(ctx, ListOptions{Page: page, Limit: 100})
		if err != nil {
			return err
		}
		for i := range result.Tasks {
			all = append(all, &result.Tasks[i])
		}
		if len(all) >= result.Total || len(result.Tasks) == 0 {
			break
		}
		page++
	}

	return l.store.ReplaceTasks(all)
}

// apply folds one pushed event into the local mirror.
func (l *Listener) apply(event wireEvent) error {
	switch event.Event {
	case models.EventTaskCreated, models.EventTaskUpdated:
		var task models.Task
		if err := json.Unmarshal(event.Data, &task); err != nil {
			return fmt.Errorf("decode task payload: %w", err)
		}
		return l.store.PutTask(&task)

	case models.EventTaskDeleted:
		var ref models.TaskRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return fmt.Errorf("decode task reference: %w", err)
		}
		return l.store.DeleteTask(ref.ID)

	default:
		logging.Debug().Str("event", event.Event).Msg("ignoring unknown event type")
		return nil
	}
}
