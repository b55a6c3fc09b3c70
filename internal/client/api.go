// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/milascristina/TasksManager/internal/models"
)

// Error taxonomy for server responses. Reconciliation decisions depend
// on telling these apart: ErrNotFound drops a queued operation,
// ErrUnavailable stops the replay pass.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
	ErrUnavailable  = errors.New("server unavailable")
)

// API is the HTTP client for the task server. All calls go through a
// circuit breaker so a dead server fails fast instead of stacking up
// timeouts.
type API struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]

	// mu guards token and onUnauthorized; the Listener reconciles from
	// its own goroutine while the CLI may log in concurrently.
	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// NewAPI creates a client for the server at baseURL.
func NewAPI(baseURL string) *API {
	settings := gobreaker.Settings{
		Name:        "task-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// Token returns the current bearer token.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// OnUnauthorized registers a hook invoked whenever the server rejects a
// request with 401, so the caller can purge stored credentials. The
// token held by the API itself is cleared before the hook runs.
func (a *API) OnUnauthorized(fn func()) {
	a.mu.Lock()
	a.onUnauthorized = fn
	a.mu.Unlock()
}

// LoginResult is the server's response to a successful login.
type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
}

// RegisterResult is the server's response to a successful registration.
type RegisterResult struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register creates a new account.
func (a *API) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	var result RegisterResult
	err := a.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates and remembers the returned token for subsequent
// calls.
func (a *API) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := a.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	a.SetToken(result.Token)
	return &result, nil
}

// ListOptions narrows a task listing.
type ListOptions struct {
	Search    string
	Completed *bool
	Page      int
	Limit     int
}

// ListTasks fetches a page of tasks.
func (a *API) ListTasks(ctx context.Context, opts ListOptions) (*models.TaskPage, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Completed != nil {
		q.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/tasks"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page models.TaskPage
	if err := a.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTask fetches one task by id.
func (a *API) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := a.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task from the given body fields.
func (a *API) CreateTask(ctx context.Context, body interface{}) (*models.Task, error) {
	var task models.Task
	if err := a.do(ctx, http.MethodPost, "/api/tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update to a task.
func (a *API) UpdateTask(ctx context.Context, id string, body interface{}) (*models.Task, error) {
	var task models.Task
	if err := a.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task by id.
func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// do executes one request through the circuit breaker and decodes the
// response into out when out is non-nil.
func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.breaker.Execute(func() (*http.Response, error) {
		return a.http.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		serr := statusError(resp)
		if errors.Is(serr, ErrUnauthorized) {
			a.handleUnauthorized()
		}
		return serr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleUnauthorized drops the stale token and fires the registered
// purge hook. A 401 means the token is dead; keeping it would make
// every subsequent call fail the same way.
func (a *API) handleUnauthorized() {
	a.mu.Lock()
	a.token = ""
	fn := a.onUnauthorized
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// statusError maps an error response to the client error taxonomy,
// keeping the server's message for display.
func statusError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	var base error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		base = ErrBadRequest
	case http.StatusUnauthorized:
		base = ErrUnauthorized
	case http.StatusForbidden:
		base = ErrForbidden
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		base = ErrUnavailable
	default:
		base = ErrServer
	}

	if body.Message != "" {
		return fmt.Errorf("%w: %s", base, body.Message)
	}
	return fmt.Errorf("%w: status %d", base, resp.StatusCode)
}
