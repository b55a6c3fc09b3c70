// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

// Command taskctl is the command-line client. It keeps a local mirror
// of the user's tasks in BadgerDB, queues mutations while the server is
// unreachable, and replays them when connectivity returns.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/milascristina/TasksManager/internal/client"
	"github.com/milascristina/TasksManager/internal/logging"
	"github.com/milascristina/TasksManager/internal/models"
)

const usage = `taskctl - task management client

Usage:
  taskctl [flags] <command> [args]

Commands:
  register <username>        Create an account (prompts for password)
  login <username>           Log in (prompts for password)
  logout                     Forget stored credentials
  list                       List tasks (local mirror when offline)
  get <id>                   Show one task
  add <title>                Create a task
  done <id>                  Mark a task completed
  update <id>                Update a task (see update flags)
  delete <id>                Delete a task
  sync                       Replay queued offline operations
  watch                      Stream live task events

Flags:
  -server URL     Server base URL (default http://localhost:3000, or TASKS_SERVER)
  -data DIR       Local state directory (default ~/.taskctl)
`

func main() {
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	serverURL := flag.String("server", defaultServer(), "server base URL")
	dataDir := flag.String("data", defaultDataDir(), "local state directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	store, err := client.OpenStore(*dataDir)
	if err != nil {
		fatal("open local store: %v", err)
	}
	defer func() { _ = store.Close() }()

	api := client.NewAPI(*serverURL)
	if token, _, err := store.LoadAuth(); err == nil && token != "" {
		api.SetToken(token)
	}
	// A rejected token is useless; forget it so the next command prompts
	// for a fresh login instead of failing the same way.
	api.OnUnauthorized(func() {
		if err := store.ClearAuth(); err != nil {
			logging.Warn().Err(err).Msg("failed to clear stored credentials")
		}
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	})

	app := &app{
		api:        api,
		store:      store,
		reconciler: client.NewReconciler(api, store),
		serverURL:  *serverURL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		fatal("%v", err)
	}
}

type app struct {
	api        *client.API
	store      *client.Store
	reconciler *client.Reconciler
	serverURL  string
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout()
	case "list":
		return a.list(ctx, args)
	case "get":
		return a.get(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "done":
		return a.done(ctx, args)
	case "update":
		return a.update(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "sync":
		return a.sync(ctx)
	case "watch":
		return a.watch()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl register <username>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	result, err := a.api.Register(ctx, args[0], password)
	if err != nil {
		return err
	}

	fmt.Printf("registered %s (id %d)\n", result.Username, result.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl login <username>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	result, err := a.api.Login(ctx, args[0], password)
	if err != nil {
		return err
	}

	if err := a.store.SaveAuth(result.Token, result.UserID); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	fmt.Println("logged in")
	return a.refresh(ctx)
}

func (a *app) logout() error {
	if err := a.store.ClearAuth(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "filter by title or description substring")
	completed := fs.String("completed", "", "filter by completion: true or false")
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := client.ListOptions{Search: *search, Page: *page, Limit: *limit}
	if *completed != "" {
		v, err := strconv.ParseBool(*completed)
		if err != nil {
			return fmt.Errorf("invalid -completed value %q", *completed)
		}
		opts.Completed = &v
	}

	result, err := a.api.ListTasks(ctx, opts)
	if err != nil {
		if !errors.Is(err, client.ErrUnavailable) {
			return err
		}
		// Offline: fall back to the local mirror.
		tasks, lerr := a.store.ListTasks()
		if lerr != nil {
			return lerr
		}
		fmt.Println("(offline, showing local mirror)")
		for _, task := range tasks {
			printTask(task)
		}
		return nil
	}

	for i := range result.Tasks {
		printTask(&result.Tasks[i])
		_ = a.store.PutTask(&result.Tasks[i])
	}
	fmt.Printf("page %d, %d of %d task(s)\n", result.Page, len(result.Tasks), result.Total)
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl get <id>")
	}

	task, err := a.api.GetTask(ctx, args[0])
	if err != nil {
		if !errors.Is(err, client.ErrUnavailable) {
			return err
		}
		task, err = a.store.GetTask(args[0])
		if err != nil {
			return err
		}
		fmt.Println("(offline, from local mirror)")
	} else {
		_ = a.store.PutTask(task)
	}

	printTask(task)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	description := fs.String("desc", "", "task description")
	due := fs.String("due", "", "due date (RFC 3339, e.g. 2026-09-01T12:00:00Z)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: taskctl add [flags] <title>")
	}

	body := map[string]interface{}{"title": fs.Arg(0)}
	if *description != "" {
		body["description"] = *description
	}
	if *due != "" {
		parsed, err := time.Parse(time.RFC3339, *due)
		if err != nil {
			return fmt.Errorf("invalid -due value: %w", err)
		}
		body["dueDate"] = parsed
	}

	task, err := a.api.CreateTask(ctx, body)
	if err != nil {
		if !errors.Is(err, client.ErrUnavailable) {
			return err
		}
		return a.queueCreate(body)
	}

	_ = a.store.PutTask(task)
	fmt.Printf("created %s\n", task.ID)
	return nil
}

func (a *app) done(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl done <id>")
	}
	completed := true
	return a.applyUpdate(ctx, args[0], map[string]interface{}{"completed": completed})
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("desc", "", "new description")
	due := fs.String("due", "", "new due date (RFC 3339)")
	completed := fs.String("completed", "", "completion state: true or false")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: taskctl update [flags] <id>")
	}

	body := map[string]interface{}{}
	if *title != "" {
		body["title"] = *title
	}
	if *description != "" {
		body["description"] = *description
	}
	if *due != "" {
		parsed, err := time.Parse(time.RFC3339, *due)
		if err != nil {
			return fmt.Errorf("invalid -due value: %w", err)
		}
		body["dueDate"] = parsed
	}
	if *completed != "" {
		v, err := strconv.ParseBool(*completed)
		if err != nil {
			return fmt.Errorf("invalid -completed value %q", *completed)
		}
		body["completed"] = v
	}
	if len(body) == 0 {
		return errors.New("nothing to update")
	}

	return a.applyUpdate(ctx, fs.Arg(0), body)
}

func (a *app) applyUpdate(ctx context.Context, id string, body map[string]interface{}) error {
	task, err := a.api.UpdateTask(ctx, id, body)
	if err != nil {
		if !errors.Is(err, client.ErrUnavailable) {
			return err
		}
		return a.queueOp(client.OpUpdate, id, body)
	}

	_ = a.store.PutTask(task)
	fmt.Printf("updated %s\n", task.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: taskctl delete <id>")
	}

	if err := a.api.DeleteTask(ctx, args[0]); err != nil {
		if !errors.Is(err, client.ErrUnavailable) {
			return err
		}
		return a.queueOp(client.OpDelete, args[0], nil)
	}

	_ = a.store.DeleteTask(args[0])
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func (a *app) sync(ctx context.Context) error {
	confirmed, err := a.reconciler.Reconcile(ctx)
	if confirmed > 0 {
		fmt.Printf("confirmed %d queued operation(s)\n", confirmed)
	}
	if err != nil {
		return fmt.Errorf("sync incomplete: %w", err)
	}
	if confirmed == 0 {
		fmt.Println("nothing to sync")
	}
	return a.refresh(ctx)
}

func (a *app) watch() error {
	listener, err := client.NewListener(a.api, a.store, a.reconciler, a.serverURL)
	if err != nil {
		return err
	}

	fmt.Println("watching for task events (Ctrl-C to stop)")
	return listener.Run(context.Background())
}

// queueCreate stores a create locally under a temporary id and queues
// it for replay.
func (a *app) queueCreate(body map[string]interface{}) error {
	localID := client.NewLocalID()
	now := time.Now().UTC()

	task := &models.Task{ID: localID, CreatedAt: now, UpdatedAt: now}
	if title, ok := body["title"].(string); ok {
		task.Title = title
	}
	if desc, ok := body["description"].(string); ok {
		task.Description = &desc
	}
	if due, ok := body["dueDate"].(time.Time); ok {
		task.DueDate = &due
	}
	if err := a.store.PutTask(task); err != nil {
		return err
	}

	if err := a.queueOp(client.OpCreate, localID, body); err != nil {
		return err
	}
	fmt.Printf("created %s (queued, pending sync)\n", localID)
	return nil
}

// queueOp appends one operation to the offline queue and updates the
// mirror optimistically.
func (a *app) queueOp(opType, taskID string, body map[string]interface{}) error {
	var payload json.RawMessage
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = data
	}

	err := a.store.AppendOp(&client.Operation{
		Type:      opType,
		TaskID:    taskID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	switch opType {
	case client.OpUpdate:
		if task, gerr := a.store.GetTask(taskID); gerr == nil {
			applyBodyToTask(task, body)
			_ = a.store.PutTask(task)
		}
		fmt.Printf("updated %s (queued, pending sync)\n", taskID)
	case client.OpDelete:
		_ = a.store.DeleteTask(taskID)
		fmt.Printf("deleted %s (queued, pending sync)\n", taskID)
	}
	return nil
}

// refresh replaces the mirror with the server's current task list.
func (a *app) refresh(ctx context.Context) error {
	var all []*models.Task
	page := 1
	for {
		result, err := a.api.ListTasks(ctx, client.ListOptions{Page: page, Limit: 100})
		if err != nil {
			if errors.Is(err, client.ErrUnavailable) {
				return nil
			}
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
	return a.store.ReplaceTasks(all)
}

func applyBodyToTask(task *models.Task, body map[string]interface{}) {
	if title, ok := body["title"].(string); ok {
		task.Title = title
	}
	if desc, ok := body["description"].(string); ok {
		task.Description = &desc
	}
	if due, ok := body["dueDate"].(time.Time); ok {
		task.DueDate = &due
	}
	if completed, ok := body["completed"].(bool); ok {
		task.Completed = completed
	}
	task.UpdatedAt = time.Now().UTC()
}

func printTask(task *models.Task) {
	status := " "
	if task.Completed {
		status = "x"
	}

	due := ""
	if task.DueDate != nil {
		due = " due " + task.DueDate.Format("2006-01-02")
	}

	pending := ""
	if client.IsLocalID(task.ID) {
		pending = " (pending sync)"
	}

	fmt.Printf("[%s] %s  %s%s%s\n", status, task.ID, task.Title, due, pending)
	if task.Description != nil && *task.Description != "" {
		fmt.Printf("      %s\n", *task.Description)
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	var password string
	if _, err := fmt.Scanln(&password); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

func defaultServer() string {
	if v := os.Getenv("TASKS_SERVER"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskctl"
	}
	return filepath.Join(home, ".taskctl")
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
