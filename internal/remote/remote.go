// Package remote defines the task service collaborator the sync engine
// talks to. Implementations live in subpackages; tests use an in-memory
// fake. Every call may fail with a transport error, and the sync engine
// treats all such failures as retryable.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the remote service does not know the entity.
// Deleting an already-deleted entity surfaces it; the sync engine treats
// that as an acknowledged deletion.
var ErrNotFound = errors.New("remote: not found")

// TaskList is a list as the remote service reports it.
type TaskList struct {
	ID      string
	Title   string
	Updated time.Time
	Default bool
}

// Task is a task as the remote service reports it. ParentID and Position
// describe the remote tree; Deleted and Hidden mirror the service's
// soft-deletion markers.
type Task struct {
	ID        string
	ParentID  string
	Title     string
	Notes     string
	Due       time.Time // zero means no due date
	Updated   time.Time
	Completed bool
	Deleted   bool
	Hidden    bool
	Position  string
}

// Service is the remote task service boundary.
type Service interface {
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	CreateTaskList(ctx context.Context, title string) (TaskList, error)
	UpdateTaskList(ctx context.Context, id, title string) (TaskList, error)
	DeleteTaskList(ctx context.Context, id string) error

	// ListTasks returns every task of the list, including completed,
	// hidden and soft-deleted ones when the service exposes them.
	ListTasks(ctx context.Context, listID string) ([]Task, error)

	// CreateTask inserts the task under parentID ("" for top-level),
	// after previousID ("" for first position).
	CreateTask(ctx context.Context, listID, parentID, previousID string, t Task) (Task, error)

	// UpdateTask patches the task's content fields (title, notes, due
	// date, completion); placement is MoveTask's job.
	UpdateTask(ctx context.Context, listID string, t Task) (Task, error)

	DeleteTask(ctx context.Context, listID, id string) error

	// MoveTask repositions the task under parentID ("" for top-level),
	// after previousID ("" for first position).
	MoveTask(ctx context.Context, listID, id, parentID, previousID string) (Task, error)
}
