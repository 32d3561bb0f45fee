// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tasksync/internal/remote"
)

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = remote.ErrNotFound

// ErrUnreachable simulates a remote that cannot be reached.
var ErrUnreachable = errors.New("remote unreachable")

// FakeRemote is an in-memory implementation of remote.Service for tests.
// It assigns ids, maintains sibling positions, and records every call so
// tests can assert what a sync pass actually pushed.
type FakeRemote struct {
	mu     sync.Mutex
	nextID int
	lists  []remote.TaskList
	tasks  map[string][]remote.Task // listID -> tasks in remote order
	now    time.Time

	// Err, when set, makes every call fail with it.
	Err error

	// Per-call error injection.
	ListTaskListsErr  error
	CreateTaskListErr error
	UpdateTaskListErr error
	DeleteTaskListErr error
	ListTasksErr      error
	CreateTaskErr     error
	UpdateTaskErr     error
	DeleteTaskErr     error
	MoveTaskErr       error

	// Calls records mutating and listing calls in order, e.g.
	// "createTask:Milk" or "listTasks:list-1".
	Calls []string

	// ListTasksHook, when set, runs after ListTasks snapshots its
	// result, letting a test interleave local mutations with an
	// in-flight pull.
	ListTasksHook func(listID string)
}

var _ remote.Service = (*FakeRemote)(nil)

// NewFakeRemote creates an empty fake service.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		tasks: make(map[string][]remote.Task),
		now:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Reset clears the call log.
func (f *FakeRemote) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

// MutationCalls returns the recorded calls that changed remote state.
func (f *FakeRemote) MutationCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		switch {
		case len(c) >= 4 && c[:4] == "list":
		default:
			out = append(out, c)
		}
	}
	return out
}

// SeedList adds a list directly to the fake's state, bypassing the log.
func (f *FakeRemote) SeedList(title string) remote.TaskList {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := remote.TaskList{ID: f.genID("list"), Title: title, Updated: f.tick()}
	f.lists = append(f.lists, l)
	f.tasks[l.ID] = nil
	return l
}

// SeedTask adds a task directly to the fake's state, bypassing the log.
func (f *FakeRemote) SeedTask(listID, parentID, title string) remote.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := remote.Task{ID: f.genID("task"), ParentID: parentID, Title: title, Updated: f.tick()}
	f.tasks[listID] = append(f.tasks[listID], t)
	f.renumber(listID)
	return f.mustFind(listID, t.ID)
}

// TouchTask mutates a task's title directly, advancing its timestamp, to
// simulate an edit made on another device.
func (f *FakeRemote) TouchTask(listID, id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks[listID] {
		if f.tasks[listID][i].ID == id {
			f.tasks[listID][i].Title = title
			f.tasks[listID][i].Updated = f.tick()
			return
		}
	}
}

// RemoveTask soft-deletes a task directly, simulating a remote deletion.
func (f *FakeRemote) RemoveTask(listID, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks[listID] {
		if f.tasks[listID][i].ID == id {
			f.tasks[listID][i].Deleted = true
			f.tasks[listID][i].Updated = f.tick()
			return
		}
	}
}

// TaskOrder returns the titles of one sibling group in remote order.
func (f *FakeRemote) TaskOrder(listID, parentID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, t := range f.tasks[listID] {
		if t.ParentID == parentID && !t.Deleted {
			out = append(out, t.Title)
		}
	}
	return out
}

// ListTaskLists implements remote.Service.
func (f *FakeRemote) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	if err := firstErr(f.Err, f.ListTaskListsErr); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "listTaskLists")
	out := make([]remote.TaskList, len(f.lists))
	copy(out, f.lists)
	return out, nil
}

// CreateTaskList implements remote.Service.
func (f *FakeRemote) CreateTaskList(ctx context.Context, title string) (remote.TaskList, error) {
	if err := firstErr(f.Err, f.CreateTaskListErr); err != nil {
		return remote.TaskList{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "createTaskList:"+title)
	l := remote.TaskList{ID: f.genID("list"), Title: title, Updated: f.tick()}
	f.lists = append(f.lists, l)
	f.tasks[l.ID] = nil
	return l, nil
}

// UpdateTaskList implements remote.Service.
func (f *FakeRemote) UpdateTaskList(ctx context.Context, id, title string) (remote.TaskList, error) {
	if err := firstErr(f.Err, f.UpdateTaskListErr); err != nil {
		return remote.TaskList{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "updateTaskList:"+title)
	for i := range f.lists {
		if f.lists[i].ID == id {
			f.lists[i].Title = title
			f.lists[i].Updated = f.tick()
			return f.lists[i], nil
		}
	}
	return remote.TaskList{}, ErrNotFound
}

// DeleteTaskList implements remote.Service.
func (f *FakeRemote) DeleteTaskList(ctx context.Context, id string) error {
	if err := firstErr(f.Err, f.DeleteTaskListErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "deleteTaskList:"+id)
	for i, l := range f.lists {
		if l.ID == id {
			f.lists = append(f.lists[:i], f.lists[i+1:]...)
			delete(f.tasks, id)
			return nil
		}
	}
	return ErrNotFound
}

// ListTasks implements remote.Service.
func (f *FakeRemote) ListTasks(ctx context.Context, listID string) ([]remote.Task, error) {
	if err := firstErr(f.Err, f.ListTasksErr); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, "listTasks:"+listID)
	tasks, ok := f.tasks[listID]
	if !ok {
		f.mu.Unlock()
		return nil, ErrNotFound
	}
	out := make([]remote.Task, len(tasks))
	copy(out, tasks)
	f.mu.Unlock()

	if f.ListTasksHook != nil {
		f.ListTasksHook(listID)
	}
	return out, nil
}

// CreateTask implements remote.Service.
func (f *FakeRemote) CreateTask(ctx context.Context, listID, parentID, previousID string, t remote.Task) (remote.Task, error) {
	if err := firstErr(f.Err, f.CreateTaskErr); err != nil {
		return remote.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "createTask:"+t.Title)
	if _, ok := f.tasks[listID]; !ok {
		return remote.Task{}, ErrNotFound
	}
	t.ID = f.genID("task")
	t.ParentID = parentID
	t.Updated = f.tick()
	f.tasks[listID] = f.insertAt(listID, parentID, previousID, t)
	f.renumber(listID)
	return f.mustFind(listID, t.ID), nil
}

// UpdateTask implements remote.Service.
func (f *FakeRemote) UpdateTask(ctx context.Context, listID string, t remote.Task) (remote.Task, error) {
	if err := firstErr(f.Err, f.UpdateTaskErr); err != nil {
		return remote.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "updateTask:"+t.Title)
	tasks, ok := f.tasks[listID]
	if !ok {
		return remote.Task{}, ErrNotFound
	}
	for i := range tasks {
		if tasks[i].ID == t.ID {
			tasks[i].Title = t.Title
			tasks[i].Notes = t.Notes
			tasks[i].Due = t.Due
			tasks[i].Completed = t.Completed
			tasks[i].Updated = f.tick()
			return tasks[i], nil
		}
	}
	return remote.Task{}, ErrNotFound
}

// DeleteTask implements remote.Service.
func (f *FakeRemote) DeleteTask(ctx context.Context, listID, id string) error {
	if err := firstErr(f.Err, f.DeleteTaskErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "deleteTask:"+id)
	tasks, ok := f.tasks[listID]
	if !ok {
		return ErrNotFound
	}
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Deleted = true
			tasks[i].Updated = f.tick()
			return nil
		}
	}
	return ErrNotFound
}

// MoveTask implements remote.Service.
func (f *FakeRemote) MoveTask(ctx context.Context, listID, id, parentID, previousID string) (remote.Task, error) {
	if err := firstErr(f.Err, f.MoveTaskErr); err != nil {
		return remote.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "moveTask:"+id)
	tasks, ok := f.tasks[listID]
	if !ok {
		return remote.Task{}, ErrNotFound
	}
	var moved remote.Task
	found := false
	for i := range tasks {
		if tasks[i].ID == id {
			moved = tasks[i]
			f.tasks[listID] = append(tasks[:i], tasks[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return remote.Task{}, ErrNotFound
	}
	moved.ParentID = parentID
	moved.Updated = f.tick()
	f.tasks[listID] = f.insertAt(listID, parentID, previousID, moved)
	f.renumber(listID)
	return f.mustFind(listID, id), nil
}

// insertAt places t within its sibling group: after previousID, or first
// in the group when previousID is empty. Caller holds the lock.
func (f *FakeRemote) insertAt(listID, parentID, previousID string, t remote.Task) []remote.Task {
	tasks := f.tasks[listID]
	if previousID == "" {
		// First of its group: insert before the group's current head.
		for i := range tasks {
			if tasks[i].ParentID == parentID && !tasks[i].Deleted {
				out := append([]remote.Task{}, tasks[:i]...)
				out = append(out, t)
				return append(out, tasks[i:]...)
			}
		}
		return append(tasks, t)
	}
	for i := range tasks {
		if tasks[i].ID == previousID {
			out := append([]remote.Task{}, tasks[:i+1]...)
			out = append(out, t)
			return append(out, tasks[i+1:]...)
		}
	}
	return append(tasks, t)
}

// renumber reassigns zero-padded per-group position strings following
// slice order. Caller holds the lock.
func (f *FakeRemote) renumber(listID string) {
	counts := make(map[string]int)
	tasks := f.tasks[listID]
	for i := range tasks {
		if tasks[i].Deleted {
			continue
		}
		n := counts[tasks[i].ParentID]
		tasks[i].Position = fmt.Sprintf("%08d", n)
		counts[tasks[i].ParentID] = n + 1
	}
}

func (f *FakeRemote) mustFind(listID, id string) remote.Task {
	for _, t := range f.tasks[listID] {
		if t.ID == id {
			return t
		}
	}
	return remote.Task{}
}

func (f *FakeRemote) genID(kind string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", kind, f.nextID)
}

func (f *FakeRemote) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
