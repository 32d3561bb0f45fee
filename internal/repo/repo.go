// Package repo is the façade the application talks to. It validates
// input, serializes structural mutations per list, applies them to the
// local store through the ordering engine, and exposes reactive
// snapshots. Mutations return once the local change is durable; the
// remote round-trip happens later in a sync pass.
package repo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tasksync/internal/model"
	"tasksync/internal/ordering"
	"tasksync/internal/store"
)

// Syncer runs one reconciliation pass against the remote service.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Repository holds no entity state of its own; the store owns storage
// and the syncer owns reconciliation.
type Repository struct {
	store  *store.Store
	syncer Syncer // nil when no remote is configured
	log    *slog.Logger
	sf     singleflight.Group

	mu      sync.Mutex
	listMus map[string]*sync.Mutex
}

// New builds a repository. syncer may be nil (offline-only), logger may
// be nil.
func New(st *store.Store, syncer Syncer, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{
		store:   st,
		syncer:  syncer,
		log:     logger,
		listMus: make(map[string]*sync.Mutex),
	}
}

// lockList serializes structural mutations touching one list. The
// ordering engine reads sibling state before computing a key, so two
// concurrent structural ops on the same list must not interleave.
func (r *Repository) lockList(id string) func() {
	r.mu.Lock()
	m, ok := r.listMus[id]
	if !ok {
		m = &sync.Mutex{}
		r.listMus[id] = m
	}
	r.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// lockLists locks two lists in a stable order to avoid deadlock.
func (r *Repository) lockLists(a, b string) func() {
	if a == b {
		return r.lockList(a)
	}
	if b < a {
		a, b = b, a
	}
	ua := r.lockList(a)
	ub := r.lockList(b)
	return func() {
		ub()
		ua()
	}
}

func trimTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return title, nil
}

// CreateTaskList creates a list locally; it gains a remote id on the
// first successful sync.
func (r *Repository) CreateTaskList(ctx context.Context, title string) (model.TaskList, error) {
	title, err := trimTitle(title)
	if err != nil {
		return model.TaskList{}, err
	}
	now := time.Now().UTC()
	l := model.TaskList{
		ID:      store.NewID(),
		Title:   title,
		Updated: now,
		Created: now,
		Dirty:   true,
	}
	if err := r.store.CreateTaskList(ctx, l); err != nil {
		return model.TaskList{}, err
	}
	return l, nil
}

// RenameTaskList changes a list's title.
func (r *Repository) RenameTaskList(ctx context.Context, id, title string) error {
	title, err := trimTitle(title)
	if err != nil {
		return err
	}
	l, err := r.liveList(ctx, id)
	if err != nil {
		return err
	}
	l.Title = title
	l.Updated = time.Now().UTC()
	l.Dirty = true
	return r.store.UpdateTaskList(ctx, l)
}

// DeleteTaskList removes a list and all of its tasks from every query.
// A list the remote never saw is purged outright; otherwise it is
// tombstoned until the remote deletion is acknowledged.
func (r *Repository) DeleteTaskList(ctx context.Context, id string) error {
	unlock := r.lockList(id)
	defer unlock()

	l, err := r.liveList(ctx, id)
	if err != nil {
		return err
	}
	if l.RemoteID == "" {
		return r.store.PurgeTaskList(ctx, id)
	}
	l.Deleted = true
	l.Updated = time.Now().UTC()
	return r.store.UpdateTaskList(ctx, l)
}

// ClearTaskListCompletedTasks deletes every completed task of the list.
// Incomplete children of a removed parent are promoted to top level so
// the parent chain stays valid.
func (r *Repository) ClearTaskListCompletedTasks(ctx context.Context, listID string) error {
	unlock := r.lockList(listID)
	defer unlock()

	if _, err := r.liveList(ctx, listID); err != nil {
		return err
	}
	tasks, err := r.store.TasksForList(ctx, listID)
	if err != nil {
		return err
	}

	completed := make(map[string]bool)
	for _, t := range tasks {
		if t.Completed {
			completed[t.ID] = true
		}
	}
	if len(completed) == 0 {
		return nil
	}

	var purge []string
	var save []model.Task
	now := time.Now().UTC()
	for _, t := range tasks {
		switch {
		case completed[t.ID] && t.RemoteID == "":
			purge = append(purge, t.ID)
		case completed[t.ID]:
			t.Deleted = true
			t.Updated = now
			save = append(save, t)
		case t.ParentID != "" && completed[t.ParentID]:
			pos, err := ordering.TailKey(tasks, "")
			if err != nil {
				return err
			}
			t.ParentID = ""
			t.Position = pos
			t.Updated = now
			t.Dirty = true
			save = append(save, t)
			tasks = append(tasks, t) // keep TailKey advancing
		}
	}
	if err := r.store.SaveTasks(ctx, save); err != nil {
		return err
	}
	return r.store.PurgeTasks(ctx, purge)
}

// CreateTask appends a new top-level task to the list.
func (r *Repository) CreateTask(ctx context.Context, listID, title, notes string, due time.Time) (model.Task, error) {
	title, err := trimTitle(title)
	if err != nil {
		return model.Task{}, err
	}
	unlock := r.lockList(listID)
	defer unlock()

	if _, err := r.liveList(ctx, listID); err != nil {
		return model.Task{}, err
	}
	tasks, err := r.store.TasksForList(ctx, listID)
	if err != nil {
		return model.Task{}, err
	}
	pos, err := ordering.TailKey(tasks, "")
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:       store.NewID(),
		ListID:   listID,
		Title:    title,
		Notes:    strings.TrimSpace(notes),
		Due:      due,
		Updated:  time.Now().UTC(),
		Position: pos,
		Dirty:    true,
	}
	if err := r.store.CreateTask(ctx, t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateTask replaces a task's title, notes and due date.
func (r *Repository) UpdateTask(ctx context.Context, id, title, notes string, due time.Time) error {
	title, err := trimTitle(title)
	if err != nil {
		return err
	}
	return r.mutateTask(ctx, id, func(t *model.Task) {
		t.Title = title
		t.Notes = strings.TrimSpace(notes)
		t.Due = due
	})
}

// UpdateTaskTitle changes only the title.
func (r *Repository) UpdateTaskTitle(ctx context.Context, id, title string) error {
	title, err := trimTitle(title)
	if err != nil {
		return err
	}
	return r.mutateTask(ctx, id, func(t *model.Task) { t.Title = title })
}

// UpdateTaskNotes changes only the notes. Notes may be empty.
func (r *Repository) UpdateTaskNotes(ctx context.Context, id, notes string) error {
	return r.mutateTask(ctx, id, func(t *model.Task) { t.Notes = strings.TrimSpace(notes) })
}

// UpdateTaskDueDate changes only the due date; the zero time clears it.
func (r *Repository) UpdateTaskDueDate(ctx context.Context, id string, due time.Time) error {
	return r.mutateTask(ctx, id, func(t *model.Task) { t.Due = due })
}

// ToggleTaskCompletionState flips the completion flag.
func (r *Repository) ToggleTaskCompletionState(ctx context.Context, id string) error {
	return r.mutateTask(ctx, id, func(t *model.Task) { t.Completed = !t.Completed })
}

func (r *Repository) mutateTask(ctx context.Context, id string, fn func(*model.Task)) error {
	t, err := r.liveTask(ctx, id)
	if err != nil {
		return err
	}
	fn(&t)
	t.Updated = time.Now().UTC()
	t.Dirty = true
	return r.store.UpdateTask(ctx, t)
}

// DeleteTask removes a task; its children (if any) are promoted to top
// level. A task the remote never saw is purged, otherwise tombstoned.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	t, err := r.liveTask(ctx, id)
	if err != nil {
		return err
	}
	unlock := r.lockList(t.ListID)
	defer unlock()

	tasks, err := r.store.TasksForList(ctx, t.ListID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var save []model.Task
	for _, c := range ordering.Siblings(tasks, t.ID) {
		pos, err := ordering.TailKey(tasks, "")
		if err != nil {
			return err
		}
		c.ParentID = ""
		c.Position = pos
		c.Updated = now
		c.Dirty = true
		save = append(save, c)
		tasks = append(tasks, c) // keep TailKey advancing past the promoted child
	}
	if err := r.store.SaveTasks(ctx, save); err != nil {
		return err
	}

	if t.RemoteID == "" {
		return r.store.PurgeTask(ctx, t.ID)
	}
	t.Deleted = true
	t.Updated = now
	return r.store.UpdateTask(ctx, t)
}

// RestoreTask reverses a pending local deletion that has not been pushed
// yet. Once the remote acknowledged the delete the row is gone and this
// reports NotFound.
func (r *Repository) RestoreTask(ctx context.Context, id string) error {
	t, err := r.store.Task(ctx, id)
	if err != nil {
		return err
	}
	if !t.Deleted {
		return nil
	}
	t.Deleted = false
	t.Updated = time.Now().UTC()
	t.Dirty = true
	return r.store.UpdateTask(ctx, t)
}

// IndentTask nests the task under its immediate predecessor. No-op when
// there is no predecessor or the depth bound would be exceeded.
func (r *Repository) IndentTask(ctx context.Context, id string) error {
	return r.structural(ctx, id, func(tasks []model.Task) (ordering.Reposition, bool, error) {
		return ordering.Indent(tasks, id)
	})
}

// UnindentTask promotes the task to a sibling right after its parent.
// No-op for top-level tasks.
func (r *Repository) UnindentTask(ctx context.Context, id string) error {
	return r.structural(ctx, id, func(tasks []model.Task) (ordering.Reposition, bool, error) {
		return ordering.Unindent(tasks, id)
	})
}

// MoveToTop places the task first among its siblings.
func (r *Repository) MoveToTop(ctx context.Context, id string) error {
	return r.structural(ctx, id, func(tasks []model.Task) (ordering.Reposition, bool, error) {
		rp, err := ordering.MoveToTop(tasks, id)
		return rp, err == nil, err
	})
}

func (r *Repository) structural(ctx context.Context, id string, compute func([]model.Task) (ordering.Reposition, bool, error)) error {
	t, err := r.liveTask(ctx, id)
	if err != nil {
		return err
	}
	unlock := r.lockList(t.ListID)
	defer unlock()

	tasks, err := r.store.TasksForList(ctx, t.ListID)
	if err != nil {
		return err
	}
	rp, ok, err := compute(tasks)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	// Re-read under the lock; compute saw a pre-lock snapshot of t.
	t, err = r.liveTask(ctx, id)
	if err != nil {
		return err
	}
	if t.ParentID == rp.ParentID && t.Position == rp.Position {
		return nil
	}
	t.ParentID = rp.ParentID
	t.Position = rp.Position
	t.Updated = time.Now().UTC()
	t.Dirty = true
	return r.store.UpdateTask(ctx, t)
}

// MoveToList relocates the task and its subtree to the tail of the
// target list's top level. Remote copies in the source list are
// tombstoned so the next sync deletes them there and recreates the
// subtree in the destination.
func (r *Repository) MoveToList(ctx context.Context, id, targetListID string) error {
	t, err := r.liveTask(ctx, id)
	if err != nil {
		return err
	}
	if t.ListID == targetListID {
		return nil
	}
	unlock := r.lockLists(t.ListID, targetListID)
	defer unlock()

	if _, err := r.liveList(ctx, targetListID); err != nil {
		return err
	}
	sourceTasks, err := r.store.TasksForList(ctx, t.ListID)
	if err != nil {
		return err
	}
	targetTasks, err := r.store.TasksForList(ctx, targetListID)
	if err != nil {
		return err
	}

	subtree := append([]model.Task{t}, ordering.Siblings(sourceTasks, t.ID)...)
	rootPos, err := ordering.TailKey(targetTasks, "")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var save []model.Task
	for i, m := range subtree {
		if m.RemoteID != "" {
			// Ghost row keeps the old remote identity around until the
			// remote-side delete is acknowledged.
			save = append(save, model.Task{
				ID:       store.NewID(),
				RemoteID: m.RemoteID,
				ListID:   t.ListID,
				Title:    m.Title,
				Position: m.Position,
				Updated:  now,
				Deleted:  true,
			})
		}
		m.RemoteID = ""
		m.RemoteParentID = ""
		m.ListID = targetListID
		m.Updated = now
		m.Dirty = true
		if i == 0 {
			m.ParentID = ""
			m.Position = rootPos
		}
		save = append(save, m)
	}
	return r.store.SaveTasks(ctx, save)
}

// MoveToNewList creates a list with the given title and moves the task
// there.
func (r *Repository) MoveToNewList(ctx context.Context, id, title string) (model.TaskList, error) {
	l, err := r.CreateTaskList(ctx, title)
	if err != nil {
		return model.TaskList{}, err
	}
	if err := r.MoveToList(ctx, id, l.ID); err != nil {
		return model.TaskList{}, err
	}
	return l, nil
}

// Sync runs one reconciliation pass. Concurrent callers join the
// in-flight pass instead of running a second one against the same
// entities.
func (r *Repository) Sync(ctx context.Context) error {
	if r.syncer == nil {
		return &model.SyncError{Op: "sync", Err: errors.New("remote not configured")}
	}
	_, err, _ := r.sf.Do("sync", func() (any, error) {
		return nil, r.syncer.Sync(ctx)
	})
	return err
}

func (r *Repository) liveList(ctx context.Context, id string) (model.TaskList, error) {
	l, err := r.store.TaskList(ctx, id)
	if err != nil {
		return model.TaskList{}, err
	}
	if l.Deleted {
		return model.TaskList{}, model.ErrNotFound
	}
	return l, nil
}

func (r *Repository) liveTask(ctx context.Context, id string) (model.Task, error) {
	t, err := r.store.Task(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.Deleted {
		return model.Task{}, model.ErrNotFound
	}
	return t, nil
}
