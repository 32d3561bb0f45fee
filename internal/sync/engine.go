// Package sync reconciles the local store against the remote task
// service: it drains pending local mutations (push) and ingests remote
// state (pull). A pass tolerates per-entity failures, keeps whatever
// partial progress it made, and reports a single SyncFailed outcome.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"tasksync/internal/model"
	"tasksync/internal/ordering"
	"tasksync/internal/remote"
	"tasksync/internal/store"
)

// Engine owns no entity state; it reads and writes through the store and
// proxies to the remote service.
type Engine struct {
	store  *store.Store
	remote remote.Service
	log    *slog.Logger
}

// NewEngine builds a sync engine. logger may be nil.
func NewEngine(st *store.Store, svc remote.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: st, remote: svc, log: logger}
}

// Sync runs one full pass: acknowledge tombstones, push dirty lists,
// push dirty tasks, then pull. The first phase that fails aborts the
// remainder of the pass; progress made so far is kept.
func (e *Engine) Sync(ctx context.Context) error {
	phases := []struct {
		op  string
		run func(context.Context) error
	}{
		{"push-deletes", e.pushDeletes},
		{"push-lists", e.pushLists},
		{"push-tasks", e.pushTasks},
		{"pull", e.pull},
	}
	for _, p := range phases {
		if err := p.run(ctx); err != nil {
			e.log.Warn("sync phase failed", "phase", p.op, "err", err)
			return &model.SyncError{Op: p.op, Err: err}
		}
		e.log.Debug("sync phase done", "phase", p.op)
	}
	return nil
}

// pushDeletes sends pending deletions and purges acknowledged
// tombstones. Entities never pushed are purged without a remote call.
func (e *Engine) pushDeletes(ctx context.Context) error {
	lists, err := e.store.AllTaskLists(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range lists {
		if l.Deleted {
			if l.RemoteID != "" {
				err := e.remote.DeleteTaskList(ctx, l.RemoteID)
				if err != nil && !errors.Is(err, remote.ErrNotFound) {
					errs = append(errs, err)
					continue
				}
			}
			if err := e.store.PurgeTaskList(ctx, l.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		tasks, err := e.store.AllTasksForList(ctx, l.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, t := range tasks {
			if !t.Deleted {
				continue
			}
			if t.RemoteID != "" {
				err := e.remote.DeleteTask(ctx, l.RemoteID, t.RemoteID)
				if err != nil && !errors.Is(err, remote.ErrNotFound) {
					errs = append(errs, err)
					continue
				}
			}
			if err := e.store.PurgeTask(ctx, t.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// pushLists creates or renames dirty lists remotely. A list must obtain
// its remote id before any of its tasks can be pushed.
func (e *Engine) pushLists(ctx context.Context) error {
	lists, err := e.store.TaskLists(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range lists {
		if !l.Dirty {
			continue
		}
		if l.RemoteID == "" {
			rl, err := e.remote.CreateTaskList(ctx, l.Title)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			l.RemoteID = rl.ID
			l.Updated = rl.Updated
		} else {
			rl, err := e.remote.UpdateTaskList(ctx, l.RemoteID, l.Title)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			l.Updated = rl.Updated
		}
		l.Dirty = false
		if err := e.store.UpdateTaskList(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pushTasks sends dirty tasks of every synced list, parents before
// children so the remote parent id is known when a child is created.
func (e *Engine) pushTasks(ctx context.Context) error {
	lists, err := e.store.TaskLists(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range lists {
		if l.RemoteID == "" {
			// Creation failed earlier in this pass; its tasks wait.
			continue
		}
		if err := e.pushListTasks(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushListTasks(ctx context.Context, l model.TaskList) error {
	tasks, err := e.store.TasksForList(ctx, l.ID)
	if err != nil {
		return err
	}

	// Parents first, then (parent, position) so previous-sibling ids
	// resolve to already-pushed tasks.
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := ordering.Depth(tasks, sorted[i].ID), ordering.Depth(tasks, sorted[j].ID)
		if di != dj {
			return di < dj
		}
		if sorted[i].ParentID != sorted[j].ParentID {
			return sorted[i].ParentID < sorted[j].ParentID
		}
		return sorted[i].Position < sorted[j].Position
	})

	remoteIDs := make(map[string]string) // local task id -> remote id
	for _, t := range tasks {
		if t.RemoteID != "" {
			remoteIDs[t.ID] = t.RemoteID
		}
	}

	var errs []error
	for _, t := range sorted {
		if !t.Dirty {
			continue
		}
		parentRemote := ""
		if t.ParentID != "" {
			parentRemote = remoteIDs[t.ParentID]
			if parentRemote == "" {
				// Parent creation failed; retry the child next pass.
				continue
			}
		}
		prevRemote := e.previousRemoteID(tasks, t, remoteIDs)

		if t.RemoteID == "" {
			rt, err := e.remote.CreateTask(ctx, l.RemoteID, parentRemote, prevRemote, toRemote(t))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			t.RemoteID = rt.ID
			t.RemoteParentID = rt.ParentID
			t.Updated = rt.Updated
			remoteIDs[t.ID] = rt.ID
		} else {
			rt, err := e.remote.UpdateTask(ctx, l.RemoteID, toRemote(t))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			moved, err := e.remote.MoveTask(ctx, l.RemoteID, t.RemoteID, parentRemote, prevRemote)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			t.RemoteParentID = moved.ParentID
			if moved.Updated.After(rt.Updated) {
				t.Updated = moved.Updated
			} else {
				t.Updated = rt.Updated
			}
		}
		t.Dirty = false
		if err := e.store.UpdateTask(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// previousRemoteID returns the remote id of the nearest preceding sibling
// that the remote already knows, or "" when t should be first.
func (e *Engine) previousRemoteID(tasks []model.Task, t model.Task, remoteIDs map[string]string) string {
	sibs := ordering.Siblings(tasks, t.ParentID)
	prev := ""
	for _, s := range sibs {
		if s.ID == t.ID {
			break
		}
		if id := remoteIDs[s.ID]; id != "" {
			prev = id
		}
	}
	return prev
}

// pull merges remote state into the store. Remote-known entities are
// upserted last-write-wins; local-only entities are untouched (they are
// pending push). Writes are skipped when nothing changed so a quiet
// second pass leaves the store byte-identical.
func (e *Engine) pull(ctx context.Context) error {
	remoteLists, err := e.remote.ListTaskLists(ctx)
	if err != nil {
		return err
	}

	locals, err := e.store.AllTaskLists(ctx)
	if err != nil {
		return err
	}
	byRemote := make(map[string]model.TaskList)
	for _, l := range locals {
		if l.RemoteID != "" {
			byRemote[l.RemoteID] = l
		}
	}

	var errs []error
	seen := make(map[string]bool)
	for _, rl := range remoteLists {
		seen[rl.ID] = true
		local, ok := byRemote[rl.ID]
		if ok && local.Deleted {
			// Pending local deletion; leave the tombstone alone.
			continue
		}
		if !ok {
			local = model.TaskList{
				ID:        store.NewID(),
				RemoteID:  rl.ID,
				Title:     rl.Title,
				Updated:   rl.Updated,
				Created:   rl.Updated,
				IsDefault: rl.Default,
			}
			if err := e.store.CreateTaskList(ctx, local); err != nil {
				errs = append(errs, err)
				continue
			}
		} else if merged, changed := mergeList(local, rl); changed {
			if err := e.store.UpdateTaskList(ctx, merged); err != nil {
				errs = append(errs, err)
				continue
			}
			local = merged
		}
		if err := e.pullListTasks(ctx, local); err != nil {
			errs = append(errs, err)
		}
	}

	// Lists the remote no longer reports were deleted remotely.
	for _, l := range locals {
		if l.RemoteID != "" && !seen[l.RemoteID] {
			if err := e.store.PurgeTaskList(ctx, l.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pullListTasks(ctx context.Context, l model.TaskList) error {
	remoteTasks, err := e.remote.ListTasks(ctx, l.RemoteID)
	if err != nil {
		return err
	}

	locals, err := e.store.AllTasksForList(ctx, l.ID)
	if err != nil {
		return err
	}
	byRemote := make(map[string]model.Task)
	localByRemoteID := make(map[string]string) // remote task id -> local id
	for _, t := range locals {
		if t.RemoteID != "" {
			byRemote[t.RemoteID] = t
			localByRemoteID[t.RemoteID] = t.ID
		}
	}

	var errs []error
	var created []model.Task
	seen := make(map[string]bool)
	for _, rt := range remoteTasks {
		if rt.Deleted {
			// Remote soft-deletion marker: drop our copy if we have one.
			if local, ok := byRemote[rt.ID]; ok {
				if err := e.store.PurgeTask(ctx, local.ID); err != nil {
					errs = append(errs, err)
				}
			}
			continue
		}
		seen[rt.ID] = true
		if _, ok := byRemote[rt.ID]; !ok {
			t := model.Task{
				ID:             store.NewID(),
				RemoteID:       rt.ID,
				RemoteParentID: rt.ParentID,
				ListID:         l.ID,
				Title:          rt.Title,
				Notes:          rt.Notes,
				Due:            rt.Due,
				Updated:        rt.Updated,
				Completed:      rt.Completed,
				// Placed properly by the reorder step below.
				Position: pendingPos + rt.ID,
			}
			created = append(created, t)
			localByRemoteID[rt.ID] = t.ID
		}
	}

	// Resolve parent links now that every remote id has a local id.
	// Creations are committed by the reorder step in the same batch as
	// the position rebuild, so their placeholder keys never hit the
	// store.
	for i := range created {
		created[i].ParentID = localByRemoteID[created[i].RemoteParentID]
	}

	for _, rt := range remoteTasks {
		if rt.Deleted {
			continue
		}
		local, ok := byRemote[rt.ID]
		if !ok || local.Deleted {
			continue
		}
		merged, changed := mergeTask(local, rt, localByRemoteID)
		if changed {
			if err := e.store.UpdateTask(ctx, merged); err != nil {
				errs = append(errs, err)
			}
		}
	}

	// Tombstone-free local tasks the remote stopped reporting were
	// deleted remotely (or our delete was acknowledged out of band).
	for _, t := range locals {
		if t.RemoteID != "" && !seen[t.RemoteID] && !t.Deleted {
			if err := e.store.PurgeTask(ctx, t.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := e.reorderFromRemote(ctx, l, remoteTasks, localByRemoteID, created); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// mergeList applies last-write-wins between a local list and its remote
// copy. On a timestamp tie the remote copy wins.
func mergeList(local model.TaskList, rl remote.TaskList) (model.TaskList, bool) {
	if local.Dirty && local.Updated.After(rl.Updated) {
		return local, false
	}
	changed := false
	if local.Title != rl.Title {
		local.Title = rl.Title
		changed = true
	}
	if local.IsDefault != rl.Default {
		local.IsDefault = rl.Default
		changed = true
	}
	if !local.Updated.Equal(rl.Updated) {
		local.Updated = rl.Updated
		changed = true
	}
	if changed && local.Dirty {
		local.Dirty = false
	}
	return local, changed
}

// mergeTask applies last-write-wins between a local task and its remote
// copy. On a timestamp tie the remote copy wins.
func mergeTask(local model.Task, rt remote.Task, localByRemoteID map[string]string) (model.Task, bool) {
	if local.Dirty && local.Updated.After(rt.Updated) {
		return local, false
	}
	changed := false
	if local.Title != rt.Title {
		local.Title = rt.Title
		changed = true
	}
	if local.Notes != rt.Notes {
		local.Notes = rt.Notes
		changed = true
	}
	if !local.Due.Equal(rt.Due) {
		local.Due = rt.Due
		changed = true
	}
	if local.Completed != rt.Completed {
		local.Completed = rt.Completed
		changed = true
	}
	if local.RemoteParentID != rt.ParentID {
		local.RemoteParentID = rt.ParentID
		local.ParentID = localByRemoteID[rt.ParentID]
		changed = true
	}
	if !local.Updated.Equal(rt.Updated) {
		local.Updated = rt.Updated
		changed = true
	}
	if changed && local.Dirty {
		local.Dirty = false
	}
	return local, changed
}

// reorderFromRemote rebuilds local position keys of any sibling group
// whose remote-known members no longer match the remote order, and
// persists freshly pulled tasks in the same transaction. Tasks pending
// push keep their relative placement at the end of the group.
func (e *Engine) reorderFromRemote(ctx context.Context, l model.TaskList, remoteTasks []remote.Task, localByRemoteID map[string]string, created []model.Task) error {
	locals, err := e.store.TasksForList(ctx, l.ID)
	if err != nil {
		return err
	}
	locals = append(locals, created...)

	// Remote order per local parent id.
	remoteOrder := make(map[string][]string) // parent local id -> local ids in remote order
	sorted := make([]remote.Task, 0, len(remoteTasks))
	for _, rt := range remoteTasks {
		if !rt.Deleted {
			sorted = append(sorted, rt)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ParentID != sorted[j].ParentID {
			return sorted[i].ParentID < sorted[j].ParentID
		}
		return sorted[i].Position < sorted[j].Position
	})
	for _, rt := range sorted {
		localID := localByRemoteID[rt.ID]
		if localID == "" {
			continue
		}
		parentLocal := localByRemoteID[rt.ParentID]
		remoteOrder[parentLocal] = append(remoteOrder[parentLocal], localID)
	}

	parents := make(map[string]bool)
	for _, t := range locals {
		parents[t.ParentID] = true
	}

	var updates []model.Task
	for parent := range parents {
		group := ordering.Siblings(locals, parent)

		var have []string
		var pendingPush []model.Task
		byID := make(map[string]model.Task)
		for _, t := range group {
			byID[t.ID] = t
			if t.RemoteID != "" {
				have = append(have, t.ID)
			} else {
				pendingPush = append(pendingPush, t)
			}
		}

		// A mutation racing this pass may have tombstoned a task or
		// moved it to another group since the remote order was
		// captured; only tasks still in the group get a key.
		var want []string
		for _, id := range remoteOrder[parent] {
			if _, ok := byID[id]; ok {
				want = append(want, id)
			}
		}

		if equalIDs(have, want) && !hasPlaceholder(group) {
			continue
		}

		keys, err := ordering.Sequence(len(want) + len(pendingPush))
		if err != nil {
			return err
		}
		i := 0
		for _, id := range want {
			t := byID[id]
			if t.Position != keys[i] {
				t.Position = keys[i]
				updates = append(updates, t)
			}
			i++
		}
		for _, t := range pendingPush {
			if t.Position != keys[i] {
				t.Position = keys[i]
				updates = append(updates, t)
			}
			i++
		}
	}
	return e.store.SaveTasks(ctx, updates)
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pendingPos marks positions of freshly pulled tasks that still need a
// proper key. The marker is in-memory only: the reorder step assigns
// real keys before the batch is written, so concurrent readers never
// see it. The '~' sorts after every alphabet digit.
const pendingPos = "~"

func hasPlaceholder(group []model.Task) bool {
	for _, t := range group {
		if strings.HasPrefix(t.Position, pendingPos) {
			return true
		}
	}
	return false
}

func toRemote(t model.Task) remote.Task {
	return remote.Task{
		ID:        t.RemoteID,
		Title:     t.Title,
		Notes:     t.Notes,
		Due:       t.Due,
		Completed: t.Completed,
	}
}
