package repo

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync/internal/model"
	"tasksync/internal/store"
)

type repoTestEnv struct {
	ctx   context.Context
	store *store.Store
	repo  *Repository
}

func newRepoTestEnv(t *testing.T, syncer Syncer) *repoTestEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return &repoTestEnv{
		ctx:   context.Background(),
		store: st,
		repo:  New(st, syncer, nil),
	}
}

func (e *repoTestEnv) listView(t *testing.T, listID string) TaskListView {
	t.Helper()
	views, err := e.repo.TaskLists(e.ctx)
	require.NoError(t, err)
	for _, v := range views {
		if v.ID == listID {
			return v
		}
	}
	t.Fatalf("list %s not in snapshot", listID)
	return TaskListView{}
}

// markSynced stamps a remote id directly onto a task row, standing in
// for a completed sync pass.
func (e *repoTestEnv) markSynced(t *testing.T, taskID, remoteID string) {
	t.Helper()
	task, err := e.store.Task(e.ctx, taskID)
	require.NoError(t, err)
	task.RemoteID = remoteID
	task.Dirty = false
	require.NoError(t, e.store.UpdateTask(e.ctx, task))
}

func viewTitles(v TaskListView) []string {
	out := make([]string, len(v.Tasks))
	for i, tv := range v.Tasks {
		out[i] = tv.Title
	}
	return out
}

func viewIndents(v TaskListView) []int {
	out := make([]int, len(v.Tasks))
	for i, tv := range v.Tasks {
		out[i] = tv.Indent
	}
	return out
}

func TestCreateTaskListRejectsBlankTitle(t *testing.T) {
	env := newRepoTestEnv(t, nil)

	_, err := env.repo.CreateTaskList(env.ctx, "   ")
	require.ErrorIs(t, err, model.ErrValidation)

	views, err := env.repo.TaskLists(env.ctx)
	require.NoError(t, err)
	require.Empty(t, views, "rejected input must not reach the store")
}

func TestCreateTaskListTrimsTitle(t *testing.T) {
	env := newRepoTestEnv(t, nil)

	l, err := env.repo.CreateTaskList(env.ctx, "  Groceries  ")
	require.NoError(t, err)
	require.Equal(t, "Groceries", l.Title)
	require.False(t, env.listView(t, l.ID).Synced)
}

func TestCreateTaskAppendsInOrder(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)

	for _, title := range []string{"Milk", "Eggs", "Bread"} {
		_, err := env.repo.CreateTask(env.ctx, l.ID, title, "", time.Time{})
		require.NoError(t, err)
	}

	v := env.listView(t, l.ID)
	require.Equal(t, []string{"Milk", "Eggs", "Bread"}, viewTitles(v))
	require.Equal(t, []int{0, 0, 0}, viewIndents(v))
}

func TestCreateTaskRejectsUnknownList(t *testing.T) {
	env := newRepoTestEnv(t, nil)

	_, err := env.repo.CreateTask(env.ctx, "no-such-list", "Milk", "", time.Time{})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestIndentThenUnindentRestoresOrder(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	eggs, err := env.repo.CreateTask(env.ctx, l.ID, "Eggs", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, env.repo.IndentTask(env.ctx, eggs.ID))
	v := env.listView(t, l.ID)
	require.Equal(t, []string{"Milk", "Eggs"}, viewTitles(v))
	require.Equal(t, []int{0, 1}, viewIndents(v))
	require.Equal(t, milk.ID, v.Tasks[1].ParentID)

	require.NoError(t, env.repo.UnindentTask(env.ctx, eggs.ID))
	v = env.listView(t, l.ID)
	require.Equal(t, []string{"Milk", "Eggs"}, viewTitles(v))
	require.Equal(t, []int{0, 0}, viewIndents(v))
}

func TestIndentFirstTaskIsNoOp(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, env.repo.IndentTask(env.ctx, milk.ID))
	require.Equal(t, []int{0}, viewIndents(env.listView(t, l.ID)))
}

func TestMoveToTop(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	var bread model.Task
	for _, title := range []string{"Milk", "Eggs", "Bread"} {
		task, err := env.repo.CreateTask(env.ctx, l.ID, title, "", time.Time{})
		require.NoError(t, err)
		bread = task
	}

	require.NoError(t, env.repo.MoveToTop(env.ctx, bread.ID))
	require.Equal(t, []string{"Bread", "Milk", "Eggs"}, viewTitles(env.listView(t, l.ID)))

	// Already first: stays put.
	require.NoError(t, env.repo.MoveToTop(env.ctx, bread.ID))
	require.Equal(t, []string{"Bread", "Milk", "Eggs"}, viewTitles(env.listView(t, l.ID)))
}

func TestUpdateTaskFields(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.repo.UpdateTaskTitle(env.ctx, milk.ID, "Oat milk"))
	require.NoError(t, env.repo.UpdateTaskNotes(env.ctx, milk.ID, "the barista one"))
	require.NoError(t, env.repo.UpdateTaskDueDate(env.ctx, milk.ID, due))
	require.NoError(t, env.repo.ToggleTaskCompletionState(env.ctx, milk.ID))

	v := env.listView(t, l.ID)
	require.Equal(t, "Oat milk", v.Tasks[0].Title)
	require.Equal(t, "the barista one", v.Tasks[0].Notes)
	require.True(t, v.Tasks[0].Due.Equal(due))
	require.True(t, v.Tasks[0].Completed)

	// Clearing the due date.
	require.NoError(t, env.repo.UpdateTaskDueDate(env.ctx, milk.ID, time.Time{}))
	require.True(t, env.listView(t, l.ID).Tasks[0].Due.IsZero())
}

func TestDeleteTaskPromotesChildren(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	eggs, err := env.repo.CreateTask(env.ctx, l.ID, "Eggs", "", time.Time{})
	require.NoError(t, err)
	require.NoError(t, env.repo.IndentTask(env.ctx, eggs.ID))

	require.NoError(t, env.repo.DeleteTask(env.ctx, milk.ID))

	v := env.listView(t, l.ID)
	require.Equal(t, []string{"Eggs"}, viewTitles(v))
	require.Equal(t, []int{0}, viewIndents(v))
}

func TestDeleteSyncedTaskTombstonesUntilRestore(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	env.markSynced(t, milk.ID, "task-1")

	require.NoError(t, env.repo.DeleteTask(env.ctx, milk.ID))
	require.Empty(t, env.listView(t, l.ID).Tasks, "tombstoned task leaves every query")

	// The row is still there awaiting push, so it can come back.
	require.NoError(t, env.repo.RestoreTask(env.ctx, milk.ID))
	require.Equal(t, []string{"Milk"}, viewTitles(env.listView(t, l.ID)))
}

func TestDeleteUnsyncedTaskCannotBeRestored(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, env.repo.DeleteTask(env.ctx, milk.ID))
	require.ErrorIs(t, env.repo.RestoreTask(env.ctx, milk.ID), model.ErrNotFound)
}

func TestClearCompletedPromotesIncompleteChildren(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	eggs, err := env.repo.CreateTask(env.ctx, l.ID, "Eggs", "", time.Time{})
	require.NoError(t, err)
	bread, err := env.repo.CreateTask(env.ctx, l.ID, "Bread", "", time.Time{})
	require.NoError(t, err)
	require.NoError(t, env.repo.IndentTask(env.ctx, eggs.ID))

	require.NoError(t, env.repo.ToggleTaskCompletionState(env.ctx, milk.ID))
	require.NoError(t, env.repo.ToggleTaskCompletionState(env.ctx, bread.ID))

	require.NoError(t, env.repo.ClearTaskListCompletedTasks(env.ctx, l.ID))

	v := env.listView(t, l.ID)
	require.Equal(t, []string{"Eggs"}, viewTitles(v))
	require.Equal(t, []int{0}, viewIndents(v))
}

func TestDeleteTaskListPurgesWhenNeverSynced(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Scratch")
	require.NoError(t, err)
	_, err = env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, env.repo.DeleteTaskList(env.ctx, l.ID))

	views, err := env.repo.TaskLists(env.ctx)
	require.NoError(t, err)
	require.Empty(t, views)
	_, err = env.store.TaskList(env.ctx, l.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMoveToListCarriesSubtree(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	a, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	b, err := env.repo.CreateTaskList(env.ctx, "Errands")
	require.NoError(t, err)
	_, err = env.repo.CreateTask(env.ctx, b.ID, "Post office", "", time.Time{})
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, a.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	eggs, err := env.repo.CreateTask(env.ctx, a.ID, "Eggs", "", time.Time{})
	require.NoError(t, err)
	require.NoError(t, env.repo.IndentTask(env.ctx, eggs.ID))

	require.NoError(t, env.repo.MoveToList(env.ctx, milk.ID, b.ID))

	require.Empty(t, env.listView(t, a.ID).Tasks)
	v := env.listView(t, b.ID)
	require.Equal(t, []string{"Post office", "Milk", "Eggs"}, viewTitles(v))
	require.Equal(t, []int{0, 0, 1}, viewIndents(v))
}

func TestMoveToListLeavesTombstonesForSyncedRows(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	a, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	b, err := env.repo.CreateTaskList(env.ctx, "Errands")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, a.ID, "Milk", "", time.Time{})
	require.NoError(t, err)
	env.markSynced(t, milk.ID, "task-1")

	require.NoError(t, env.repo.MoveToList(env.ctx, milk.ID, b.ID))

	// The moved copy is pending push in the target list.
	moved, err := env.store.Task(env.ctx, milk.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, moved.ListID)
	require.Empty(t, moved.RemoteID)
	require.True(t, moved.Dirty)

	// A ghost row keeps the old remote identity for the delete push.
	rows, err := env.store.AllTasksForList(env.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Deleted)
	require.Equal(t, "task-1", rows[0].RemoteID)
}

func TestMoveToNewList(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	a, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)
	milk, err := env.repo.CreateTask(env.ctx, a.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	l, err := env.repo.MoveToNewList(env.ctx, milk.ID, "Dairy")
	require.NoError(t, err)
	require.Equal(t, "Dairy", l.Title)
	require.Equal(t, []string{"Milk"}, viewTitles(env.listView(t, l.ID)))
	require.Empty(t, env.listView(t, a.ID).Tasks)
}

type blockingSyncer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *blockingSyncer) Sync(ctx context.Context) error {
	s.calls.Add(1)
	<-s.release
	return nil
}

func TestSyncWithoutRemoteFails(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	require.ErrorIs(t, env.repo.Sync(env.ctx), model.ErrSyncFailed)
}

func TestConcurrentSyncCallsShareOnePass(t *testing.T) {
	syncer := &blockingSyncer{release: make(chan struct{})}
	env := newRepoTestEnv(t, syncer)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			done <- env.repo.Sync(env.ctx)
		}()
	}
	// Let both callers reach the in-flight pass before releasing it.
	for syncer.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(syncer.release)

	require.NoError(t, <-done)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), syncer.calls.Load())
}

func TestWatchEmitsInitialAndUpdatedSnapshots(t *testing.T) {
	env := newRepoTestEnv(t, nil)
	l, err := env.repo.CreateTaskList(env.ctx, "Groceries")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(env.ctx)
	defer cancel()
	ch, err := env.repo.WatchTaskLists(ctx)
	require.NoError(t, err)

	first := <-ch
	require.Len(t, first, 1)
	require.Empty(t, first[0].Tasks)

	_, err = env.repo.CreateTask(env.ctx, l.ID, "Milk", "", time.Time{})
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap) == 1 && len(snap[0].Tasks) == 1 && snap[0].Tasks[0].Title == "Milk" {
				return
			}
		case <-deadline:
			t.Fatal("no snapshot with the new task")
		}
	}
}
