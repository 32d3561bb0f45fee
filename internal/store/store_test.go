package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newList(title string) model.TaskList {
	now := time.Now().UTC()
	return model.TaskList{ID: NewID(), Title: title, Updated: now, Created: now, Dirty: true}
}

func newTask(listID, title, pos string) model.Task {
	return model.Task{
		ID: NewID(), ListID: listID, Title: title, Position: pos,
		Updated: time.Now().UTC(), Dirty: true,
	}
}

func TestListRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := newList("Groceries")
	require.NoError(t, s.CreateTaskList(ctx, l))

	got, err := s.TaskList(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "Groceries", got.Title)
	require.True(t, got.Dirty)
	require.Empty(t, got.RemoteID)

	got.Title = "Errands"
	got.Dirty = true
	require.NoError(t, s.UpdateTaskList(ctx, got))

	again, err := s.TaskList(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "Errands", again.Title)
}

func TestListsOrderedByCreation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, title := range []string{"first", "second", "third"} {
		l := newList(title)
		l.Created = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateTaskList(ctx, l))
	}

	lists, err := s.TaskLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	require.Equal(t, "first", lists[0].Title)
	require.Equal(t, "third", lists[2].Title)
}

func TestTombstonedListExcluded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := newList("doomed")
	require.NoError(t, s.CreateTaskList(ctx, l))
	l.Deleted = true
	require.NoError(t, s.UpdateTaskList(ctx, l))

	lists, err := s.TaskLists(ctx)
	require.NoError(t, err)
	require.Empty(t, lists)

	all, err := s.AllTaskLists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestTaskRequiresExistingList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.CreateTask(ctx, newTask("no-such-list", "orphan", "i"))
	require.Error(t, err)
	require.ErrorIs(t, err, model.ErrConstraint)
}

func TestTasksOrderedByParentThenPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := newList("Groceries")
	require.NoError(t, s.CreateTaskList(ctx, l))

	milk := newTask(l.ID, "Milk", "i")
	eggs := newTask(l.ID, "Eggs", "r")
	bread := newTask(l.ID, "Bread", "c")
	require.NoError(t, s.CreateTask(ctx, milk))
	require.NoError(t, s.CreateTask(ctx, eggs))
	require.NoError(t, s.CreateTask(ctx, bread))

	tasks, err := s.TasksForList(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "Bread", tasks[0].Title)
	require.Equal(t, "Milk", tasks[1].Title)
	require.Equal(t, "Eggs", tasks[2].Title)
}

func TestUpdateMissingTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.UpdateTask(ctx, model.Task{ID: "ghost", ListID: "l", Position: "i"})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestPurgeTaskList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := newList("Groceries")
	require.NoError(t, s.CreateTaskList(ctx, l))
	task := newTask(l.ID, "Milk", "i")
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.PurgeTaskList(ctx, l.ID))

	_, err := s.TaskList(ctx, l.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.Task(ctx, task.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSaveTasksBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := newList("Groceries")
	require.NoError(t, s.CreateTaskList(ctx, l))

	a := newTask(l.ID, "a", "f")
	b := newTask(l.ID, "b", "m")
	require.NoError(t, s.SaveTasks(ctx, []model.Task{a, b}))

	a.Title = "a2"
	require.NoError(t, s.SaveTasks(ctx, []model.Task{a}))

	got, err := s.Task(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "a2", got.Title)
}

func TestWatchSignalsOnMutation(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Watch(ctx)

	require.NoError(t, s.CreateTaskList(ctx, newList("Groceries")))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal after mutation")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	_ = s.Watch(ctx)
	cancel()

	// Give the unregister goroutine a moment, then verify mutations
	// still work with no live watchers.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.CreateTaskList(context.Background(), newList("after cancel")))
}

func TestSingleSignedInUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SignedInUser(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)

	alice := model.User{ID: NewID(), Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, s.SetSignedInUser(ctx, alice))

	bob := model.User{ID: NewID(), Email: "bob@example.com", Name: "Bob"}
	require.NoError(t, s.SetSignedInUser(ctx, bob))

	got, err := s.SignedInUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", got.Email)

	require.NoError(t, s.ClearSignedIn(ctx))
	_, err = s.SignedInUser(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestNotFoundMatching(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Task(context.Background(), "nope")
	require.True(t, errors.Is(err, model.ErrNotFound))
}
