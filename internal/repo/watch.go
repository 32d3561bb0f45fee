package repo

import (
	"context"
	"time"

	"tasksync/internal/model"
	"tasksync/internal/ordering"
)

// TaskView is the consumer-facing shape of a task: ordered depth-first
// and annotated with its indent depth. Consumers never mutate views;
// they call repository operations instead.
type TaskView struct {
	ID        string
	ParentID  string
	Title     string
	Notes     string
	Due       time.Time
	Updated   time.Time
	Completed bool
	Position  string
	Indent    int
	Synced    bool
}

// TaskListView is the consumer-facing shape of a list with its tasks.
type TaskListView struct {
	ID      string
	Title   string
	Updated time.Time
	Default bool
	Synced  bool
	Tasks   []TaskView
}

// TaskLists returns the current ordered snapshot of every live list.
func (r *Repository) TaskLists(ctx context.Context) ([]TaskListView, error) {
	lists, err := r.store.TaskLists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TaskListView, 0, len(lists))
	for _, l := range lists {
		tasks, err := r.store.TasksForList(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, TaskListView{
			ID:      l.ID,
			Title:   l.Title,
			Updated: l.Updated,
			Default: l.IsDefault,
			Synced:  l.Synced(),
			Tasks:   flatten(tasks),
		})
	}
	return out, nil
}

// WatchTaskLists emits the current snapshot immediately and a fresh one
// after every store change until ctx is cancelled. Emissions are
// conflated: a slow consumer skips intermediate snapshots but always
// ends on the latest one. The channel closes when ctx is done.
func (r *Repository) WatchTaskLists(ctx context.Context) (<-chan []TaskListView, error) {
	initial, err := r.TaskLists(ctx)
	if err != nil {
		return nil, err
	}

	signals := r.store.Watch(ctx)
	out := make(chan []TaskListView, 1)
	out <- initial

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				snap, err := r.TaskLists(ctx)
				if err != nil {
					// Keep the stream alive; next change re-queries.
					r.log.Warn("snapshot query failed", "err", err)
					continue
				}
				// Drop a stale, unconsumed snapshot before replacing it.
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()
	return out, nil
}

// flatten orders a list's tasks depth-first: each top-level task by
// position, immediately followed by its children by position.
func flatten(tasks []model.Task) []TaskView {
	var out []TaskView
	for _, top := range ordering.Siblings(tasks, "") {
		out = append(out, toView(top, 0))
		for _, child := range ordering.Siblings(tasks, top.ID) {
			out = append(out, toView(child, 1))
		}
	}
	return out
}

func toView(t model.Task, indent int) TaskView {
	return TaskView{
		ID:        t.ID,
		ParentID:  t.ParentID,
		Title:     t.Title,
		Notes:     t.Notes,
		Due:       t.Due,
		Updated:   t.Updated,
		Completed: t.Completed,
		Position:  t.Position,
		Indent:    indent,
		Synced:    t.Synced(),
	}
}
