package store

import (
	"context"
	"database/sql"

	"tasksync/internal/model"
)

const taskColumns = `id, remote_id, remote_parent_id, parent_id, list_id, title, notes, due_ms, updated_ms, completed, position, dirty, deleted`

// CreateTask inserts a new task row. The referenced list must exist or a
// ConstraintError is returned.
func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks(`+taskColumns+`)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`, taskArgs(t)...)
	if err != nil {
		return wrapErr("task", err)
	}
	s.notify()
	return nil
}

// Task fetches a single task row, tombstoned or not.
func (s *Store) Task(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, model.ErrNotFound
	}
	return t, err
}

// TasksForList returns the live tasks of one list ordered by
// (parent, position).
func (s *Store) TasksForList(ctx context.Context, listID string) ([]model.Task, error) {
	return s.queryTasks(ctx, `
SELECT `+taskColumns+` FROM tasks
WHERE list_id = ? AND deleted = 0
ORDER BY parent_id, position`, listID)
}

// AllTasksForList returns every task row of one list including
// tombstones, for sync.
func (s *Store) AllTasksForList(ctx context.Context, listID string) ([]model.Task, error) {
	return s.queryTasks(ctx, `
SELECT `+taskColumns+` FROM tasks
WHERE list_id = ?
ORDER BY parent_id, position`, listID)
}

// UpdateTask overwrites a task row.
func (s *Store) UpdateTask(ctx context.Context, t model.Task) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tasks
SET remote_id = ?, remote_parent_id = ?, parent_id = ?, list_id = ?, title = ?,
    notes = ?, due_ms = ?, updated_ms = ?, completed = ?, position = ?, dirty = ?, deleted = ?
WHERE id = ?`,
		t.RemoteID, t.RemoteParentID, t.ParentID, t.ListID, t.Title,
		t.Notes, timeToMs(t.Due), timeToMs(t.Updated), boolToInt(t.Completed),
		t.Position, boolToInt(t.Dirty), boolToInt(t.Deleted), t.ID,
	)
	if err != nil {
		return wrapErr("task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	s.notify()
	return nil
}

// SaveTasks upserts a batch of task rows in one transaction so watchers
// never observe a half-applied structural change.
func (s *Store) SaveTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tasks(`+taskColumns+`)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  remote_id = excluded.remote_id,
  remote_parent_id = excluded.remote_parent_id,
  parent_id = excluded.parent_id,
  list_id = excluded.list_id,
  title = excluded.title,
  notes = excluded.notes,
  due_ms = excluded.due_ms,
  updated_ms = excluded.updated_ms,
  completed = excluded.completed,
  position = excluded.position,
  dirty = excluded.dirty,
  deleted = excluded.deleted`)
	if err != nil {
		return err
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx, taskArgs(t)...); err != nil {
			return wrapErr("task", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// PurgeTask removes a task row for good.
func (s *Store) PurgeTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return wrapErr("task", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	s.notify()
	return nil
}

// PurgeTasks removes a batch of task rows in one transaction.
func (s *Store) PurgeTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM tasks WHERE id = ?`)
	if err != nil {
		return err
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return wrapErr("task", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func taskArgs(t model.Task) []any {
	return []any{
		t.ID, t.RemoteID, t.RemoteParentID, t.ParentID, t.ListID, t.Title,
		t.Notes, timeToMs(t.Due), timeToMs(t.Updated), boolToInt(t.Completed),
		t.Position, boolToInt(t.Dirty), boolToInt(t.Deleted),
	}
}

func scanTask(row scanner) (model.Task, error) {
	var t model.Task
	var due, updated int64
	var completed, dirty, deleted int
	err := row.Scan(&t.ID, &t.RemoteID, &t.RemoteParentID, &t.ParentID, &t.ListID,
		&t.Title, &t.Notes, &due, &updated, &completed, &t.Position, &dirty, &deleted)
	if err != nil {
		return model.Task{}, err
	}
	t.Due = msToTime(due)
	t.Updated = msToTime(updated)
	t.Completed = completed != 0
	t.Dirty = dirty != 0
	t.Deleted = deleted != 0
	return t, nil
}
