package store

import (
	"context"
	"database/sql"

	"tasksync/internal/model"
)

const listColumns = `id, remote_id, title, updated_ms, created_ms, is_default, dirty, deleted`

// CreateTaskList inserts a new list row.
func (s *Store) CreateTaskList(ctx context.Context, l model.TaskList) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO task_lists(`+listColumns+`)
VALUES(?,?,?,?,?,?,?,?)`,
		l.ID, l.RemoteID, l.Title, timeToMs(l.Updated), timeToMs(l.Created),
		boolToInt(l.IsDefault), boolToInt(l.Dirty), boolToInt(l.Deleted),
	)
	if err != nil {
		return wrapErr("task_list", err)
	}
	s.notify()
	return nil
}

// TaskList fetches a single list row, tombstoned or not.
func (s *Store) TaskList(ctx context.Context, id string) (model.TaskList, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+listColumns+` FROM task_lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return model.TaskList{}, model.ErrNotFound
	}
	return l, err
}

// TaskLists returns all live (non-tombstoned) lists ordered by creation.
func (s *Store) TaskLists(ctx context.Context) ([]model.TaskList, error) {
	return s.queryLists(ctx, `
SELECT `+listColumns+` FROM task_lists WHERE deleted = 0 ORDER BY created_ms, id`)
}

// AllTaskLists returns every list row including tombstones, for sync.
func (s *Store) AllTaskLists(ctx context.Context) ([]model.TaskList, error) {
	return s.queryLists(ctx, `
SELECT `+listColumns+` FROM task_lists ORDER BY created_ms, id`)
}

// UpdateTaskList overwrites a list row.
func (s *Store) UpdateTaskList(ctx context.Context, l model.TaskList) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE task_lists
SET remote_id = ?, title = ?, updated_ms = ?, is_default = ?, dirty = ?, deleted = ?
WHERE id = ?`,
		l.RemoteID, l.Title, timeToMs(l.Updated), boolToInt(l.IsDefault),
		boolToInt(l.Dirty), boolToInt(l.Deleted), l.ID,
	)
	if err != nil {
		return wrapErr("task_list", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	s.notify()
	return nil
}

// PurgeTaskList removes a list row and all of its task rows for good.
func (s *Store) PurgeTaskList(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE list_id = ?`, id); err != nil {
		return wrapErr("task", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_lists WHERE id = ?`, id); err != nil {
		return wrapErr("task_list", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) queryLists(ctx context.Context, query string, args ...any) ([]model.TaskList, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []model.TaskList
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanList(row scanner) (model.TaskList, error) {
	var l model.TaskList
	var updated, created int64
	var isDefault, dirty, deleted int
	err := row.Scan(&l.ID, &l.RemoteID, &l.Title, &updated, &created, &isDefault, &dirty, &deleted)
	if err != nil {
		return model.TaskList{}, err
	}
	l.Updated = msToTime(updated)
	l.Created = msToTime(created)
	l.IsDefault = isDefault != 0
	l.Dirty = dirty != 0
	l.Deleted = deleted != 0
	return l, nil
}
