// Package ordering computes structural task mutations: sibling position
// assignment, indent/unindent, and move-to-top. It is pure computation
// over a snapshot of one list's tasks; callers persist the returned
// changes and must serialize calls touching the same list.
package ordering

import (
	"fmt"
	"sort"

	"tasksync/internal/model"
	"tasksync/internal/position"
)

// MaxIndent is the deepest nesting the engine maintains. One level of
// subtasks, matching the remote service's own limit.
const MaxIndent = 1

// Reposition is a computed placement for one task.
type Reposition struct {
	TaskID   string
	ParentID string // "" means top-level
	Position string
}

// Siblings returns the tasks of one sibling group sorted by position.
// tasks is the full task set of a single list.
func Siblings(tasks []model.Task, parentID string) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Depth returns the indent depth of the task, following the parent chain.
func Depth(tasks []model.Task, id string) int {
	depth := 0
	cur, ok := byID(tasks, id)
	if !ok {
		return 0
	}
	for cur.ParentID != "" {
		parent, ok := byID(tasks, cur.ParentID)
		if !ok {
			break
		}
		depth++
		cur = parent
	}
	return depth
}

// TailKey returns a position key placing a new task after every current
// member of the sibling group.
func TailKey(tasks []model.Task, parentID string) (string, error) {
	sibs := Siblings(tasks, parentID)
	if len(sibs) == 0 {
		return position.First(), nil
	}
	return position.After(sibs[len(sibs)-1].Position)
}

// TopKey returns a position key placing the task before every current
// member of the sibling group.
func TopKey(tasks []model.Task, parentID string) (string, error) {
	sibs := Siblings(tasks, parentID)
	if len(sibs) == 0 {
		return position.First(), nil
	}
	return position.Before(sibs[0].Position)
}

// Indent makes the task the last child of the sibling immediately
// preceding it. Returns ok=false when the move is a no-op: no
// predecessor, the depth bound would be exceeded, or the task has
// children of its own (their depth would exceed the bound too).
func Indent(tasks []model.Task, id string) (Reposition, bool, error) {
	task, found := byID(tasks, id)
	if !found {
		return Reposition{}, false, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if Depth(tasks, id) >= MaxIndent || len(Siblings(tasks, id)) > 0 {
		return Reposition{}, false, nil
	}
	sibs := Siblings(tasks, task.ParentID)
	idx := indexOf(sibs, id)
	if idx <= 0 {
		return Reposition{}, false, nil
	}
	pred := sibs[idx-1]
	pos, err := TailKey(tasks, pred.ID)
	if err != nil {
		return Reposition{}, false, err
	}
	return Reposition{TaskID: id, ParentID: pred.ID, Position: pos}, true, nil
}

// Unindent promotes the task to a sibling immediately following its
// current parent. A top-level task is left alone (ok=false).
func Unindent(tasks []model.Task, id string) (Reposition, bool, error) {
	task, found := byID(tasks, id)
	if !found {
		return Reposition{}, false, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if task.ParentID == "" {
		return Reposition{}, false, nil
	}
	parent, found := byID(tasks, task.ParentID)
	if !found {
		return Reposition{}, false, &model.ConstraintError{Entity: "task", Detail: "parent task missing"}
	}
	sibs := Siblings(tasks, parent.ParentID)
	idx := indexOf(sibs, parent.ID)
	next := ""
	if idx >= 0 && idx+1 < len(sibs) {
		next = sibs[idx+1].Position
	}
	pos, err := position.Between(parent.Position, next)
	if err != nil {
		return Reposition{}, false, err
	}
	return Reposition{TaskID: id, ParentID: parent.ParentID, Position: pos}, true, nil
}

// MoveToTop places the task first among its current siblings.
func MoveToTop(tasks []model.Task, id string) (Reposition, error) {
	task, found := byID(tasks, id)
	if !found {
		return Reposition{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	sibs := Siblings(tasks, task.ParentID)
	if len(sibs) == 0 || sibs[0].ID == id {
		return Reposition{TaskID: id, ParentID: task.ParentID, Position: task.Position}, nil
	}
	pos, err := position.Before(sibs[0].Position)
	if err != nil {
		return Reposition{}, err
	}
	return Reposition{TaskID: id, ParentID: task.ParentID, Position: pos}, nil
}

// Sequence returns n ascending position keys, used when rebuilding a
// sibling group to match an externally imposed order.
func Sequence(n int) ([]string, error) {
	keys := make([]string, 0, n)
	last := ""
	for i := 0; i < n; i++ {
		k, err := position.Between(last, "")
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		last = k
	}
	return keys, nil
}

func byID(tasks []model.Task, id string) (model.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
