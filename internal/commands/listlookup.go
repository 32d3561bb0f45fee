package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/exitcode"
	"tasksync/internal/repo"
)

var (
	errListNotFound  = errors.New("list not found")
	errAmbiguousList = errors.New("ambiguous list name")
	errNoLists       = errors.New("no lists")
)

// resolveList finds a list by name: case-insensitive exact match first,
// then unique prefix match.
func resolveList(views []repo.TaskListView, name string) (repo.TaskListView, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	var prefix []repo.TaskListView
	for _, v := range views {
		title := strings.ToLower(v.Title)
		if title == name {
			return v, nil
		}
		if strings.HasPrefix(title, name) {
			prefix = append(prefix, v)
		}
	}
	switch len(prefix) {
	case 0:
		return repo.TaskListView{}, errListNotFound
	case 1:
		return prefix[0], nil
	default:
		return repo.TaskListView{}, errAmbiguousList
	}
}

// defaultList returns the list marked default by the remote, or the
// first list when none is marked yet (e.g. before the first sync).
func defaultList(views []repo.TaskListView) (repo.TaskListView, error) {
	for _, v := range views {
		if v.Default {
			return v, nil
		}
	}
	if len(views) == 0 {
		return repo.TaskListView{}, errNoLists
	}
	return views[0], nil
}

// openTasks returns the list's incomplete tasks in display order. Task
// numbers in refs are 1-based indexes into this slice.
func openTasks(v repo.TaskListView) []repo.TaskView {
	var out []repo.TaskView
	for _, t := range v.Tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// resolveTarget picks the list a command operates on: --list name,
// list letter from the ref, or the default list. On failure it prints
// the error and returns an exit code with ok=false.
func resolveTarget(views []repo.TaskListView, listName string, ref TaskRef, errOut io.Writer) (repo.TaskListView, int, bool) {
	if listName != "" && ref.HasLetter {
		fmt.Fprintln(errOut, "error: cannot use both --list and list letter")
		return repo.TaskListView{}, exitcode.UserError, false
	}

	var list repo.TaskListView
	var err error
	switch {
	case listName != "":
		list, err = resolveList(views, listName)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v: %s\n", err, listName)
			return repo.TaskListView{}, exitcode.UserError, false
		}
	case ref.HasLetter:
		list, err = resolveListByLetter(views, ref.Letter)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return repo.TaskListView{}, exitcode.UserError, false
		}
	default:
		list, err = defaultList(views)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return repo.TaskListView{}, exitcode.UserError, false
		}
	}
	return list, exitcode.Success, true
}
