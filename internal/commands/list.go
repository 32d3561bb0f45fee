package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/repo"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list <list-name>`.
type ListCmd struct{}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return nil }
func (c *ListCmd) Synopsis() string  { return "List open tasks" }
func (c *ListCmd) Usage() string     { return "tasksync list [common flags] <list-name>" }
func (c *ListCmd) NeedsStore() bool  { return true }
func (c *ListCmd) NeedsRemote() bool { return false }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	views, err := rp.TaskLists(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	if len(args) == 0 {
		return c.listAll(cfg, views, out, errOut)
	}
	return c.listOne(views, strings.Join(args, " "), out, errOut)
}

// listAll prints the default list's open tasks first, then every other
// non-empty list as a lettered section.
func (c *ListCmd) listAll(cfg *config.Config, views []repo.TaskListView, out, errOut io.Writer) int {
	hasAnyTasks := false

	def, err := defaultList(views)
	if err == nil {
		for i, t := range openTasks(def) {
			output.FormatTask(out, i+1, t)
			hasAnyTasks = true
		}
	}

	letter := 'a'
	for _, v := range views {
		if err == nil && v.ID == def.ID {
			continue
		}
		open := openTasks(v)
		if len(open) == 0 {
			continue
		}
		if letter > 'z' {
			fmt.Fprintln(errOut, "error: too many lists (max 26)")
			return exitcode.UserError
		}

		output.FormatListHeader(out, v.Title, false)
		for i, t := range open {
			output.FormatTaskRef(out, letter, i+1, t)
		}
		letter++
		hasAnyTasks = true
	}

	if !hasAnyTasks && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}

// listOne prints a single list section, even when empty.
func (c *ListCmd) listOne(views []repo.TaskListView, listName string, out, errOut io.Writer) int {
	listName = strings.TrimSpace(listName)
	if listName == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	list, err := resolveList(views, listName)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v: %s\n", err, listName)
		return exitcode.UserError
	}

	output.FormatListHeader(out, list.Title, list.Default)
	for i, t := range openTasks(list) {
		output.FormatTask(out, i+1, t)
	}
	return exitcode.Success
}
