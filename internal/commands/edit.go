package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/repo"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Each provided flag updates one
// field; omitted fields are left alone.
type EditCmd struct {
	listName string
	title    string
	notes    string
	due      string

	titleSet bool
	notesSet bool
	dueSet   bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task's title, notes or due date" }
func (c *EditCmd) Usage() string {
	return "tasksync edit [--list <list-name>] [--title <text>] [--notes <text>] [--due <yyyy-mm-dd>] <ref>"
}
func (c *EditCmd) NeedsStore() bool  { return true }
func (c *EditCmd) NeedsRemote() bool { return false }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.Func("title", "", func(s string) error {
		c.title = s
		c.titleSet = true
		return nil
	})
	fs.Func("notes", "", func(s string) error {
		c.notes = s
		c.notesSet = true
		return nil
	})
	fs.Func("due", "", func(s string) error {
		c.due = s
		c.dueSet = true
		return nil
	})
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	if !c.titleSet && !c.notesSet && !c.dueSet {
		fmt.Fprintln(errOut, "error: nothing to edit (use --title, --notes or --due)")
		return exitcode.UserError
	}

	task, code, ok := resolveRefTask(ctx, rp, c.listName, args, errOut)
	if !ok {
		return code
	}

	if c.titleSet {
		if err := rp.UpdateTaskTitle(ctx, task.ID, c.title); err != nil {
			return fail(errOut, err)
		}
	}
	if c.notesSet {
		if err := rp.UpdateTaskNotes(ctx, task.ID, c.notes); err != nil {
			return fail(errOut, err)
		}
	}
	if c.dueSet {
		due, err := parseDueDate(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		if err := rp.UpdateTaskDueDate(ctx, task.ID, due); err != nil {
			return fail(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
