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
	Register(&MoveCmd{})
}

// MoveCmd moves a task (and its subtasks) to another list.
type MoveCmd struct {
	listName string
	target   string
	newList  string
}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task to another list" }
func (c *MoveCmd) Usage() string {
	return "tasksync move [--list <list-name>] --to <list-name>|--to-new <list-name> <ref>"
}
func (c *MoveCmd) NeedsStore() bool  { return true }
func (c *MoveCmd) NeedsRemote() bool { return false }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.StringVar(&c.target, "to", "", "")
	fs.StringVar(&c.newList, "to-new", "", "")
}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	if (c.target == "") == (c.newList == "") {
		fmt.Fprintln(errOut, "error: exactly one of --to and --to-new required")
		return exitcode.UserError
	}

	task, code, ok := resolveRefTask(ctx, rp, c.listName, args, errOut)
	if !ok {
		return code
	}

	if c.newList != "" {
		if _, err := rp.MoveToNewList(ctx, task.ID, c.newList); err != nil {
			return fail(errOut, err)
		}
	} else {
		views, err := rp.TaskLists(ctx)
		if err != nil {
			return fail(errOut, err)
		}
		target, err := resolveList(views, c.target)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v: %s\n", err, c.target)
			return exitcode.UserError
		}
		if err := rp.MoveToList(ctx, task.ID, target.ID); err != nil {
			return fail(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
