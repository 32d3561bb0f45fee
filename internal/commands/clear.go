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
	Register(&ClearCmd{})
}

// ClearCmd deletes every completed task of a list.
type ClearCmd struct {
	listName string
}

func (c *ClearCmd) Name() string      { return "clear" }
func (c *ClearCmd) Aliases() []string { return nil }
func (c *ClearCmd) Synopsis() string  { return "Delete completed tasks" }
func (c *ClearCmd) Usage() string     { return "tasksync clear [--list <list-name>]" }
func (c *ClearCmd) NeedsStore() bool  { return true }
func (c *ClearCmd) NeedsRemote() bool { return false }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	views, err := rp.TaskLists(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	list, code, ok := resolveTarget(views, c.listName, TaskRef{}, errOut)
	if !ok {
		return code
	}

	if err := rp.ClearTaskListCompletedTasks(ctx, list.ID); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
