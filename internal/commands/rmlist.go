package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/repo"
)

func init() {
	Register(&RmListCmd{})
}

// RmListCmd implements the rmlist command.
type RmListCmd struct {
	force bool
}

// SetForce sets the force flag (for testing).
func (c *RmListCmd) SetForce(force bool) {
	c.force = force
}

func (c *RmListCmd) Name() string      { return "rmlist" }
func (c *RmListCmd) Aliases() []string { return nil }
func (c *RmListCmd) Synopsis() string  { return "Delete a list" }
func (c *RmListCmd) Usage() string     { return "tasksync rmlist [--force] <list-name>" }
func (c *RmListCmd) NeedsStore() bool  { return true }
func (c *RmListCmd) NeedsRemote() bool { return false }

func (c *RmListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "")
}

func (c *RmListCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	views, err := rp.TaskLists(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	list, err := resolveList(views, name)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v: %s\n", err, name)
		return exitcode.UserError
	}

	if list.Default {
		fmt.Fprintln(errOut, "error: cannot delete default list")
		return exitcode.UserError
	}
	if !c.force && len(openTasks(list)) > 0 {
		fmt.Fprintln(errOut, "error: list not empty (use --force)")
		return exitcode.UserError
	}

	if err := rp.DeleteTaskList(ctx, list.ID); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
