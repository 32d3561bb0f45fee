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
	Register(&RenameListCmd{})
}

// RenameListCmd implements the renamelist command.
type RenameListCmd struct{}

func (c *RenameListCmd) Name() string      { return "renamelist" }
func (c *RenameListCmd) Aliases() []string { return nil }
func (c *RenameListCmd) Synopsis() string  { return "Rename a list" }
func (c *RenameListCmd) Usage() string {
	return "tasksync renamelist [common flags] <list-name> <new-name...>"
}
func (c *RenameListCmd) NeedsStore() bool  { return true }
func (c *RenameListCmd) NeedsRemote() bool { return false }

func (c *RenameListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RenameListCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: list name and new name required")
		return exitcode.UserError
	}

	views, err := rp.TaskLists(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	list, err := resolveList(views, args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v: %s\n", err, args[0])
		return exitcode.UserError
	}

	newName := strings.Join(args[1:], " ")
	if err := rp.RenameTaskList(ctx, list.ID, newName); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
