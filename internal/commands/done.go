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
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *DoneCmd) SetListName(name string) {
	c.listName = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "tasksync done [--list <list-name>] <ref>" }
func (c *DoneCmd) NeedsStore() bool  { return true }
func (c *DoneCmd) NeedsRemote() bool { return false }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	task, code, ok := resolveRefTask(ctx, rp, c.listName, args, errOut)
	if !ok {
		return code
	}

	if err := rp.ToggleTaskCompletionState(ctx, task.ID); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveRefTask runs the shared ref-to-task pipeline: parse the ref,
// pick the list, find the open task by number. On failure it prints the
// error and returns an exit code with ok=false.
func resolveRefTask(ctx context.Context, rp *repo.Repository, listName string, args []string, errOut io.Writer) (repo.TaskView, int, bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return repo.TaskView{}, exitcode.UserError, false
	}
	if ref.TaskNum < 1 {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.TaskNum)
		return repo.TaskView{}, exitcode.UserError, false
	}

	views, err := rp.TaskLists(ctx)
	if err != nil {
		return repo.TaskView{}, fail(errOut, err), false
	}
	list, code, ok := resolveTarget(views, listName, ref, errOut)
	if !ok {
		return repo.TaskView{}, code, false
	}

	task, err := findTaskByNumber(list, ref.TaskNum)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return repo.TaskView{}, exitcode.UserError, false
	}
	return task, exitcode.Success, true
}
