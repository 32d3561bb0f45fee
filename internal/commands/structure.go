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
	Register(&IndentCmd{})
	Register(&UnindentCmd{})
	Register(&TopCmd{})
}

// IndentCmd nests a task under its predecessor.
type IndentCmd struct {
	listName string
}

func (c *IndentCmd) Name() string      { return "indent" }
func (c *IndentCmd) Aliases() []string { return nil }
func (c *IndentCmd) Synopsis() string  { return "Nest a task under the task above it" }
func (c *IndentCmd) Usage() string     { return "tasksync indent [--list <list-name>] <ref>" }
func (c *IndentCmd) NeedsStore() bool  { return true }
func (c *IndentCmd) NeedsRemote() bool { return false }

func (c *IndentCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *IndentCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	return runStructural(ctx, cfg, rp, c.listName, args, out, errOut, rp.IndentTask)
}

// UnindentCmd promotes a subtask to top level.
type UnindentCmd struct {
	listName string
}

func (c *UnindentCmd) Name() string      { return "unindent" }
func (c *UnindentCmd) Aliases() []string { return []string{"outdent"} }
func (c *UnindentCmd) Synopsis() string  { return "Promote a subtask to top level" }
func (c *UnindentCmd) Usage() string     { return "tasksync unindent [--list <list-name>] <ref>" }
func (c *UnindentCmd) NeedsStore() bool  { return true }
func (c *UnindentCmd) NeedsRemote() bool { return false }

func (c *UnindentCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *UnindentCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	return runStructural(ctx, cfg, rp, c.listName, args, out, errOut, rp.UnindentTask)
}

// TopCmd moves a task to the top of its sibling group.
type TopCmd struct {
	listName string
}

func (c *TopCmd) Name() string      { return "top" }
func (c *TopCmd) Aliases() []string { return nil }
func (c *TopCmd) Synopsis() string  { return "Move a task to the top of its group" }
func (c *TopCmd) Usage() string     { return "tasksync top [--list <list-name>] <ref>" }
func (c *TopCmd) NeedsStore() bool  { return true }
func (c *TopCmd) NeedsRemote() bool { return false }

func (c *TopCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *TopCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	return runStructural(ctx, cfg, rp, c.listName, args, out, errOut, rp.MoveToTop)
}

func runStructural(ctx context.Context, cfg *config.Config, rp *repo.Repository, listName string, args []string, out, errOut io.Writer, op func(context.Context, string) error) int {
	task, code, ok := resolveRefTask(ctx, rp, listName, args, errOut)
	if !ok {
		return code
	}

	if err := op(ctx, task.ID); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
