package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/model"
	"tasksync/internal/repo"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd prints the signed-in account and what is waiting to sync.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show account and pending changes" }
func (c *StatusCmd) Usage() string     { return "tasksync status [common flags]" }
func (c *StatusCmd) NeedsStore() bool  { return true }
func (c *StatusCmd) NeedsRemote() bool { return false }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	user, err := rp.SignedInUser(ctx)
	switch {
	case errors.Is(err, model.ErrNotFound):
		fmt.Fprintln(out, "account: not signed in")
	case err != nil:
		return fail(errOut, err)
	default:
		fmt.Fprintf(out, "account: %s\n", user.Email)
	}

	pending, err := rp.PendingChanges(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintf(out, "pending changes: %d\n", pending)
	fmt.Fprintf(out, "database: %s\n", cfg.DBPath())
	return exitcode.Success
}
