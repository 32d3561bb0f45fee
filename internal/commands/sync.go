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
	Register(&SyncCmd{})
}

// SyncCmd runs one reconciliation pass against the remote service.
type SyncCmd struct{}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return nil }
func (c *SyncCmd) Synopsis() string  { return "Push local changes and pull remote state" }
func (c *SyncCmd) Usage() string     { return "tasksync sync [common flags]" }
func (c *SyncCmd) NeedsStore() bool  { return true }
func (c *SyncCmd) NeedsRemote() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	if err := rp.Sync(ctx); err != nil {
		// Partial progress is kept; the next pass retries the rest.
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
