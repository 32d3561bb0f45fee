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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasksync help" }
func (c *HelpCmd) NeedsStore() bool  { return false }
func (c *HelpCmd) NeedsRemote() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, rp *repo.Repository, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                           List all open tasks
  tasksync list [common flags] <list-name>           List tasks in a specific list
  tasksync add [common flags] [--list <list-name>] [--notes <text>] [--due <yyyy-mm-dd>] <title...>
  tasksync edit [common flags] [--list <list-name>] [--title <text>] [--notes <text>] [--due <yyyy-mm-dd>] <ref>
  tasksync done [common flags] [--list <list-name>] <ref>
  tasksync rm [common flags] [--list <list-name>] <ref>
  tasksync indent [common flags] [--list <list-name>] <ref>
  tasksync unindent [common flags] [--list <list-name>] <ref>
  tasksync top [common flags] [--list <list-name>] <ref>
  tasksync move [common flags] [--list <list-name>] --to <list-name>|--to-new <list-name> <ref>
  tasksync clear [common flags] [--list <list-name>]
  tasksync lists [common flags]
  tasksync createlist [common flags] <list-name>
  tasksync renamelist [common flags] <list-name> <new-name...>
  tasksync rmlist [common flags] [--force] <list-name>
  tasksync sync [common flags]
  tasksync status [common flags]
  tasksync login [common flags] [--account <email>]
  tasksync logout [common flags]
  tasksync help
  tasksync version

Changes apply locally first; run sync to reconcile with Google Tasks.
A <ref> is a task number from the list output, optionally prefixed with
the section letter (e.g. 2, a1, b 3).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
