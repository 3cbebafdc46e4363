package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string         { return "help" }
func (c *HelpCmd) Aliases() []string    { return nil }
func (c *HelpCmd) Synopsis() string     { return "Print usage" }
func (c *HelpCmd) Usage() string        { return "tabdash help" }
func (c *HelpCmd) NeedsProviders() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tabdash                                    List tasks
  tabdash tasks [common flags] [--refresh]   List tasks
  tabdash add [common flags] [--due <date>] <content...>
  tabdash done [common flags] <ref>          Mark a task completed
  tabdash undone [common flags] <ref>        Revert a completion
  tabdash rm [common flags] <ref>            Delete a task
  tabdash events [common flags] [--refresh]  List today's calendar events
  tabdash meet [common flags]                Create an instant Google Meet link
  tabdash sync [common flags]                Refresh all backends
  tabdash watch [common flags] [--schedule <cron>]
  tabdash export [common flags] [--output <file>]
  tabdash status [common flags]
  tabdash clear [common flags]               Drop cached provider data
  tabdash login [common flags]
  tabdash logout [common flags]
  tabdash help
  tabdash version

Task references are the numbers printed by 'tabdash tasks', or a task ID.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
