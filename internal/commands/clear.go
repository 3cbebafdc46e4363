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
	Register(&ClearCmd{})
}

// ClearCmd implements the clear command, dropping cached provider snapshots.
// The local provider keeps its data: its storage is the source of truth.
type ClearCmd struct{}

func (c *ClearCmd) Name() string         { return "clear" }
func (c *ClearCmd) Aliases() []string    { return nil }
func (c *ClearCmd) Synopsis() string     { return "Drop cached provider data" }
func (c *ClearCmd) Usage() string        { return "tabdash clear" }
func (c *ClearCmd) NeedsProviders() bool { return true }

func (c *ClearCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if err := svc.Tasks.ClearLocalData(ctx); err != nil {
		return fail(errOut, err)
	}
	if svc.Events != nil {
		if err := svc.Events.ClearLocalData(ctx); err != nil {
			return fail(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
