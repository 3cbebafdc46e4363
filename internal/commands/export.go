package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
	"tabdash/internal/ics"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command, writing today's events as
// iCalendar.
type ExportCmd struct {
	outputPath string
}

func (c *ExportCmd) Name() string         { return "export" }
func (c *ExportCmd) Aliases() []string    { return nil }
func (c *ExportCmd) Synopsis() string     { return "Export today's events as iCalendar" }
func (c *ExportCmd) Usage() string        { return "tabdash export [--output <file>]" }
func (c *ExportCmd) NeedsProviders() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.outputPath, "output", "", "")
	fs.StringVar(&c.outputPath, "o", "", "")
}

func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if svc.Events == nil {
		fmt.Fprintln(errOut, "error: calendar not configured (set google.client_id and run: tabdash login)")
		return exitcode.AuthError
	}

	if err := ensureFresh(ctx, svc.Events, false); err != nil {
		return fail(errOut, err)
	}

	dest := out
	if c.outputPath != "" && c.outputPath != "-" {
		f, err := os.Create(c.outputPath)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		dest = f
	}

	if err := ics.WriteEvents(dest, svc.Events.Events(), clockNow()); err != nil {
		fmt.Fprintf(errOut, "error: failed to write calendar: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet && dest != out {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
