package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
	"tabdash/internal/output"
)

func init() {
	Register(&EventsCmd{})
}

// EventsCmd implements the events command.
type EventsCmd struct {
	refresh bool
}

func (c *EventsCmd) Name() string         { return "events" }
func (c *EventsCmd) Aliases() []string    { return []string{"agenda"} }
func (c *EventsCmd) Synopsis() string     { return "List today's calendar events" }
func (c *EventsCmd) Usage() string        { return "tabdash events [--refresh]" }
func (c *EventsCmd) NeedsProviders() bool { return true }

func (c *EventsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.refresh, "refresh", false, "")
}

func (c *EventsCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if svc.Events == nil {
		fmt.Fprintln(errOut, "error: calendar not configured (set google.client_id and run: tabdash login)")
		return exitcode.AuthError
	}

	if err := ensureFresh(ctx, svc.Events, c.refresh); err != nil {
		return fail(errOut, err)
	}

	events := svc.Events.Events()
	if len(events) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no events today")
		}
		return exitcode.Success
	}

	output.RenderEvents(out, events)
	return exitcode.Success
}
