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
	Register(&MeetCmd{})
}

// MeetCmd implements the meet command: mint an instant Google Meet link and
// print it.
type MeetCmd struct{}

func (c *MeetCmd) Name() string         { return "meet" }
func (c *MeetCmd) Aliases() []string    { return nil }
func (c *MeetCmd) Synopsis() string     { return "Create an instant Google Meet link" }
func (c *MeetCmd) Usage() string        { return "tabdash meet" }
func (c *MeetCmd) NeedsProviders() bool { return true }

func (c *MeetCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MeetCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if svc.Events == nil {
		fmt.Fprintln(errOut, "error: calendar not configured (set google.client_id and run: tabdash login)")
		return exitcode.AuthError
	}

	link, err := svc.Events.CreateMeetLink(ctx)
	if err != nil {
		return fail(errOut, err)
	}

	fmt.Fprintln(out, link)
	return exitcode.Success
}
