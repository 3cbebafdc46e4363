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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command. Local sign-out always succeeds;
// remote revocation is best-effort inside the session manager.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string         { return "logout" }
func (c *LogoutCmd) Aliases() []string    { return nil }
func (c *LogoutCmd) Synopsis() string     { return "Sign out and clear cached Google data" }
func (c *LogoutCmd) Usage() string        { return "tabdash logout [common flags]" }
func (c *LogoutCmd) NeedsProviders() bool { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if svc.Session == nil || !svc.Session.IsSignedIn() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not signed in")
		}
		return exitcode.Success
	}

	if err := svc.Session.SignOut(ctx); err != nil {
		fmt.Fprintf(errOut, "error: failed to sign out: %v\n", err)
		return exitcode.AuthError
	}

	if svc.Events != nil {
		if err := svc.Events.ClearLocalData(ctx); err != nil {
			fmt.Fprintf(errOut, "warning: failed to clear cached events: %v\n", err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
