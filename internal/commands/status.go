package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
	"tabdash/internal/session"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string         { return "status" }
func (c *StatusCmd) Aliases() []string    { return nil }
func (c *StatusCmd) Synopsis() string     { return "Show provider and session status" }
func (c *StatusCmd) Usage() string        { return "tabdash status" }
func (c *StatusCmd) NeedsProviders() bool { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "provider: %s\n", cfg.Provider)

	switch {
	case svc.Session == nil:
		fmt.Fprintln(out, "google: not configured")
	case svc.Session.Status() == session.StatusAuthenticated:
		fmt.Fprintf(out, "google: signed in as %s\n", svc.Session.Email())
	default:
		fmt.Fprintf(out, "google: %s\n", svc.Session.Status())
	}

	fmt.Fprintf(out, "tasks cache: %s\n", cacheWord(svc.Tasks.IsCacheStale()))
	if svc.Events != nil {
		fmt.Fprintf(out, "events cache: %s\n", cacheWord(svc.Events.IsCacheStale()))
	}
	return exitcode.Success
}

func cacheWord(stale bool) string {
	if stale {
		return "stale"
	}
	return "fresh"
}
