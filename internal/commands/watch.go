package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: keep the snapshots fresh on a cron
// schedule until interrupted.
type WatchCmd struct {
	schedule string
}

func (c *WatchCmd) Name() string         { return "watch" }
func (c *WatchCmd) Aliases() []string    { return nil }
func (c *WatchCmd) Synopsis() string     { return "Periodically refresh all backends" }
func (c *WatchCmd) Usage() string        { return `tabdash watch [--schedule "*/5 * * * *"]` }
func (c *WatchCmd) NeedsProviders() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.schedule, "schedule", "*/5 * * * *", "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	runOnce := func() {
		svc.Tasks.InvalidateCache()
		if err := svc.Tasks.Sync(ctx); err != nil {
			fmt.Fprintf(errOut, "sync failed: %v\n", err)
		} else if !cfg.Quiet {
			fmt.Fprintf(out, "synced %d tasks\n", len(svc.Tasks.Tasks()))
		}
		if svc.Events != nil {
			svc.Events.InvalidateCache()
			if err := svc.Events.Sync(ctx); err != nil {
				fmt.Fprintf(errOut, "event sync failed: %v\n", err)
			} else if !cfg.Quiet {
				fmt.Fprintf(out, "synced %d events\n", len(svc.Events.Events()))
			}
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(c.schedule, runOnce); err != nil {
		fmt.Fprintf(errOut, "error: invalid schedule %q: %v\n", c.schedule, err)
		return exitcode.UserError
	}

	runOnce()
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return exitcode.Success
}
