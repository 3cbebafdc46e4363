package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
)

func init() {
	Register(&SyncCmd{})
}

// SyncCmd implements the sync command: force a refresh of every configured
// backend, concurrently.
type SyncCmd struct{}

func (c *SyncCmd) Name() string         { return "sync" }
func (c *SyncCmd) Aliases() []string    { return nil }
func (c *SyncCmd) Synopsis() string     { return "Refresh all backends" }
func (c *SyncCmd) Usage() string        { return "tabdash sync" }
func (c *SyncCmd) NeedsProviders() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	svc.Tasks.InvalidateCache()
	if svc.Events != nil {
		svc.Events.InvalidateCache()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Tasks.Sync(gctx) })
	if svc.Events != nil {
		g.Go(func() error { return svc.Events.Sync(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
