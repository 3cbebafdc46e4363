// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"tabdash/internal/config"
	"tabdash/internal/errs"
	"tabdash/internal/exitcode"
	"tabdash/internal/provider"
	"tabdash/internal/session"
)

// Services bundles the backends the dispatcher constructs for commands.
// Events and Session may be nil when the Google client is not configured.
type Services struct {
	Tasks   provider.TaskProvider
	Events  provider.EventProvider
	Session *session.Manager
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsProviders reports whether the dispatcher must construct the
	// backends before running the command. Commands like help and version
	// return false.
	NeedsProviders() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// svc is nil if NeedsProviders() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int
}

// fail prints err and maps its taxonomy kind to an exit code.
func fail(errOut io.Writer, err error) int {
	switch errs.KindOf(err) {
	case errs.KindAuth:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errs.KindValidation:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errs.KindRateLimit:
		fmt.Fprintf(errOut, "error: rate limited: %v\n", err)
		if wait := errs.RetryAfterOf(err); wait > 0 {
			fmt.Fprintf(errOut, "retry after %s\n", wait)
		}
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// freshener is the cache-facing subset shared by task and event providers.
type freshener interface {
	Sync(ctx context.Context) error
	IsCacheStale() bool
	InvalidateCache()
}

// ensureFresh syncs when the snapshot is stale, or unconditionally when
// refresh forces it.
func ensureFresh(ctx context.Context, p freshener, refresh bool) error {
	if refresh {
		p.InvalidateCache()
	}
	if !p.IsCacheStale() {
		return nil
	}
	return p.Sync(ctx)
}

// clockNow is the commands' clock.
var clockNow = time.Now
