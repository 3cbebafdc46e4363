package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
	"tabdash/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string         { return "login" }
func (c *LoginCmd) Aliases() []string    { return nil }
func (c *LoginCmd) Synopsis() string     { return "Sign in to Google" }
func (c *LoginCmd) Usage() string        { return "tabdash login [common flags]" }
func (c *LoginCmd) NeedsProviders() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if svc.Session == nil {
		fmt.Fprintln(errOut, "error: no Google client configured")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Set google.client_id in config.toml (or GOOGLE_CLIENT_ID) to an")
		fmt.Fprintln(errOut, "OAuth client from https://console.cloud.google.com/apis/credentials,")
		fmt.Fprintln(errOut, "then run 'tabdash login' again.")
		return exitcode.AuthError
	}

	if svc.Session.IsSignedIn() {
		if !cfg.Quiet {
			fmt.Fprintf(out, "already signed in as %s\n", svc.Session.Email())
		}
		return exitcode.Success
	}

	if err := svc.Session.SignIn(ctx); err != nil {
		if errors.Is(err, session.ErrCancelled) {
			fmt.Fprintln(errOut, "error: sign-in cancelled")
			return exitcode.AuthError
		}
		fmt.Fprintf(errOut, "error: sign-in failed: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "signed in as %s\n", svc.Session.Email())
	}
	return exitcode.Success
}
