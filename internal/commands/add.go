package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due string
}

// SetDue sets the due value (for testing).
func (c *AddCmd) SetDue(due string) {
	c.due = due
}

func (c *AddCmd) Name() string         { return "add" }
func (c *AddCmd) Aliases() []string    { return []string{"create"} }
func (c *AddCmd) Synopsis() string     { return "Create a task" }
func (c *AddCmd) Usage() string        { return "tabdash add [--due <date>] <content...>" }
func (c *AddCmd) NeedsProviders() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.due, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: content required")
		return exitcode.UserError
	}
	content := strings.Join(args, " ")
	if strings.TrimSpace(content) == "" {
		fmt.Fprintln(errOut, "error: content required")
		return exitcode.UserError
	}

	if err := svc.Tasks.AddTask(ctx, content, c.due); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
