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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string         { return "rm" }
func (c *RmCmd) Aliases() []string    { return []string{"delete"} }
func (c *RmCmd) Synopsis() string     { return "Delete a task" }
func (c *RmCmd) Usage() string        { return "tabdash rm <ref>" }
func (c *RmCmd) NeedsProviders() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		if err == ErrTaskRefRequired {
			fmt.Fprintln(errOut, "error: task reference required")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.UserError
	}

	task, err := resolveTask(ctx, svc.Tasks, ref)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "out of range") {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return fail(errOut, err)
	}

	if err := svc.Tasks.DeleteTask(ctx, task.ID); err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
