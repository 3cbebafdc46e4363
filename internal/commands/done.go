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
	Register(&DoneCmd{})
	Register(&UndoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string         { return "done" }
func (c *DoneCmd) Aliases() []string    { return nil }
func (c *DoneCmd) Synopsis() string     { return "Mark a task completed" }
func (c *DoneCmd) Usage() string        { return "tabdash done <ref>" }
func (c *DoneCmd) NeedsProviders() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, args, out, errOut, true)
}

// UndoneCmd implements the undone command, reverting a completion. Completed
// tasks stay listed for a short window, so their numbers remain actionable.
type UndoneCmd struct{}

func (c *UndoneCmd) Name() string         { return "undone" }
func (c *UndoneCmd) Aliases() []string    { return []string{"undo"} }
func (c *UndoneCmd) Synopsis() string     { return "Mark a task not completed" }
func (c *UndoneCmd) Usage() string        { return "tabdash undone <ref>" }
func (c *UndoneCmd) NeedsProviders() bool { return true }

func (c *UndoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoneCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	return runToggle(ctx, cfg, svc, args, out, errOut, false)
}

func runToggle(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer, complete bool) int {
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

	if complete {
		err = svc.Tasks.CompleteTask(ctx, task.ID)
	} else {
		err = svc.Tasks.UncompleteTask(ctx, task.ID)
	}
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
