package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tabdash/internal/config"
	"tabdash/internal/exitcode"
	"tabdash/internal/output"
)

func init() {
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command. Running tabdash with no arguments
// dispatches here.
type TasksCmd struct {
	refresh bool
}

func (c *TasksCmd) Name() string         { return "tasks" }
func (c *TasksCmd) Aliases() []string    { return []string{"ls", "list"} }
func (c *TasksCmd) Synopsis() string     { return "List tasks" }
func (c *TasksCmd) Usage() string        { return "tabdash tasks [--refresh]" }
func (c *TasksCmd) NeedsProviders() bool { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.refresh, "refresh", false, "")
}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	if err := ensureFresh(ctx, svc.Tasks, c.refresh); err != nil {
		return fail(errOut, err)
	}

	tasks := svc.Tasks.Tasks()
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	output.RenderTasks(out, tasks, clockNow())
	return exitcode.Success
}
