package commands

import (
	"context"
	"fmt"

	"tabdash/internal/provider"
)

// resolveTask turns a task reference into a concrete task from the current
// view. Positional references index the same sorted order the tasks command
// prints, so the numbers on screen line up with what done/undone/rm act on.
func resolveTask(ctx context.Context, p provider.TaskProvider, ref TaskRef) (provider.EnrichedTask, error) {
	if err := ensureFresh(ctx, p, false); err != nil {
		return provider.EnrichedTask{}, err
	}
	tasks := p.Tasks()

	if ref.ID != "" {
		for _, t := range tasks {
			if t.ID == ref.ID {
				return t, nil
			}
		}
		return provider.EnrichedTask{}, fmt.Errorf("task not found: %s", ref.ID)
	}

	if ref.Index < 1 || ref.Index > len(tasks) {
		return provider.EnrichedTask{}, fmt.Errorf("task number out of range: %d", ref.Index)
	}
	return tasks[ref.Index-1], nil
}
