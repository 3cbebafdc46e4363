package provider

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// RecentCompletionWindow keeps freshly completed tasks visible so undo
// affordances remain meaningful.
const RecentCompletionWindow = 5 * time.Minute

// InboxProject is the default bucket name; tasks filed there sort as if
// they had no project.
const InboxProject = "Inbox"

// ParseDue parses a due specification. Date-only values land on 23:59:59
// local time with hasTime=false; date-time values are parsed as given with
// hasTime=true. A nil or unparseable due yields (nil, false).
func ParseDue(due *Due) (*time.Time, bool) {
	if due == nil || due.Date == "" {
		return nil, false
	}
	if strings.Contains(due.Date, "T") {
		if t, err := time.Parse(time.RFC3339, due.Date); err == nil {
			return &t, true
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", due.Date, time.Local); err == nil {
			return &t, true
		}
		return nil, false
	}
	d, err := time.ParseInLocation("2006-01-02", due.Date, time.Local)
	if err != nil {
		return nil, false
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.Local)
	return &t, false
}

// IsRecentlyCompleted reports whether completedAt falls inside the recency
// window ending at now.
func IsRecentlyCompleted(completedAt *time.Time, now time.Time) bool {
	if completedAt == nil {
		return false
	}
	return now.Sub(*completedAt) <= RecentCompletionWindow
}

// Visible applies the read-time visibility filter: not soft-deleted, and
// either unchecked or completed within the recency window.
func Visible(t RawTask, now time.Time) bool {
	if t.IsDeleted {
		return false
	}
	if !t.Checked {
		return true
	}
	return IsRecentlyCompleted(t.CompletedAt, now)
}

// Enrich derives the display-ready shape of a raw task using the provider's
// name lookups.
func Enrich(t RawTask, projectName string, labelNames []string) EnrichedTask {
	dueDate, hasTime := ParseDue(t.Due)
	return EnrichedTask{
		RawTask:     t,
		ProjectName: projectName,
		LabelNames:  labelNames,
		DueDate:     dueDate,
		HasTime:     hasTime,
	}
}

// SortTasks imposes the canonical ordering shared by all task providers:
// unchecked before checked; among checked, recent completions first; tasks
// with due dates before tasks without, earlier due first; among undated
// tasks, inbox before project; provider-native order as the stable fallback.
func SortTasks(tasks []EnrichedTask) {
	slices.SortStableFunc(tasks, compareTasks)
}

func compareTasks(a, b EnrichedTask) int {
	if a.Checked != b.Checked {
		if a.Checked {
			return 1
		}
		return -1
	}

	if a.Checked && a.CompletedAt != nil && b.CompletedAt != nil {
		if c := b.CompletedAt.Compare(*a.CompletedAt); c != 0 {
			return c
		}
	}

	if a.DueDate == nil && b.DueDate != nil {
		return 1
	}
	if a.DueDate != nil && b.DueDate == nil {
		return -1
	}
	if a.DueDate != nil && b.DueDate != nil {
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	}

	if a.DueDate == nil && b.DueDate == nil {
		aHasProject := a.ProjectID != "" && a.ProjectName != InboxProject
		bHasProject := b.ProjectID != "" && b.ProjectName != InboxProject
		if aHasProject != bHasProject {
			if aHasProject {
				return 1
			}
			return -1
		}
	}

	return cmp.Compare(a.ChildOrder, b.ChildOrder)
}
