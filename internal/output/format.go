// Package output renders tasks and events for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tabdash/internal/provider"
)

var (
	checkedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	metaStyle    = lipgloss.NewStyle().Faint(true)
	ongoingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	pastStyle    = lipgloss.NewStyle().Faint(true)
)

// RenderTasks prints numbered task lines in display order. The numbers are
// the positional references done/undone/rm accept.
func RenderTasks(w io.Writer, tasks []provider.EnrichedTask, now time.Time) {
	for i, t := range tasks {
		fmt.Fprintf(w, "%3d  %s\n", i+1, formatTask(t, now))
	}
}

func formatTask(t provider.EnrichedTask, now time.Time) string {
	box := "[ ]"
	title := normalizeTitle(t.Content)
	if t.Checked {
		box = "[x]"
		title = checkedStyle.Render(title)
	}

	parts := []string{box, title}

	if t.DueDate != nil {
		due := formatDue(*t.DueDate, t.HasTime)
		if !t.Checked && t.DueDate.Before(now) {
			due = overdueStyle.Render(due)
		} else {
			due = dueStyle.Render(due)
		}
		parts = append(parts, due)
	}

	if t.ProjectName != "" {
		parts = append(parts, metaStyle.Render("#"+t.ProjectName))
	}
	for _, label := range t.LabelNames {
		parts = append(parts, metaStyle.Render("@"+label))
	}

	return strings.Join(parts, "  ")
}

// formatDue renders a due instant. Date-only values show just the date; the
// normalized 23:59:59 placeholder time stays hidden.
func formatDue(due time.Time, hasTime bool) string {
	if hasTime {
		return due.Format("Jan 2 15:04")
	}
	return due.Format("Jan 2")
}

// RenderEvents prints today's events in start order.
func RenderEvents(w io.Writer, events []provider.Event) {
	for _, e := range events {
		fmt.Fprintln(w, formatEvent(e))
	}
}

func formatEvent(e provider.Event) string {
	span := "all day    "
	if !e.AllDay {
		span = e.Start.Format("15:04") + "-" + e.End.Format("15:04")
	}

	title := normalizeTitle(e.Title)
	line := span + "  " + title
	if e.CalendarName != "" {
		line += "  " + metaStyle.Render("("+e.CalendarName+")")
	}
	if e.MeetLink != "" {
		line += "  " + metaStyle.Render(e.MeetLink)
	}

	switch {
	case e.IsOngoing:
		return ongoingStyle.Render("> ") + line
	case e.IsPast:
		return pastStyle.Render("  " + line)
	default:
		return "  " + line
	}
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
