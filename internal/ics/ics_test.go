package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tabdash/internal/provider"
)

func TestWriteEvents(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	events := []provider.Event{
		{
			ID:          "evt-1",
			Title:       "Standup",
			Description: "Daily sync",
			Location:    "Room 4",
			MeetLink:    "https://meet.google.com/abc-defg-hij",
			Start:       start,
			End:         start.Add(30 * time.Minute),
		},
		{
			ID:    "evt-2",
			Title: "Lunch",
			Start: start.Add(3 * time.Hour),
			End:   start.Add(4 * time.Hour),
		},
	}

	var buf bytes.Buffer
	if err := WriteEvents(&buf, events, now); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//tabdash//EN",
		"BEGIN:VEVENT",
		"UID:evt-1",
		"SUMMARY:Standup",
		"DESCRIPTION:Daily sync",
		"LOCATION:Room 4",
		"UID:evt-2",
		"SUMMARY:Lunch",
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}

	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("expected 2 events, found %d", got)
	}
	if !strings.Contains(out, "URL:") {
		t.Error("expected meet link to be emitted as URL")
	}
}

func TestWriteEvents_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvents(&buf, nil, time.Now()); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("expected an empty calendar, got:\n%s", out)
	}
}
