package provider

import (
	"slices"
	"strings"
	"time"
)

// TodayBounds computes the local-time window used for today's event
// queries: midnight through 23:59:59.999.
func TodayBounds(now time.Time) (timeMin, timeMax time.Time) {
	y, m, d := now.Date()
	timeMin = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	timeMax = time.Date(y, m, d, 23, 59, 59, 999_000_000, now.Location())
	return timeMin, timeMax
}

// DecorateEvent fills the read-time flags of an event relative to now.
func DecorateEvent(e Event, now time.Time) Event {
	e.IsPast = e.End.Before(now)
	e.IsOngoing = !e.Start.After(now) && now.Before(e.End)
	return e
}

// SortEvents orders events by start time, earliest first, falling back to
// title for identical starts so the order is deterministic.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
}
