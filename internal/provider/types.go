// Package provider defines the polymorphic contract every task/event backend
// implements, together with the cache-staleness and sort/enrichment engines
// shared by all of them.
package provider

import "time"

// Due is a backend-native due specification. Date is either a date-only
// value ("2025-12-15") or a date-time value ("2025-12-15T18:30:00").
type Due struct {
	Date string `json:"date"`
}

// RawTask is a backend-native task record. Raw tasks are persisted in
// snapshots and never handed to callers directly; reads go through
// enrichment first.
type RawTask struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Checked     bool       `json:"checked"`
	CompletedAt *time.Time `json:"completed_at"`
	Due         *Due       `json:"due"`
	ProjectID   string     `json:"project_id"`
	Labels      []string   `json:"labels"`
	ChildOrder  int        `json:"child_order"`

	// IsDeleted soft-deletes a task. Only the local backend sets it.
	IsDeleted bool `json:"is_deleted,omitempty"`
}

// EnrichedTask is the display-ready shape derived from a RawTask plus the
// provider's lookup tables. Enriched tasks are recomputed on every read and
// never persisted.
type EnrichedTask struct {
	RawTask

	ProjectName string
	LabelNames  []string

	// DueDate is the parsed due instant. Date-only values are normalized
	// to 23:59:59 local time.
	DueDate *time.Time

	// HasTime reports whether the due value carried an explicit time.
	HasTime bool
}

// Event is a display-ready calendar event.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	MeetLink    string `json:"meet_link"`
	Permalink   string `json:"permalink"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`

	// IsPast and IsOngoing are evaluated against read time, not sync time.
	IsPast    bool `json:"-"`
	IsOngoing bool `json:"-"`

	CalendarName string `json:"calendar_name"`
	Color        string `json:"color"`
}
