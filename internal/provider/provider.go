package provider

import "context"

// TaskProvider is the contract every task backend satisfies.
// Commands never import backend packages directly.
type TaskProvider interface {
	// Sync refreshes the in-memory snapshot from the backend and persists
	// it. A failure fetching one constituent collection is logged and
	// tolerated; a failure in a required enumeration rejects the sync.
	Sync(ctx context.Context) error

	// Tasks returns the enriched, filtered, sorted view of the last-synced
	// snapshot. It never fails and returns an empty slice before the first
	// load.
	Tasks() []EnrichedTask

	// AddTask creates a task. due is a date-only or date-time string, or
	// empty for no due date.
	AddTask(ctx context.Context, content, due string) error

	CompleteTask(ctx context.Context, taskID string) error
	UncompleteTask(ctx context.Context, taskID string) error
	DeleteTask(ctx context.Context, taskID string) error

	// IsCacheStale reports whether the snapshot is missing a timestamp or
	// older than the provider's TTL.
	IsCacheStale() bool

	// InvalidateCache forces the next staleness check to report stale.
	InvalidateCache()

	// ClearLocalData removes the provider's persisted snapshot. The local
	// backend treats this as a no-op: its storage is the user's only copy,
	// not a cache.
	ClearLocalData(ctx context.Context) error
}

// EventProvider is the contract of calendar-backed providers.
type EventProvider interface {
	Sync(ctx context.Context) error

	// Events returns today's events with IsPast/IsOngoing evaluated at
	// read time. Never fails; empty before the first load.
	Events() []Event

	// CreateMeetLink creates a throwaway conference event purely to
	// harvest a generated meeting link, then deletes it. A delete failure
	// is tolerated; the link is still returned.
	CreateMeetLink(ctx context.Context) (string, error)

	IsCacheStale() bool
	InvalidateCache()
	ClearLocalData(ctx context.Context) error
}
