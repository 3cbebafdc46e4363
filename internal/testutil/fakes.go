// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"tabdash/internal/provider"
)

// FakeTaskProvider is an in-memory provider.TaskProvider for command tests.
type FakeTaskProvider struct {
	mu    sync.Mutex
	tasks []provider.EnrichedTask

	// Stale controls IsCacheStale.
	Stale bool

	// SyncCalls counts Sync invocations.
	SyncCalls int

	// Error injection.
	SyncErr       error
	AddErr        error
	CompleteErr   error
	UncompleteErr error
	DeleteErr     error
	ClearErr      error

	// Mutation records.
	Added       []string
	Completed   []string
	Uncompleted []string
	Deleted     []string
}

// NewFakeTaskProvider creates a fake with the given task view.
func NewFakeTaskProvider(tasks ...provider.EnrichedTask) *FakeTaskProvider {
	return &FakeTaskProvider{tasks: tasks}
}

// SetTasks replaces the task view.
func (f *FakeTaskProvider) SetTasks(tasks []provider.EnrichedTask) {
	f.mu.Lock()
	f.tasks = tasks
	f.mu.Unlock()
}

func (f *FakeTaskProvider) Sync(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SyncCalls++
	if f.SyncErr != nil {
		return f.SyncErr
	}
	f.Stale = false
	return nil
}

func (f *FakeTaskProvider) Tasks() []provider.EnrichedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.EnrichedTask, len(f.tasks))
	copy(out, f.tasks)
	return out
}

func (f *FakeTaskProvider) AddTask(ctx context.Context, content, due string) error {
	if f.AddErr != nil {
		return f.AddErr
	}
	f.mu.Lock()
	f.Added = append(f.Added, content)
	f.mu.Unlock()
	return nil
}

func (f *FakeTaskProvider) CompleteTask(ctx context.Context, taskID string) error {
	if f.CompleteErr != nil {
		return f.CompleteErr
	}
	f.mu.Lock()
	f.Completed = append(f.Completed, taskID)
	f.mu.Unlock()
	return nil
}

func (f *FakeTaskProvider) UncompleteTask(ctx context.Context, taskID string) error {
	if f.UncompleteErr != nil {
		return f.UncompleteErr
	}
	f.mu.Lock()
	f.Uncompleted = append(f.Uncompleted, taskID)
	f.mu.Unlock()
	return nil
}

func (f *FakeTaskProvider) DeleteTask(ctx context.Context, taskID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	f.Deleted = append(f.Deleted, taskID)
	f.mu.Unlock()
	return nil
}

func (f *FakeTaskProvider) IsCacheStale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stale
}

func (f *FakeTaskProvider) InvalidateCache() {
	f.mu.Lock()
	f.Stale = true
	f.mu.Unlock()
}

func (f *FakeTaskProvider) ClearLocalData(ctx context.Context) error {
	return f.ClearErr
}

// FakeEventProvider is an in-memory provider.EventProvider for command tests.
type FakeEventProvider struct {
	mu     sync.Mutex
	events []provider.Event

	Stale     bool
	SyncCalls int

	// MeetLink is returned by CreateMeetLink.
	MeetLink string

	SyncErr  error
	MeetErr  error
	ClearErr error
}

// NewFakeEventProvider creates a fake with the given event view.
func NewFakeEventProvider(events ...provider.Event) *FakeEventProvider {
	return &FakeEventProvider{events: events}
}

func (f *FakeEventProvider) Sync(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SyncCalls++
	if f.SyncErr != nil {
		return f.SyncErr
	}
	f.Stale = false
	return nil
}

func (f *FakeEventProvider) Events() []provider.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *FakeEventProvider) CreateMeetLink(ctx context.Context) (string, error) {
	if f.MeetErr != nil {
		return "", f.MeetErr
	}
	return f.MeetLink, nil
}

func (f *FakeEventProvider) IsCacheStale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stale
}

func (f *FakeEventProvider) InvalidateCache() {
	f.mu.Lock()
	f.Stale = true
	f.mu.Unlock()
}

func (f *FakeEventProvider) ClearLocalData(ctx context.Context) error {
	return f.ClearErr
}
