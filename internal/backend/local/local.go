// Package local implements the storage-backed task provider. Unlike the
// remote backends its storage is the source of truth, not a cache: the
// snapshot is always fresh and ClearLocalData is a deliberate no-op.
package local

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
)

// DataKey is the persisted snapshot key.
const DataKey = "local_tasks"

type data struct {
	Items []provider.RawTask `json:"items"`
}

// Provider is the local task backend.
type Provider struct {
	store  kvstore.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	data   data
	loaded bool
}

// New creates a local provider. Data loads lazily on first use.
func New(store kvstore.Store, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{store: store, logger: logger, now: time.Now}
}

// SetClock replaces the clock for tests.
func (p *Provider) SetClock(now func() time.Time) { p.now = now }

// load reads the snapshot once. Corrupted stored data degrades to an empty
// snapshot: the durable store is allowed to be corrupt but reads must still
// work.
func (p *Provider) load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	stored, err := kvstore.Get(ctx, p.store, DataKey, data{})
	if err != nil {
		p.logger.Error("failed to load local tasks, using empty state", "error", err)
		stored = data{}
	}
	p.data = stored
	p.loaded = true
	return nil
}

func (p *Provider) save(ctx context.Context) error {
	return p.store.Set(ctx, DataKey, p.data)
}

// Sync implements provider.TaskProvider. The local backend has nothing to
// fetch; sync only ensures the snapshot is loaded.
func (p *Provider) Sync(ctx context.Context) error {
	return p.load(ctx)
}

// Tasks implements provider.TaskProvider.
func (p *Provider) Tasks() []provider.EnrichedTask {
	p.mu.Lock()
	items := slices.Clone(p.data.Items)
	p.mu.Unlock()

	now := p.now()
	tasks := make([]provider.EnrichedTask, 0, len(items))
	for _, item := range items {
		if !provider.Visible(item, now) {
			continue
		}
		tasks = append(tasks, provider.Enrich(item, "", nil))
	}
	provider.SortTasks(tasks)
	return tasks
}

// AddTask implements provider.TaskProvider.
func (p *Provider) AddTask(ctx context.Context, content, due string) error {
	if err := p.load(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var taskDue *provider.Due
	if due != "" {
		taskDue = &provider.Due{Date: due}
	}
	p.data.Items = append(p.data.Items, provider.RawTask{
		ID:         uuid.NewString(),
		Content:    content,
		Due:        taskDue,
		Labels:     []string{},
		ChildOrder: len(p.data.Items),
	})
	return p.save(ctx)
}

// CompleteTask implements provider.TaskProvider.
func (p *Provider) CompleteTask(ctx context.Context, taskID string) error {
	return p.update(ctx, taskID, func(t *provider.RawTask) {
		t.Checked = true
		completedAt := p.now()
		t.CompletedAt = &completedAt
	})
}

// UncompleteTask implements provider.TaskProvider.
func (p *Provider) UncompleteTask(ctx context.Context, taskID string) error {
	return p.update(ctx, taskID, func(t *provider.RawTask) {
		t.Checked = false
		t.CompletedAt = nil
	})
}

// DeleteTask implements provider.TaskProvider.
func (p *Provider) DeleteTask(ctx context.Context, taskID string) error {
	if err := p.load(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, item := range p.data.Items {
		if item.ID == taskID {
			p.data.Items = append(p.data.Items[:i], p.data.Items[i+1:]...)
			return p.save(ctx)
		}
	}
	return nil
}

func (p *Provider) update(ctx context.Context, taskID string, fn func(*provider.RawTask)) error {
	if err := p.load(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.data.Items {
		if p.data.Items[i].ID == taskID {
			fn(&p.data.Items[i])
			return p.save(ctx)
		}
	}
	return nil
}

// IsCacheStale implements provider.TaskProvider. Local storage is the
// source of truth, never a stale cache.
func (p *Provider) IsCacheStale() bool { return false }

// InvalidateCache implements provider.TaskProvider. No-op.
func (p *Provider) InvalidateCache() {}

// ClearLocalData implements provider.TaskProvider. Deliberate no-op:
// clearing would destroy the user's only copy of their tasks, which is not
// equivalent to dropping a cache.
func (p *Provider) ClearLocalData(ctx context.Context) error { return nil }
