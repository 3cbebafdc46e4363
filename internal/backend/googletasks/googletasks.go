// Package googletasks implements the Google Tasks backend. Sync enumerates
// the user's tasklists, then fetches each list concurrently; a failed list
// is logged and skipped while the remaining lists still land in the
// snapshot.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
	"tabdash/internal/session"
)

const (
	// DataKey is the persisted snapshot key.
	DataKey = "google_tasks_data"

	// DefaultListKey stores the tasklist id mutations target.
	DefaultListKey = "google_tasks_default_list"

	// fallbackList is the API alias for the user's primary tasklist.
	fallbackList = "@default"

	maxResults = 100

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Tasklist is a snapshot reference to a remote tasklist.
type Tasklist struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Item is a snapshot task together with the tasklist it came from.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Due         string     `json:"due,omitempty"` // date only, 2006-01-02
	Order       int        `json:"order"`
	Deleted     bool       `json:"deleted,omitempty"`
	TasklistID  string     `json:"tasklist_id"`
}

type snapshot struct {
	Tasklists []Tasklist `json:"tasklists"`
	Items     []Item     `json:"items"`
	Timestamp int64      `json:"timestamp"`
}

// Provider is the Google Tasks backend.
type Provider struct {
	svc      *tasks.Service
	session  *session.Manager
	store    kvstore.Store
	settings kvstore.Store
	logger   *slog.Logger
	cache    *provider.Cache
	now      func() time.Time

	mu     sync.Mutex
	data   snapshot
	loaded bool
}

// New creates a Google Tasks provider whose API calls authenticate through
// the session manager. store holds the snapshot and must come from the
// local area so full syncs fit; settings holds the default-list choice and
// may be the small synced area (nil falls back to store). Extra client
// options let tests point the service at a local server.
func New(ctx context.Context, sess *session.Manager, store, settings kvstore.Store, logger *slog.Logger, extra ...option.ClientOption) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = store
	}
	opts := append([]option.ClientOption{option.WithTokenSource(sess.TokenSource(ctx))}, extra...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}
	return &Provider{
		svc:      svc,
		session:  sess,
		store:    store,
		settings: settings,
		logger:   logger,
		cache:    provider.NewCache(provider.SnapshotTTL),
		now:      time.Now,
	}, nil
}

// SetClock replaces the clock for tests, including the cache clock.
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
	p.cache.SetClock(now)
}

func (p *Provider) restore(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return
	}
	p.loaded = true
	stored, err := kvstore.Get(ctx, p.store, DataKey, snapshot{})
	if err != nil {
		p.logger.Error("failed to restore google tasks snapshot, starting empty", "error", err)
		return
	}
	p.data = stored
	p.cache.Restore(stored.Timestamp)
}

// Sync implements provider.TaskProvider. Tasklist enumeration failure is
// fatal; per-list fetch failures are tolerated so one broken list cannot
// blank the whole snapshot.
func (p *Provider) Sync(ctx context.Context) error {
	p.restore(ctx)

	const op = "google tasks: list tasklists"
	lists, err := p.svc.Tasklists.List().MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return classify(op, err)
	}

	tasklists := make([]Tasklist, 0, len(lists.Items))
	for _, l := range lists.Items {
		tasklists = append(tasklists, Tasklist{ID: l.Id, Title: l.Title})
	}

	var wg sync.WaitGroup
	results := make([][]Item, len(tasklists))
	for i, list := range tasklists {
		wg.Add(1)
		go func(i int, list Tasklist) {
			defer wg.Done()
			fetched, err := p.fetchList(ctx, list)
			if err != nil {
				p.logger.Warn("skipping tasklist after fetch failure",
					"tasklist", list.Title, "error", err)
				return
			}
			results[i] = fetched
		}(i, list)
	}
	wg.Wait()

	// Order ranks tasks across all lists, in tasklist order, so undated
	// tasks from one list never interleave with another list's.
	var items []Item
	for _, fetched := range results {
		for _, item := range fetched {
			item.Order = len(items)
			items = append(items, item)
		}
	}

	syncedAt := p.now()
	fresh := snapshot{Tasklists: tasklists, Items: items, Timestamp: syncedAt.UnixMilli()}

	p.mu.Lock()
	p.data = fresh
	p.mu.Unlock()

	if err := p.store.Set(ctx, DataKey, fresh); err != nil {
		return errs.Wrap("google tasks: persist snapshot", err)
	}
	p.cache.Touch(syncedAt)
	p.logger.Debug("google tasks sync complete", "tasklists", len(tasklists), "tasks", len(items))
	return nil
}

func (p *Provider) fetchList(ctx context.Context, list Tasklist) ([]Item, error) {
	op := "google tasks: list tasks in " + list.Title
	resp, err := p.svc.Tasks.List(list.ID).
		ShowCompleted(true).
		ShowHidden(true).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(op, err)
	}

	items := make([]Item, 0, len(resp.Items))
	for _, t := range resp.Items {
		item := Item{
			ID:         t.Id,
			Title:      t.Title,
			Notes:      t.Notes,
			Completed:  t.Status == statusCompleted,
			Due:        dateOnly(t.Due),
			Deleted:    t.Deleted,
			TasklistID: list.ID,
		}
		if t.Completed != nil {
			if at, err := time.Parse(time.RFC3339, *t.Completed); err == nil {
				item.CompletedAt = &at
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Tasks implements provider.TaskProvider.
func (p *Provider) Tasks() []provider.EnrichedTask {
	p.mu.Lock()
	data := p.data
	p.mu.Unlock()

	listNames := make(map[string]string, len(data.Tasklists))
	for _, l := range data.Tasklists {
		listNames[l.ID] = l.Title
	}

	now := p.now()
	out := make([]provider.EnrichedTask, 0, len(data.Items))
	for _, item := range data.Items {
		raw := provider.RawTask{
			ID:          item.ID,
			Content:     item.Title,
			Checked:     item.Completed,
			CompletedAt: item.CompletedAt,
			ProjectID:   item.TasklistID,
			ChildOrder:  item.Order,
			IsDeleted:   item.Deleted,
		}
		if item.Due != "" {
			raw.Due = &provider.Due{Date: item.Due}
		}
		if !provider.Visible(raw, now) {
			continue
		}
		out = append(out, provider.Enrich(raw, listNames[item.TasklistID], nil))
	}
	provider.SortTasks(out)
	return out
}

// AddTask implements provider.TaskProvider. The task lands in the default
// tasklist. Google Tasks keeps only the date portion of a due value.
func (p *Provider) AddTask(ctx context.Context, content, due string) error {
	listID := p.defaultList(ctx)
	task := &tasks.Task{Title: content}
	if due != "" {
		apiDue, err := toAPIDate(due)
		if err != nil {
			return errs.Validation("google tasks: add task", err)
		}
		task.Due = apiDue
	}
	if _, err := p.svc.Tasks.Insert(listID, task).Context(ctx).Do(); err != nil {
		return classify("google tasks: add task", err)
	}
	p.cache.Invalidate()
	return nil
}

// CompleteTask implements provider.TaskProvider.
func (p *Provider) CompleteTask(ctx context.Context, taskID string) error {
	return p.patchStatus(ctx, taskID, statusCompleted)
}

// UncompleteTask implements provider.TaskProvider.
func (p *Provider) UncompleteTask(ctx context.Context, taskID string) error {
	return p.patchStatus(ctx, taskID, statusNeedsAction)
}

func (p *Provider) patchStatus(ctx context.Context, taskID, status string) error {
	op := "google tasks: update task status"
	listID := p.listFor(ctx, taskID)
	patch := &tasks.Task{Status: status}
	if status == statusNeedsAction {
		patch.ForceSendFields = []string{"Completed"}
	}
	if _, err := p.svc.Tasks.Patch(listID, taskID, patch).Context(ctx).Do(); err != nil {
		return classify(op, err)
	}
	p.cache.Invalidate()
	return nil
}

// DeleteTask implements provider.TaskProvider.
func (p *Provider) DeleteTask(ctx context.Context, taskID string) error {
	listID := p.listFor(ctx, taskID)
	if err := p.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return classify("google tasks: delete task", err)
	}
	p.cache.Invalidate()
	return nil
}

// IsCacheStale implements provider.TaskProvider.
func (p *Provider) IsCacheStale() bool { return p.cache.Stale() }

// InvalidateCache implements provider.TaskProvider.
func (p *Provider) InvalidateCache() { p.cache.Invalidate() }

// ClearLocalData implements provider.TaskProvider. Removes the snapshot and
// the remembered default list; the remote account is untouched.
func (p *Provider) ClearLocalData(ctx context.Context) error {
	if err := p.store.Remove(ctx, DataKey); err != nil {
		return err
	}
	if err := p.settings.Remove(ctx, DefaultListKey); err != nil {
		return err
	}
	p.mu.Lock()
	p.data = snapshot{}
	p.loaded = false
	p.mu.Unlock()
	p.cache.Invalidate()
	return nil
}

// SetDefaultList records the tasklist id new tasks go to.
func (p *Provider) SetDefaultList(ctx context.Context, listID string) error {
	return p.settings.Set(ctx, DefaultListKey, listID)
}

// defaultList resolves the mutation target: the remembered choice, then the
// first known tasklist, then the @default alias.
func (p *Provider) defaultList(ctx context.Context) string {
	if id, err := kvstore.Get(ctx, p.settings, DefaultListKey, ""); err == nil && id != "" {
		return id
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.data.Tasklists) > 0 {
		return p.data.Tasklists[0].ID
	}
	return fallbackList
}

// listFor finds the tasklist holding taskID from the snapshot, falling back
// to the default list for tasks not yet synced.
func (p *Provider) listFor(ctx context.Context, taskID string) string {
	p.mu.Lock()
	for _, item := range p.data.Items {
		if item.ID == taskID {
			listID := item.TasklistID
			p.mu.Unlock()
			return listID
		}
	}
	p.mu.Unlock()
	return p.defaultList(ctx)
}

// dateOnly trims an API due value (RFC 3339 at UTC midnight) to its date.
func dateOnly(due string) string {
	if len(due) >= 10 {
		return due[:10]
	}
	return due
}

// toAPIDate converts a due value to the RFC 3339 UTC-midnight form the API
// expects.
func toAPIDate(due string) (string, error) {
	d := due
	if i := strings.Index(d, "T"); i >= 0 {
		d = d[:i]
	}
	if _, err := time.Parse("2006-01-02", d); err != nil {
		return "", fmt.Errorf("invalid due date %q: %w", due, err)
	}
	return d + "T00:00:00.000Z", nil
}

// classify maps SDK failures onto the shared taxonomy. Session failures are
// auth errors; anything else without an HTTP status is a network failure.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return errs.FromStatus(op, gerr.Code, gerr.Header.Get("Retry-After"))
	}
	if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, session.ErrSessionExpired) {
		return &errs.Error{Kind: errs.KindAuth, Op: op, Err: err}
	}
	return errs.Network(op, err)
}
