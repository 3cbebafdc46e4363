// Package todoist implements the Todoist REST backend. A sync fans out the
// three collection fetches concurrently, merges them into one snapshot, and
// persists the snapshot exactly once.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
)

const (
	// DataKey is the persisted snapshot key.
	DataKey = "todoist_data"

	defaultBaseURL = "https://api.todoist.com/rest/v2"
)

// Task is a Todoist REST task.
type Task struct {
	ID          string        `json:"id"`
	Content     string        `json:"content"`
	IsCompleted bool          `json:"is_completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Due         *provider.Due `json:"due,omitempty"`
	ProjectID   string        `json:"project_id"`
	Labels      []string      `json:"labels"`
	Order       int           `json:"order"`
	IsDeleted   bool          `json:"is_deleted,omitempty"`
}

// Project is a Todoist project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsInboxProj bool   `json:"is_inbox_project"`
}

// Label is a Todoist label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type snapshot struct {
	Tasks     []Task    `json:"tasks"`
	Projects  []Project `json:"projects"`
	Labels    []Label   `json:"labels"`
	Timestamp int64     `json:"timestamp"`
}

// Provider is the Todoist task backend.
type Provider struct {
	token   string
	baseURL string
	client  *http.Client
	store   kvstore.Store
	logger  *slog.Logger
	cache   *provider.Cache
	now     func() time.Time

	mu     sync.Mutex
	data   snapshot
	loaded bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Tests point this at a local server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New creates a Todoist provider authenticated with the given API token.
func New(token string, store kvstore.Store, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		store:   store,
		logger:  logger,
		cache:   provider.NewCache(provider.SnapshotTTL),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetClock replaces the clock for tests, including the cache clock.
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
	p.cache.SetClock(now)
}

// restore loads the persisted snapshot once so reads work before the first
// sync. A corrupt snapshot degrades to empty.
func (p *Provider) restore(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return
	}
	p.loaded = true
	stored, err := kvstore.Get(ctx, p.store, DataKey, snapshot{})
	if err != nil {
		p.logger.Error("failed to restore todoist snapshot, starting empty", "error", err)
		return
	}
	p.data = stored
	p.cache.Restore(stored.Timestamp)
}

// Sync implements provider.TaskProvider. All three collections are required;
// any fetch failure fails the sync and leaves the previous snapshot intact.
func (p *Provider) Sync(ctx context.Context) error {
	p.restore(ctx)

	var (
		tasks    []Task
		projects []Project
		labels   []Label
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.get(gctx, "/tasks", &tasks) })
	g.Go(func() error { return p.get(gctx, "/projects", &projects) })
	g.Go(func() error { return p.get(gctx, "/labels", &labels) })
	if err := g.Wait(); err != nil {
		return err
	}

	syncedAt := p.now()
	fresh := snapshot{
		Tasks:     tasks,
		Projects:  projects,
		Labels:    labels,
		Timestamp: syncedAt.UnixMilli(),
	}

	p.mu.Lock()
	p.data = fresh
	p.mu.Unlock()

	if err := p.store.Set(ctx, DataKey, fresh); err != nil {
		return errs.Wrap("todoist: persist snapshot", err)
	}
	p.cache.Touch(syncedAt)
	p.logger.Debug("todoist sync complete",
		"tasks", len(tasks), "projects", len(projects), "labels", len(labels))
	return nil
}

// Tasks implements provider.TaskProvider.
func (p *Provider) Tasks() []provider.EnrichedTask {
	p.mu.Lock()
	data := p.data
	p.mu.Unlock()

	projectNames := make(map[string]string, len(data.Projects))
	inboxID := ""
	for _, proj := range data.Projects {
		projectNames[proj.ID] = proj.Name
		if proj.IsInboxProj {
			inboxID = proj.ID
		}
	}

	now := p.now()
	tasks := make([]provider.EnrichedTask, 0, len(data.Tasks))
	for _, t := range data.Tasks {
		raw := provider.RawTask{
			ID:          t.ID,
			Content:     t.Content,
			Checked:     t.IsCompleted,
			CompletedAt: t.CompletedAt,
			Due:         t.Due,
			ProjectID:   t.ProjectID,
			Labels:      t.Labels,
			ChildOrder:  t.Order,
			IsDeleted:   t.IsDeleted,
		}
		if !provider.Visible(raw, now) {
			continue
		}
		name := projectNames[t.ProjectID]
		if t.ProjectID == inboxID {
			name = provider.InboxProject
		}
		// REST v2 labels tasks by name already.
		tasks = append(tasks, provider.Enrich(raw, name, t.Labels))
	}
	provider.SortTasks(tasks)
	return tasks
}

// AddTask implements provider.TaskProvider. Due accepts a date (2006-01-02)
// or an RFC 3339 date-time.
func (p *Provider) AddTask(ctx context.Context, content, due string) error {
	body := map[string]string{"content": content}
	if due != "" {
		body["due_string"] = due
	}
	if err := p.post(ctx, "/tasks", body); err != nil {
		return err
	}
	p.cache.Invalidate()
	return nil
}

// CompleteTask implements provider.TaskProvider.
func (p *Provider) CompleteTask(ctx context.Context, taskID string) error {
	if err := p.post(ctx, "/tasks/"+taskID+"/close", nil); err != nil {
		return err
	}
	p.cache.Invalidate()
	return nil
}

// UncompleteTask implements provider.TaskProvider.
func (p *Provider) UncompleteTask(ctx context.Context, taskID string) error {
	if err := p.post(ctx, "/tasks/"+taskID+"/reopen", nil); err != nil {
		return err
	}
	p.cache.Invalidate()
	return nil
}

// DeleteTask implements provider.TaskProvider.
func (p *Provider) DeleteTask(ctx context.Context, taskID string) error {
	if err := p.do(ctx, http.MethodDelete, "/tasks/"+taskID, nil, nil); err != nil {
		return err
	}
	p.cache.Invalidate()
	return nil
}

// IsCacheStale implements provider.TaskProvider.
func (p *Provider) IsCacheStale() bool { return p.cache.Stale() }

// InvalidateCache implements provider.TaskProvider.
func (p *Provider) InvalidateCache() { p.cache.Invalidate() }

// ClearLocalData implements provider.TaskProvider. Drops the persisted
// snapshot and the in-memory copy; the remote account is untouched.
func (p *Provider) ClearLocalData(ctx context.Context) error {
	if err := p.store.Remove(ctx, DataKey); err != nil {
		return err
	}
	p.mu.Lock()
	p.data = snapshot{}
	p.loaded = false
	p.mu.Unlock()
	p.cache.Invalidate()
	return nil
}

func (p *Provider) get(ctx context.Context, path string, dest any) error {
	return p.do(ctx, http.MethodGet, path, nil, dest)
}

func (p *Provider) post(ctx context.Context, path string, body any) error {
	return p.do(ctx, http.MethodPost, path, body, nil)
}

// do performs one authenticated API call and classifies failures: 401/403 as
// auth, 429 as rate limit carrying Retry-After, other 4xx as validation, and
// 5xx or transport errors as network.
func (p *Provider) do(ctx context.Context, method, path string, body, dest any) error {
	op := fmt.Sprintf("todoist: %s %s", method, path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errs.Validation(op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return errs.Validation(op, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errs.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return errs.FromStatus(op, resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errs.Network(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
