package backend

import (
	"context"
	"testing"

	"tabdash/internal/backend/googletasks"
	"tabdash/internal/backend/todoist"
	"tabdash/internal/config"
	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/session"
)

func newAreas() (*kvstore.MemStore, *kvstore.MemStore) {
	return kvstore.NewMemStore(kvstore.LocalQuotaBytes), kvstore.NewMemStore(kvstore.SyncedQuotaBytes)
}

func TestNewTaskProvider_TodoistSnapshotInLocalArea(t *testing.T) {
	ctx := context.Background()
	localStore, syncedStore := newAreas()
	if err := localStore.Set(ctx, todoist.DataKey, "snapshot"); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	if err := syncedStore.Set(ctx, todoist.DataKey, "decoy"); err != nil {
		t.Fatalf("seed synced: %v", err)
	}

	cfg := &config.Config{
		Provider: config.ProviderTodoist,
		Todoist:  config.TodoistConfig{APIToken: "tok"},
	}
	p, err := NewTaskProvider(ctx, cfg, nil, localStore, syncedStore, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	// ClearLocalData removes the snapshot key; only the local area loses it.
	if err := p.ClearLocalData(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := kvstore.Get(ctx, localStore, todoist.DataKey, ""); got != "" {
		t.Errorf("expected snapshot removed from the local area, got %q", got)
	}
	if got, _ := kvstore.Get(ctx, syncedStore, todoist.DataKey, ""); got != "decoy" {
		t.Errorf("synced area should be untouched by the todoist provider, got %q", got)
	}
}

func TestNewTaskProvider_GoogleTasksAreas(t *testing.T) {
	ctx := context.Background()
	localStore, syncedStore := newAreas()
	if err := localStore.Set(ctx, googletasks.DataKey, "snapshot"); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	if err := syncedStore.Set(ctx, googletasks.DefaultListKey, "list-1"); err != nil {
		t.Fatalf("seed synced: %v", err)
	}

	sess := session.New(kvstore.NewMemStore(0), session.Config{ClientID: "client"}, nil)
	cfg := &config.Config{Provider: config.ProviderGoogleTasks}
	p, err := NewTaskProvider(ctx, cfg, sess, localStore, syncedStore, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if err := p.ClearLocalData(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := kvstore.Get(ctx, localStore, googletasks.DataKey, ""); got != "" {
		t.Errorf("expected snapshot removed from the local area, got %q", got)
	}
	if got, _ := kvstore.Get(ctx, syncedStore, googletasks.DefaultListKey, ""); got != "" {
		t.Errorf("expected default list removed from the synced area, got %q", got)
	}
}

func TestNewTaskProvider_Misconfiguration(t *testing.T) {
	ctx := context.Background()
	localStore, syncedStore := newAreas()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"todoist without token", &config.Config{Provider: config.ProviderTodoist}},
		{"google without session", &config.Config{Provider: config.ProviderGoogleTasks}},
		{"unknown provider", &config.Config{Provider: "jira"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTaskProvider(ctx, tt.cfg, nil, localStore, syncedStore, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestNewEventProvider_RequiresSession(t *testing.T) {
	localStore, _ := newAreas()
	if _, err := NewEventProvider(context.Background(), nil, localStore, nil); err == nil {
		t.Fatal("expected an error without a session")
	}
}
