// Package backend selects and constructs the configured providers.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tabdash/internal/backend/googlecal"
	"tabdash/internal/backend/googletasks"
	"tabdash/internal/backend/local"
	"tabdash/internal/backend/todoist"
	"tabdash/internal/config"
	"tabdash/internal/errs"
	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
	"tabdash/internal/session"
)

// NewTaskProvider constructs the task backend named by cfg.Provider.
// localStore holds the local provider's source of truth and every remote
// provider's cached snapshot; its quota is sized for full syncs. The small
// syncedStore carries settings only, like the default-list choice.
func NewTaskProvider(ctx context.Context, cfg *config.Config, sess *session.Manager, localStore, syncedStore kvstore.Store, logger *slog.Logger) (provider.TaskProvider, error) {
	switch cfg.Provider {
	case config.ProviderLocal, "":
		return local.New(localStore, logger), nil
	case config.ProviderTodoist:
		if cfg.Todoist.APIToken == "" {
			return nil, errs.Validation("backend",
				errors.New("todoist provider selected but no API token configured (set todoist.api_token or TODOIST_API_TOKEN)"))
		}
		return todoist.New(cfg.Todoist.APIToken, localStore, logger), nil
	case config.ProviderGoogleTasks:
		if sess == nil {
			return nil, errs.Validation("backend",
				errors.New("google-tasks provider requires google.client_id to be configured"))
		}
		return googletasks.New(ctx, sess, localStore, syncedStore, logger)
	default:
		return nil, errs.Validation("backend", fmt.Errorf("unknown provider %q (valid: %s, %s, %s)",
			cfg.Provider, config.ProviderLocal, config.ProviderTodoist, config.ProviderGoogleTasks))
	}
}

// NewEventProvider constructs the Google Calendar event backend. Events are
// Google-only regardless of the selected task provider. The snapshot lives
// in localStore alongside the task snapshots.
func NewEventProvider(ctx context.Context, sess *session.Manager, localStore kvstore.Store, logger *slog.Logger) (provider.EventProvider, error) {
	if sess == nil {
		return nil, fmt.Errorf("calendar events require a session")
	}
	return googlecal.New(ctx, sess, localStore, logger)
}
