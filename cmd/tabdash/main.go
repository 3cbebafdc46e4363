// Package main is the entry point for the tabdash CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tabdash/internal/backend"
	"tabdash/internal/cli"
	"tabdash/internal/commands"
	"tabdash/internal/config"
	"tabdash/internal/kvstore"
	"tabdash/internal/provider"
	"tabdash/internal/session"
)

// googleScopes covers tasks, calendar, and the email claim shown in status.
var googleScopes = []string{
	"https://www.googleapis.com/auth/tasks",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
}

func main() {
	// A .env next to the binary can supply TODOIST_API_TOKEN and friends.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newServices)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// newServices wires storage, session, and providers from config.
func newServices(ctx context.Context, cfg *config.Config) (*commands.Services, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	db, err := kvstore.OpenDB(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	localStore := kvstore.NewSQLiteStore(db, kvstore.AreaLocal)
	syncedStore := kvstore.NewSQLiteStore(db, kvstore.AreaSynced)

	var sess *session.Manager
	if cfg.Google.ClientID != "" {
		tokenAPI := session.NewFileTokenAPI(&oauth2.Config{
			ClientID: cfg.Google.ClientID,
			Endpoint: google.Endpoint,
			Scopes:   googleScopes,
		}, cfg.TokenPath(), nil, os.Stderr)

		sess = session.New(localStore, session.Config{
			ClientID: cfg.Google.ClientID,
			Scopes:   googleScopes,
			TokenAPI: tokenAPI,
		}, nil)
		if err := sess.Init(ctx); err != nil {
			return nil, fmt.Errorf("init session: %w", err)
		}
		sess.TrySilentRestore(ctx)
	}

	tasks, err := backend.NewTaskProvider(ctx, cfg, sess, localStore, syncedStore, nil)
	if err != nil {
		return nil, err
	}

	var events provider.EventProvider
	if sess != nil {
		events, err = backend.NewEventProvider(ctx, sess, localStore, nil)
		if err != nil {
			return nil, err
		}
	}

	return &commands.Services{Tasks: tasks, Events: events, Session: sess}, nil
}
