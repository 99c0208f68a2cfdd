// Package app wires configuration, the gateway, the data store, and the UI
// into a runnable program.
package app

import (
	"context"
	"fmt"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/prefs"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/internal/ui"
)

// Options configure the Warden application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/warden/prefs.toml
}

// Run boots the Warden TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	client, err := gateway.NewClient(gateway.Options{
		ManagerURL: cfg.ManagerURL,
		IndexerURL: cfg.IndexerURL,
		Credentials: gateway.Credentials{
			Username:        cfg.Username,
			Password:        cfg.Password,
			IndexerUsername: cfg.IndexerUsername,
			IndexerPassword: cfg.IndexerPassword,
		},
		InsecureTLS: cfg.InsecureTLS,
	})
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	// No session means nothing works; fail before drawing a single frame.
	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate to %s: %w", cfg.ManagerURL, err)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Client:    client,
		Store:     store.New(),
		Config:    &cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
	})
}
