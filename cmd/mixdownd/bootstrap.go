package main

import (
	"log/slog"

	"mixdown/internal/catalog"
	"mixdown/internal/config"
	"mixdown/internal/daemon"
	"mixdown/internal/dispatch"
	"mixdown/internal/media"
	"mixdown/internal/module"
	"mixdown/internal/modules"
	"mixdown/internal/preset"
	"mixdown/internal/server"
	"mixdown/internal/session"
	"mixdown/internal/storage"
	"mixdown/internal/watch"
)

// bootstrap wires the full component graph: catalog store, module registry
// with the built-in processors, dispatch controller, session manager, HTTP
// API, and the optional watch-folder ingest.
func bootstrap(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}

	presets, err := preset.Open(cfg.PresetPath(), logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := media.New(cfg, logger)
	registry := module.NewRegistry()
	if err := modules.RegisterBuiltins(registry, client, presets); err != nil {
		store.Close()
		return nil, err
	}

	workspaces := storage.NewWorkspaces(cfg, logger)
	controller := dispatch.NewController(store, registry, workspaces, logger)
	manager := session.NewManager(cfg, store, registry, controller, workspaces, logger)

	api, err := server.New(server.Options{
		Config:   cfg,
		Store:    store,
		Manager:  manager,
		Registry: registry,
		Media:    client,
		Presets:  presets,
		Logger:   logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var watcher *watch.Watcher
	if cfg.Watch.Enabled {
		watcher = watch.New(cfg, manager, logger)
	}

	return daemon.New(cfg, store, manager, api.Handler(), watcher, logger)
}
