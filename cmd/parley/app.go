package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pario-ai/parley/pkg/chat"
	"github.com/pario-ai/parley/pkg/config"
	"github.com/pario-ai/parley/pkg/identity"
	"github.com/pario-ai/parley/pkg/tracker"
)

// app bundles what a chat command needs. close must be called when the
// command finishes.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	tracker *tracker.Tracker
	coord   *chat.Coordinator
	close   func()
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	rt := &app{
		cfg:     cfg,
		log:     logger,
		tracker: tracker.New(),
		close:   func() {},
	}

	var provider identity.Provider = &identity.Memory{}
	if cfg.Identity.DBPath != "" {
		store, err := identity.Open(cfg.Identity.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open identity store: %w", err)
		}
		provider = store.Session(cfg.Identity.Session)
		rt.close = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close identity store", "err", err)
			}
		}
	}

	rt.coord = chat.New(cfg,
		chat.WithLogger(logger),
		chat.WithIdentity(provider),
		chat.WithTracker(rt.tracker),
	)
	return rt, nil
}
