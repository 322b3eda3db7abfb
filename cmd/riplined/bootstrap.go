package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ripline/internal/api"
	"ripline/internal/config"
	"ripline/internal/encoding"
	"ripline/internal/history"
	"ripline/internal/logging"
	"ripline/internal/notifications"
	"ripline/internal/pipeline"
	"ripline/internal/services/handbrake"
	"ripline/internal/services/jellyfin"
	"ripline/internal/services/makemkv"
	"ripline/internal/services/servarr"
	"ripline/internal/tmdb"
	"ripline/internal/upload"
)

// app holds everything the daemon serves.
type app struct {
	handler  http.Handler
	notifier notifications.Service
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires the job runner and the HTTP API from cfg. Optional
// integrations that are not configured stay nil and their routes answer 503.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	a := &app{notifier: notifications.NewService(cfg)}

	makemkvOpts := []makemkv.Option{makemkv.WithLogger(logger)}
	if cfg.MakeMKV.LockPath != "" {
		makemkvOpts = append(makemkvOpts, makemkv.WithLease(makemkv.NewLease(cfg.MakeMKV.LockPath)))
	}
	drives, err := makemkv.New(cfg.MakeMKV.Binary, makemkvOpts...)
	if err != nil {
		return nil, fmt.Errorf("makemkv: %w", err)
	}

	encoder, err := encoding.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	profiles := func() ([]handbrake.Profile, error) { return encoding.Profiles(cfg) }
	deps := pipeline.Dependencies{
		Prober:    drives,
		Ripper:    drives,
		Encoder:   encoder,
		Profiles:  profiles,
		Uploader:  upload.New(upload.NewSFTPDialer(cfg.Upload), logger),
		Refresher: jellyfin.NewConfiguredService(cfg),
		Notifier:  a.notifier,
	}
	apiDeps := api.Dependencies{
		Drives:   drives,
		Profiles: profiles,
	}

	if cfg.TMDB.APIKey != "" {
		searcher, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("tmdb: %w", err)
		}
		apiDeps.TMDB = searcher
	} else {
		logging.WarnWithContext(logger, "tmdb api key not configured", "tmdb_unconfigured",
			logging.String(logging.FieldImpact, "title lookups and searches are unavailable"),
			logging.String(logging.FieldErrorHint, "set tmdb.api_key in config.toml"),
		)
	}

	polling := servarr.WithPolling(time.Duration(cfg.Workflow.CommandPollInterval)*time.Second, cfg.Workflow.CommandPollRetries)
	if cfg.Radarr.URL != "" {
		radarr, err := servarr.NewRadarr(cfg.Radarr, polling, servarr.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("radarr: %w", err)
		}
		deps.Movies = radarr
		apiDeps.Movies = radarr
	}
	if cfg.Sonarr.URL != "" {
		sonarr, err := servarr.NewSonarr(cfg.Sonarr, polling, servarr.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("sonarr: %w", err)
		}
		deps.Series = sonarr
		apiDeps.Series = sonarr
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		deps.History = store
		apiDeps.History = store
	}

	apiDeps.Jobs = pipeline.NewRunner(cfg.Paths.OutputDir, deps, logger)
	a.handler = api.NewServer(apiDeps, api.Options{
		Origin:    cfg.Paths.Origin,
		Languages: cfg.Selection.Languages,
	}, logger).Handler()
	return a, nil
}
