// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/dayone2md/internal/exporter"
	"github.com/starford/dayone2md/internal/storage"
	"github.com/starford/dayone2md/internal/watch"
	pkgconfig "github.com/starford/dayone2md/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		// Initialize structured JSON logger.
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	if err := pkgconfig.Validate(cfg); err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("action", cfg.App.Action),
		slog.String("db_path", cfg.DayOne.Database()),
		slog.String("photos_path", cfg.DayOne.Photos()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("mapping_path", cfg.Mapping.Path),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := checkInputs(cfg, logger); err != nil {
		return err
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("time zone: %w", err)
	}

	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	svc := exporter.NewService(vault, exporter.Options{
		DBPath:      cfg.DayOne.Database(),
		PhotosDir:   cfg.DayOne.Photos(),
		MappingPath: cfg.Mapping.Path,
		AssetsDir:   cfg.Vault.AssetsDir,
		Location:    loc,
	}, logger)

	if cfg.App.Action == ActionMapping {
		pending, err := svc.GenerateMapping(ctx)
		if err != nil {
			return fmt.Errorf("generate mapping: %w", err)
		}
		if pending > 0 {
			logger.Info("Fill in the empty slugs and pass the file with --mapping", slog.Int("pending", pending))
		}
		return nil
	}

	if !cfg.Watch.Enabled {
		if _, err := svc.Export(ctx); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		return nil
	}

	return runWatch(ctx, cfg, svc, logger)
}

// runWatch exports once, then again after every change to the database,
// until a shutdown signal arrives or ctx is cancelled.
func runWatch(ctx context.Context, cfg *Config, svc *exporter.Service, logger *slog.Logger) error {
	if _, err := svc.Export(ctx); err != nil {
		logger.Error("initial export incomplete", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watch.Watch(gCtx, cfg.DayOne.Database(), cfg.Watch.Debounce, logger, func(ctx context.Context) error {
			_, err := svc.Export(ctx)
			return err
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, stopping watcher")
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped successfully")
	return nil
}

// checkInputs fails fast on paths that would make every entry fail.
func checkInputs(cfg *Config, logger *slog.Logger) error {
	db := cfg.DayOne.Database()
	info, err := os.Stat(db)
	if err != nil {
		return fmt.Errorf("day one database: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("day one database %s is a directory", db)
	}

	info, err = os.Stat(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", cfg.Vault.Path)
	}

	if _, err := os.Stat(cfg.DayOne.Photos()); err != nil {
		logger.Warn("photo directory not readable, entries with photos will fail",
			slog.String("path", cfg.DayOne.Photos()), slog.String("error", err.Error()))
	}
	return nil
}
