// Package exporter runs one conversion of the Day One database into the vault.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/dayone2md/internal/dayone"
	"github.com/starford/dayone2md/internal/mapping"
	"github.com/starford/dayone2md/internal/markdown"
	"github.com/starford/dayone2md/internal/pipeline"
	"github.com/starford/dayone2md/internal/render"
	"github.com/starford/dayone2md/internal/storage"
)

// Options locate the Day One data and shape the output.
type Options struct {
	DBPath      string
	PhotosDir   string
	MappingPath string
	AssetsDir   string
	Location    *time.Location
}

// Summary counts what an export did.
type Summary struct {
	Entries   int
	Written   int
	Unchanged int
	Failed    int
}

// Service coordinates the store, the pipeline and the renderer.
type Service struct {
	vault  storage.Provider
	opts   Options
	logger *slog.Logger
}

// NewService creates a new export service.
func NewService(vault storage.Provider, opts Options, logger *slog.Logger) *Service {
	return &Service{vault: vault, opts: opts, logger: logger}
}

// Export converts every entry. A failing entry is logged and skipped; the
// joined failures are returned once all entries have been tried. Each call
// opens the database afresh, so lookups are never served from a previous run.
func (s *Service) Export(ctx context.Context) (Summary, error) {
	var sum Summary
	store, err := dayone.Open(s.opts.DBPath)
	if err != nil {
		return sum, fmt.Errorf("exporter: %w", err)
	}
	defer store.Close()

	table := mapping.Load(s.opts.MappingPath, s.logger)
	parser := markdown.NewParser(store, table, s.logger)
	pipe := pipeline.New(store, parser, s.opts.Location, s.logger)
	renderer := render.New(s.vault, s.opts.PhotosDir, s.opts.AssetsDir, s.logger)

	ids, err := store.EntryIDs(ctx)
	if err != nil {
		return sum, fmt.Errorf("exporter: %w", err)
	}

	start := time.Now()
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Entries++
		res, err := s.exportEntry(ctx, store, pipe, renderer, id)
		if err != nil {
			sum.Failed++
			errs = append(errs, err)
			s.logger.Warn("export: entry skipped", slog.Int64("entry_id", id), slog.String("error", err.Error()))
			continue
		}
		if res.Written {
			sum.Written++
			s.logger.Debug("export: written", slog.String("path", res.Path))
		} else {
			sum.Unchanged++
		}
	}

	s.logger.Info("export finished",
		slog.Int("entries", sum.Entries),
		slog.Int("written", sum.Written),
		slog.Int("unchanged", sum.Unchanged),
		slog.Int("failed", sum.Failed),
		slog.Duration("took", time.Since(start)))
	return sum, errors.Join(errs...)
}

func (s *Service) exportEntry(ctx context.Context, store *dayone.Store, pipe *pipeline.Pipeline, renderer *render.Renderer, id int64) (render.Result, error) {
	e, err := store.EntryByID(ctx, id)
	if err != nil {
		return render.Result{}, err
	}
	n, err := pipe.Process(ctx, e)
	if err != nil {
		return render.Result{}, fmt.Errorf("entry %s: %w", e.UUID, err)
	}
	return renderer.Render(ctx, n)
}

// GenerateMapping writes the mapping template into the vault. Slugs already
// present in the vault's template or in the configured mapping file are kept.
// It returns the number of titles still waiting for a slug.
func (s *Service) GenerateMapping(ctx context.Context) (int, error) {
	store, err := dayone.Open(s.opts.DBPath)
	if err != nil {
		return 0, fmt.Errorf("exporter: %w", err)
	}
	defer store.Close()

	existing := mapping.Load(filepath.Join(s.vault.Root(), mapping.FileName), s.logger)
	for title, slug := range mapping.Load(s.opts.MappingPath, s.logger) {
		if slug != "" {
			existing[title] = slug
		}
	}
	parser := markdown.NewParser(store, existing, s.logger)
	return mapping.Generate(ctx, store, parser, existing, s.vault, s.logger)
}
