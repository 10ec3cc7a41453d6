// Package mapping loads and generates the title to slug table used for titles
// that cannot be slugified on their own.
package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/dayone2md/internal/markdown"
	"github.com/starford/dayone2md/internal/models"
	"github.com/starford/dayone2md/internal/storage"
)

// FileName is the name of the generated template inside the vault.
const FileName = "mapping.json"

// Table maps an entry title to the slug used for its file and directory.
type Table map[string]string

// Lookup returns the slug mapped to title.
func (t Table) Lookup(title string) (string, bool) {
	slug, ok := t[title]
	return slug, ok
}

// Load reads a mapping file. Loading never fails: an empty path or a missing
// file yields an empty table, a malformed file is logged and ignored.
func Load(path string, logger *slog.Logger) Table {
	table := Table{}
	if path == "" {
		return table
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("mapping file unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return table
	}
	if err := json.Unmarshal(data, &table); err != nil {
		logger.Warn("mapping file malformed, ignoring", slog.String("path", path), slog.String("error", err.Error()))
		return Table{}
	}
	return table
}

// EntrySource lists entries for template generation.
type EntrySource interface {
	EntryIDs(ctx context.Context) ([]int64, error)
	EntryByID(ctx context.Context, id int64) (*models.Entry, error)
}

// HeadingParser extracts an entry's title without resolving attachments.
type HeadingParser interface {
	Heading(raw string) (title, slug string, ok bool)
}

// Generate writes FileName into vault with one key per entry title that
// contains Han characters. Slugs already present in existing are kept, new
// titles map to "". It returns the number of titles that still need a slug.
func Generate(ctx context.Context, entries EntrySource, headings HeadingParser, existing Table, vault storage.Provider, logger *slog.Logger) (int, error) {
	ids, err := entries.EntryIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("mapping: list entries: %w", err)
	}

	out := Table{}
	for title, slug := range existing {
		out[title] = slug
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		e, err := entries.EntryByID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("mapping: entry %d: %w", id, err)
		}
		title, _, ok := headings.Heading(e.Markdown)
		if !ok || !markdown.ContainsHan(title) {
			continue
		}
		if _, seen := out[title]; !seen {
			out[title] = ""
		}
	}

	data, err := encode(out)
	if err != nil {
		return 0, fmt.Errorf("mapping: encode: %w", err)
	}
	if _, err := vault.Write(FileName, data); err != nil {
		return 0, fmt.Errorf("mapping: %w", err)
	}

	pending := 0
	for _, slug := range out {
		if slug == "" {
			pending++
		}
	}
	logger.Info("mapping template written",
		slog.String("path", FileName),
		slog.Int("titles", len(out)),
		slog.Int("pending", pending))
	return pending, nil
}

// encode renders the table with sorted keys and unescaped CJK and HTML characters.
func encode(t Table) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
