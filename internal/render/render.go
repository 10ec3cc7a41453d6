// Package render writes a processed note into the vault: the Markdown file
// with its frontmatter and tags, and copies of every referenced photo.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/starford/dayone2md/internal/markdown"
	"github.com/starford/dayone2md/internal/pipeline"
	"github.com/starford/dayone2md/internal/storage"
)

// DefaultAssetsDir holds the photos of a note, next to the note file.
const DefaultAssetsDir = "assets"

const copyLimit = 4

// Copy is one photo to place in the vault.
type Copy struct {
	Source string // file name in the photos directory
	Target string // vault-relative destination
}

// Layout names the vault and the per-note assets directory.
type Layout struct {
	VaultName string
	AssetsDir string
}

// Result describes what Render did for one note.
type Result struct {
	Path    string // vault-relative note file
	Written bool   // false when the file was already up to date
	Copied  int
}

// Renderer writes notes into a vault.
type Renderer struct {
	vault     storage.Provider
	photosDir string
	layout    Layout
	logger    *slog.Logger
}

// New creates a renderer. photosDir is the app's photo directory; the vault
// name shown in gallery blocks is the base name of the vault root.
func New(vault storage.Provider, photosDir, assetsDir string, logger *slog.Logger) *Renderer {
	if assetsDir == "" {
		assetsDir = DefaultAssetsDir
	}
	return &Renderer{
		vault:     vault,
		photosDir: photosDir,
		layout:    Layout{VaultName: filepath.Base(vault.Root()), AssetsDir: assetsDir},
		logger:    logger,
	}
}

// Render writes n and copies its photos.
func (r *Renderer) Render(ctx context.Context, n *pipeline.Note) (Result, error) {
	content, copies, err := Compose(n, r.layout)
	if err != nil {
		return Result{}, err
	}

	dir := n.Dir()
	if err := r.vault.MkdirAll(dir); err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}
	if n.Document.HasImages() {
		if err := r.vault.MkdirAll(path.Join(dir, r.layout.AssetsDir)); err != nil {
			return Result{}, fmt.Errorf("render: %w", err)
		}
	}

	copied, err := r.copyPhotos(ctx, copies)
	if err != nil {
		return Result{}, fmt.Errorf("render: entry %s: %w", n.UUID, err)
	}

	file := path.Join(dir, n.FileName())
	written, err := r.vault.Write(file, content)
	if err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}
	r.logger.Debug("note rendered",
		slog.String("path", file),
		slog.Bool("written", written),
		slog.Int("photos_copied", copied))
	return Result{Path: file, Written: written, Copied: copied}, nil
}

func (r *Renderer) copyPhotos(ctx context.Context, copies []Copy) (int, error) {
	results := make([]bool, len(copies))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(copyLimit)
	for i, c := range copies {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := r.vault.CopyFile(filepath.Join(r.photosDir, c.Source), c.Target)
			if err != nil {
				return err
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n, nil
}

// Compose builds the note file and the list of photo copies it references.
func Compose(n *pipeline.Note, layout Layout) ([]byte, []Copy, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n.Frontmatter); err != nil {
		return nil, nil, fmt.Errorf("render: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, fmt.Errorf("render: encode frontmatter: %w", err)
	}
	buf.WriteString("---\n")

	lines, copies, err := body(n, layout)
	if err != nil {
		return nil, nil, err
	}
	buf.WriteString("\n")
	buf.WriteString(strings.Join(lines, "\n"))
	buf.WriteString("\n\n")
	buf.WriteString(strings.Join(n.Tags, " "))
	return buf.Bytes(), copies, nil
}

func body(n *pipeline.Note, layout Layout) ([]string, []Copy, error) {
	assets := path.Join(n.Dir(), layout.AssetsDir)
	var (
		lines     []string
		copies    []Copy
		galleries int
	)
	for _, p := range n.Document.Paragraphs {
		switch p.Kind {
		case markdown.KindCover, markdown.KindImage:
			copies = append(copies, Copy{Source: p.Image.SourceName, Target: path.Join(assets, p.Image.OutputName)})
			lines = append(lines, "![["+p.Image.OutputName+"]]")
		case markdown.KindGallery:
			name := fmt.Sprintf("gallery%02d", galleries)
			galleries++
			for _, img := range p.Gallery {
				copies = append(copies, Copy{Source: img.SourceName, Target: path.Join(assets, name, img.OutputName)})
			}
			lines = append(lines, galleryBlock(path.Join(layout.VaultName, n.Frontmatter.Path, layout.AssetsDir, name))...)
		case markdown.KindPost:
			link, ok := n.Posts[p.Post.UUID]
			if !ok {
				return nil, nil, fmt.Errorf("render: entry %s: unresolved post %s", n.UUID, p.Post.UUID)
			}
			lines = append(lines, "["+link.Title+"]("+link.Slug+".md)")
		case markdown.KindText:
			lines = append(lines, p.Text)
		default:
			return nil, nil, fmt.Errorf("render: entry %s: unknown paragraph kind %q", n.UUID, p.Kind)
		}
	}
	return lines, copies, nil
}

func galleryBlock(dir string) []string {
	return []string{
		"```gallery",
		"type=grid",
		"path=" + dir,
		"imgWidth=250",
		"divWidth=100",
		"divAlign=left",
		"reverseOrder=false",
		"```",
	}
}
