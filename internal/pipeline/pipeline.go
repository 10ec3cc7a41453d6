// Package pipeline turns one Day One entry into a Note by running a fixed,
// ordered list of stages: location, weather, tags, content, frontmatter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/dayone2md/internal/apperr"
	"github.com/starford/dayone2md/internal/markdown"
	"github.com/starford/dayone2md/internal/models"
)

// Reader is the part of the Day One store the stages query.
type Reader interface {
	EntryFinder
	Weather(ctx context.Context, id int64) (*models.Weather, error)
	Location(ctx context.Context, id int64) (*models.Location, error)
	Tag(ctx context.Context, id int64) (*models.Tag, error)
	EntryTagIDs(ctx context.Context, entryID int64) ([]int64, error)
}

// Parser is the markdown engine as used by the content stage.
type Parser interface {
	HeadingParser
	Parse(ctx context.Context, docUUID, raw string) (*markdown.Document, error)
}

// Note is everything the renderer needs for one entry.
type Note struct {
	Entry       *models.Entry
	UUID        string
	Title       string
	Slug        string
	Location    Location
	Weather     Weather
	Tags        []string
	Document    *markdown.Document
	Posts       map[string]PostLink // keyed by referenced entry UUID
	Frontmatter Frontmatter
}

// Dir is the note directory relative to the vault root.
func (n *Note) Dir() string {
	return strings.TrimPrefix(n.Frontmatter.Path, "/")
}

// FileName is the note file name inside Dir.
func (n *Note) FileName() string {
	return n.Slug + ".md"
}

type stage struct {
	name string
	run  func(ctx context.Context, n *Note) error
}

// Pipeline runs the stages for one entry at a time.
type Pipeline struct {
	store    Reader
	parser   Parser
	posts    *PostResolver
	location *time.Location
	logger   *slog.Logger
	stages   []stage
}

// New creates a pipeline. loc is the time zone used for clock times.
func New(store Reader, parser Parser, loc *time.Location, logger *slog.Logger) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	p := &Pipeline{
		store:    store,
		parser:   parser,
		posts:    NewPostResolver(store, parser),
		location: loc,
		logger:   logger,
	}
	p.stages = []stage{
		{"location", p.locationStage},
		{"weather", p.weatherStage},
		{"tags", p.tagsStage},
		{"content", p.contentStage},
		{"frontmatter", p.frontmatterStage},
	}
	return p
}

// Stages lists the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Process runs every stage on e and returns the finished note.
func (p *Pipeline) Process(ctx context.Context, e *models.Entry) (*Note, error) {
	n := &Note{Entry: e, UUID: entryUUID(e), Posts: make(map[string]PostLink)}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.run(ctx, n); err != nil {
			return nil, fmt.Errorf("pipeline: %s stage: %w", s.name, err)
		}
	}
	return n, nil
}

func (p *Pipeline) locationStage(ctx context.Context, n *Note) error {
	if n.Entry.LocationID == 0 {
		return nil
	}
	l, err := p.store.Location(ctx, n.Entry.LocationID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.logger.Warn("entry location missing", slog.String("entry_uuid", n.UUID), slog.Int64("location_id", n.Entry.LocationID))
		return nil
	}
	if err != nil {
		return err
	}
	n.Location = newLocation(l)
	return nil
}

func (p *Pipeline) weatherStage(ctx context.Context, n *Note) error {
	if n.Entry.WeatherID == 0 {
		return nil
	}
	w, err := p.store.Weather(ctx, n.Entry.WeatherID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.logger.Warn("entry weather missing", slog.String("entry_uuid", n.UUID), slog.Int64("weather_id", n.Entry.WeatherID))
		return nil
	}
	if err != nil {
		return err
	}
	n.Weather = newWeather(w, n.Entry.Created().In(p.location))
	return nil
}

func (p *Pipeline) tagsStage(ctx context.Context, n *Note) error {
	ids, err := p.store.EntryTagIDs(ctx, n.Entry.ID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		t, err := p.store.Tag(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			p.logger.Warn("entry tag missing", slog.String("entry_uuid", n.UUID), slog.Int64("tag_id", id))
			continue
		}
		if err != nil {
			return err
		}
		names = append(names, t.Name)
	}
	n.Tags = Tags(n.Entry.Year, n.Entry.Month, n.Entry.Day, names...)
	return nil
}

func (p *Pipeline) contentStage(ctx context.Context, n *Note) error {
	doc, err := p.parser.Parse(ctx, n.UUID, n.Entry.Markdown)
	if err != nil {
		return err
	}
	n.Document = doc
	n.Title, n.Slug = doc.Title, doc.Slug
	if !doc.HasTitle || n.Slug == "" {
		n.Slug = fallbackSlug(n.UUID)
		p.logger.Warn("entry has no title, naming files after its uuid",
			slog.String("entry_uuid", n.UUID), slog.String("slug", n.Slug))
	}

	for _, para := range doc.Paragraphs {
		if para.Kind != markdown.KindPost {
			continue
		}
		link, err := p.posts.Resolve(ctx, para.Post.UUID)
		if err != nil {
			return err
		}
		n.Posts[para.Post.UUID] = link
	}
	return nil
}

func (p *Pipeline) frontmatterStage(_ context.Context, n *Note) error {
	e := n.Entry
	n.Frontmatter = Frontmatter{
		UUID:     n.UUID,
		Path:     NotePath(e.Year, e.Month, e.Day, n.Slug),
		Date:     DateString(e.Year, e.Month, e.Day),
		Slug:     n.Slug,
		Title:    n.Title,
		Location: n.Location,
		Weather:  n.Weather,
	}
	return nil
}
