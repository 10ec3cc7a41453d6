// Package markdown re-parses Day One flavored Markdown into typed paragraphs.
//
// Rows are consumed strictly in order by a small state machine with two flags:
// the cover phase (leading images before any other content) and the gallery
// phase (a run of adjacent images in normal content). Two corrective passes
// follow: an entry made only of images becomes one gallery, and galleries of a
// single image become plain images.
package markdown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/dayone2md/internal/apperr"
	"github.com/starford/dayone2md/internal/models"
)

// AttachmentSource looks attachments up by the identifier in an image token.
type AttachmentSource interface {
	Attachment(ctx context.Context, identifier string) (*models.Attachment, error)
}

// Parser holds the collaborators shared by every parse. It keeps no per-entry
// state, so one Parser can serve many entries.
type Parser struct {
	attachments AttachmentSource
	mapping     SlugMapping
	logger      *slog.Logger
}

// NewParser creates a parser.
func NewParser(attachments AttachmentSource, mapping SlugMapping, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{attachments: attachments, mapping: mapping, logger: logger}
}

// Parse converts the raw markdown of the entry identified by docUUID. docUUID
// prefixes every generated image file name.
func (p *Parser) Parse(ctx context.Context, docUUID, raw string) (*Document, error) {
	rows := SplitRows(raw)
	doc := p.heading(rows)

	paragraphs, err := p.run(ctx, docUUID, rows)
	if err != nil {
		return nil, err
	}
	doc.Paragraphs = paragraphs
	return doc, nil
}

// Heading extracts only the title and slug of raw; no attachment is resolved.
func (p *Parser) Heading(raw string) (title, slug string, ok bool) {
	doc := p.heading(SplitRows(raw))
	return doc.Title, doc.Slug, doc.HasTitle
}

func (p *Parser) heading(rows []string) *Document {
	title, ok := extractTitle(rows)
	if !ok {
		return &Document{}
	}
	slug, mapped := Slugify(title, p.mapping)
	if !mapped {
		p.logger.Warn("no slug mapping found for title", slog.String("title", title))
	}
	return &Document{Title: title, Slug: slug, HasTitle: true}
}

// run feeds rows through a fresh machine and applies both corrective passes.
func (p *Parser) run(ctx context.Context, docUUID string, rows []string) ([]Paragraph, error) {
	m := &machine{parser: p, docUUID: docUUID}
	for _, row := range rows {
		if err := m.handleRow(ctx, row); err != nil {
			return nil, err
		}
	}
	m.convertImageOnlyEntry()
	CollapseSingleImageGalleries(m.paragraphs)
	return m.paragraphs, nil
}

// machine is the parse state of exactly one entry.
type machine struct {
	parser  *Parser
	docUUID string

	coverPhaseDone bool // once true, never reverts
	inGallery      bool
	imageCounter   int
	paragraphs     []Paragraph
}

func (m *machine) handleRow(ctx context.Context, row string) error {
	if row == "" {
		// Blank rows inside a gallery run only separate images.
		if !m.inGallery {
			m.paragraphs = append(m.paragraphs, textParagraph(""))
		}
		return nil
	}
	if !m.coverPhaseDone {
		return m.handleCoverRow(ctx, row)
	}
	return m.handleNormalRow(ctx, row)
}

func (m *machine) handleCoverRow(ctx context.Context, row string) error {
	id, ok := ImageToken(row)
	if !ok {
		m.coverPhaseDone = true
		return m.handleNormalRow(ctx, row)
	}
	img, err := m.resolveImage(ctx, id)
	if err != nil {
		return err
	}
	m.paragraphs = append(m.paragraphs, Paragraph{Kind: KindCover, Image: &img})
	return nil
}

func (m *machine) handleNormalRow(ctx context.Context, row string) error {
	if id, ok := ImageToken(row); ok {
		return m.handleGalleryRow(ctx, id)
	}
	m.inGallery = false
	if uuid, ok := PostToken(row); ok {
		m.paragraphs = append(m.paragraphs, Paragraph{Kind: KindPost, Post: &PostRef{UUID: uuid}})
		return nil
	}
	m.paragraphs = append(m.paragraphs, textParagraph(row))
	return nil
}

func (m *machine) handleGalleryRow(ctx context.Context, id string) error {
	img, err := m.resolveImage(ctx, id)
	if err != nil {
		return err
	}
	if !m.inGallery {
		m.inGallery = true
		m.paragraphs = append(m.paragraphs, Paragraph{Kind: KindGallery})
	}
	// The scan stops before index 0; a gallery is never the first paragraph.
	for i := len(m.paragraphs) - 1; i > 0; i-- {
		if m.paragraphs[i].Kind == KindGallery {
			m.paragraphs[i].Gallery = append(m.paragraphs[i].Gallery, img)
			return nil
		}
	}
	return fmt.Errorf("markdown: entry %s image %s: %w", m.docUUID, id, apperr.ErrGalleryMissing)
}

// resolveImage numbers the image by encounter order. It must run exactly once
// per image token.
func (m *machine) resolveImage(ctx context.Context, id string) (Image, error) {
	a, err := m.parser.attachments.Attachment(ctx, id)
	if err != nil {
		return Image{}, fmt.Errorf("markdown: resolve image %s: %w", id, err)
	}
	counter := m.imageCounter
	m.imageCounter++
	return Image{
		Index:      counter,
		SourceName: a.SourceName(),
		OutputName: fmt.Sprintf("%s_%04d.%s", m.docUUID, counter, a.FileType),
		Attachment: *a,
	}, nil
}

// convertImageOnlyEntry handles entries whose cover phase never ended: every
// row was an image or blank, so the covers are really one gallery. Any other
// paragraph kind here is an anomaly; it is logged and the paragraphs are left
// untouched.
func (m *machine) convertImageOnlyEntry() {
	if m.coverPhaseDone {
		return
	}
	var gallery []Image
	wrongKind := false
	for _, p := range m.paragraphs {
		if isBlank(p) {
			continue
		}
		if p.Kind != KindCover {
			m.parser.logger.Warn("cover phase not done but found a non-cover paragraph",
				slog.String("entry_uuid", m.docUUID),
				slog.String("kind", string(p.Kind)))
			wrongKind = true
			continue
		}
		gallery = append(gallery, *p.Image)
	}
	if len(gallery) > 0 && !wrongKind {
		m.paragraphs = []Paragraph{{Kind: KindGallery, Gallery: gallery}}
	}
}

// CollapseSingleImageGalleries rewrites, in place, every gallery holding
// exactly one image into an image paragraph.
func CollapseSingleImageGalleries(paragraphs []Paragraph) {
	for i, p := range paragraphs {
		if p.Kind != KindGallery || len(p.Gallery) != 1 {
			continue
		}
		img := p.Gallery[0]
		paragraphs[i] = Paragraph{Kind: KindImage, Image: &img}
	}
}
