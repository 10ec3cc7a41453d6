package markdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/dayone2md/internal/apperr"
	"github.com/starford/dayone2md/internal/models"
)

const docUUID = "0F8A1C2B3D4E5F60718293A4B5C6D7E8"

// fakeAttachments serves every identifier listed in known and counts lookups.
type fakeAttachments struct {
	known map[string]bool
	calls int
}

func (f *fakeAttachments) Attachment(_ context.Context, identifier string) (*models.Attachment, error) {
	f.calls++
	if f.known != nil && !f.known[identifier] {
		return nil, apperr.ErrNotFound
	}
	return &models.Attachment{
		Identifier: identifier,
		Filename:   strings.ToLower(identifier),
		FileType:   "jpeg",
	}, nil
}

func testParser(t *testing.T, src AttachmentSource, mapping SlugMapping) *Parser {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewParser(src, mapping, logger)
}

func img(n int) string {
	return "![](dayone-moment://" + id(n) + ")"
}

func id(n int) string {
	s := strings.Repeat("A", 31)
	return s + string(rune('0'+n))
}

func post(n int) string {
	return "[linked post](dayone2://view?entryId=" + id(n) + ")"
}

func kinds(ps []Paragraph) []Kind {
	out := make([]Kind, len(ps))
	for i, p := range ps {
		out[i] = p.Kind
	}
	return out
}

func assertKinds(t *testing.T, ps []Paragraph, want ...Kind) {
	t.Helper()
	got := kinds(ps)
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	}
}

func assertIndexes(t *testing.T, images []Image, want ...int) {
	t.Helper()
	if len(images) != len(want) {
		t.Fatalf("len(images) = %d, want %d", len(images), len(want))
	}
	for i, im := range images {
		if im.Index != want[i] {
			t.Errorf("images[%d].Index = %d, want %d", i, im.Index, want[i])
		}
	}
}

func TestParse_ImageOnlyEntryBecomesGallery(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	doc, err := p.Parse(context.Background(), docUUID, strings.Join([]string{img(0), "", img(1), "", img(2)}, "\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertKinds(t, doc.Paragraphs, KindGallery)
	assertIndexes(t, doc.Paragraphs[0].Gallery, 0, 1, 2)
	if doc.HasTitle {
		t.Errorf("image-only entry should have no title, got %q", doc.Title)
	}
}

func TestParse_CoverThenText(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	doc, err := p.Parse(context.Background(), docUUID, img(0)+"\n\nHello there")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertKinds(t, doc.Paragraphs, KindCover, KindText, KindText)
	if doc.Paragraphs[0].Image.Index != 0 {
		t.Errorf("cover index = %d", doc.Paragraphs[0].Image.Index)
	}
	if doc.Paragraphs[1].Text != "" {
		t.Errorf("blank paragraph = %q", doc.Paragraphs[1].Text)
	}
	// The first text row is the title and is rewritten as a heading.
	if doc.Paragraphs[2].Text != "# Hello there" {
		t.Errorf("text = %q", doc.Paragraphs[2].Text)
	}
	if doc.Title != "Hello there" || doc.Slug != "hello-there" {
		t.Errorf("title/slug = %q/%q", doc.Title, doc.Slug)
	}
}

func TestRun_CoverThenPlainText(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	ps, err := p.run(context.Background(), docUUID, []string{img(0), "", "text"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assertKinds(t, ps, KindCover, KindText, KindText)
	if ps[2].Text != "text" {
		t.Errorf("text = %q", ps[2].Text)
	}
}

func TestParse_SingleGalleryImageCollapses(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	doc, err := p.Parse(context.Background(), docUUID, "Title\n\nbody\n"+img(0)+"\nafter")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertKinds(t, doc.Paragraphs, KindText, KindText, KindText, KindImage, KindText)
	if doc.Paragraphs[3].Image.Index != 0 {
		t.Errorf("image index = %d", doc.Paragraphs[3].Image.Index)
	}
}

func TestParse_GalleryRunSkipsBlankRows(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	raw := strings.Join([]string{img(0), "Title", img(1), "", img(2), "", "", img(3), "tail"}, "\n")
	doc, err := p.Parse(context.Background(), docUUID, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertKinds(t, doc.Paragraphs, KindCover, KindText, KindGallery, KindText)
	assertIndexes(t, doc.Paragraphs[2].Gallery, 1, 2, 3)
	if doc.Paragraphs[0].Image.Index != 0 {
		t.Errorf("cover index = %d", doc.Paragraphs[0].Image.Index)
	}
}

func TestParse_PostTerminatesGallery(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	raw := strings.Join([]string{"Title", img(0), img(1), post(9), img(2), img(3)}, "\n")
	doc, err := p.Parse(context.Background(), docUUID, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertKinds(t, doc.Paragraphs, KindText, KindGallery, KindPost, KindGallery)
	assertIndexes(t, doc.Paragraphs[1].Gallery, 0, 1)
	assertIndexes(t, doc.Paragraphs[3].Gallery, 2, 3)
	if doc.Paragraphs[2].Post.UUID != id(9) {
		t.Errorf("post uuid = %q", doc.Paragraphs[2].Post.UUID)
	}
}

func TestParse_PostEndsCoverPhase(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	raw := strings.Join([]string{img(0), post(5), img(1), "", "Real title"}, "\n")
	doc, err := p.Parse(context.Background(), docUUID, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// The lone image after the post is a one-image gallery, collapsed.
	assertKinds(t, doc.Paragraphs, KindCover, KindPost, KindImage, KindText)
	if doc.Title != "Real title" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Paragraphs[3].Text != "# Real title" {
		t.Errorf("title row = %q", doc.Paragraphs[3].Text)
	}
}

func TestParse_OutputNames(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	doc, err := p.Parse(context.Background(), docUUID, img(0)+"\nx\n"+img(1))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cover := doc.Paragraphs[0].Image
	if cover.OutputName != docUUID+"_0000.jpeg" {
		t.Errorf("output name = %q", cover.OutputName)
	}
	if cover.SourceName != strings.ToLower(id(0))+".jpeg" {
		t.Errorf("source name = %q", cover.SourceName)
	}
	if last := doc.Paragraphs[2].Image; last.OutputName != docUUID+"_0001.jpeg" {
		t.Errorf("output name = %q", last.OutputName)
	}
}

func TestParse_UnknownAttachmentFails(t *testing.T) {
	src := &fakeAttachments{known: map[string]bool{id(0): true}}
	p := testParser(t, src, nil)
	_, err := p.Parse(context.Background(), docUUID, img(0)+"\ntext\n"+img(1))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParse_ResolvesEachTokenOnce(t *testing.T) {
	src := &fakeAttachments{}
	p := testParser(t, src, nil)
	raw := strings.Join([]string{img(0), img(1), "", "t", img(2), img(3), "x", img(4)}, "\n")
	if _, err := p.Parse(context.Background(), docUUID, raw); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if src.calls != 5 {
		t.Errorf("attachment lookups = %d, want 5", src.calls)
	}
}

func TestParse_BlankEntry(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	doc, err := p.Parse(context.Background(), docUUID, "\n\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Pass A has no images to collect and leaves the blanks alone.
	assertKinds(t, doc.Paragraphs, KindText, KindText, KindText)
}

func TestParse_MappedSlug(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, mapTable{"周末 游记": "weekend-trip"})
	doc, err := p.Parse(context.Background(), docUUID, "## 周末 游记\nbody")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title != "周末 游记" || doc.Slug != "weekend-trip" {
		t.Errorf("title/slug = %q/%q", doc.Title, doc.Slug)
	}
}

func TestHeading_DoesNotResolveImages(t *testing.T) {
	p := testParser(t, nil, nil)
	title, slug, ok := p.Heading(img(0) + "\n\n# Trip Notes\n" + img(1))
	if !ok || title != "Trip Notes" || slug != "trip-notes" {
		t.Errorf("Heading = %q, %q, %v", title, slug, ok)
	}
}

func TestConvertImageOnlyEntry_WrongKindKeepsParagraphs(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	cover := Image{Index: 0}
	m := &machine{parser: p, docUUID: docUUID}
	m.paragraphs = []Paragraph{
		{Kind: KindCover, Image: &cover},
		textParagraph(""),
		{Kind: KindPost, Post: &PostRef{UUID: id(1)}},
	}
	m.convertImageOnlyEntry()
	assertKinds(t, m.paragraphs, KindCover, KindText, KindPost)
}

func TestHandleGalleryRow_NeverTouchesFirstParagraph(t *testing.T) {
	p := testParser(t, &fakeAttachments{}, nil)
	m := &machine{parser: p, docUUID: docUUID, coverPhaseDone: true}
	err := m.handleRow(context.Background(), img(0))
	if !errors.Is(err, apperr.ErrGalleryMissing) {
		t.Fatalf("err = %v, want ErrGalleryMissing", err)
	}
	if len(m.paragraphs[0].Gallery) != 0 {
		t.Errorf("gallery at index 0 was mutated")
	}
}

func TestCollapseSingleImageGalleries_Idempotent(t *testing.T) {
	ps := []Paragraph{
		{Kind: KindGallery, Gallery: []Image{{Index: 0}}},
		textParagraph("x"),
		{Kind: KindGallery, Gallery: []Image{{Index: 1}, {Index: 2}}},
	}
	CollapseSingleImageGalleries(ps)
	once := kinds(ps)
	CollapseSingleImageGalleries(ps)
	assertKinds(t, ps, once...)
	assertKinds(t, ps, KindImage, KindText, KindGallery)
	if ps[0].Image.Index != 0 {
		t.Errorf("collapsed image index = %d", ps[0].Image.Index)
	}
}

func TestDocumentHasImages(t *testing.T) {
	d := &Document{Paragraphs: []Paragraph{textParagraph("a")}}
	if d.HasImages() {
		t.Error("text-only document reports images")
	}
	im := Image{}
	d.Paragraphs = append(d.Paragraphs, Paragraph{Kind: KindImage, Image: &im})
	if !d.HasImages() {
		t.Error("expected images")
	}
}
