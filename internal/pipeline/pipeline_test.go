package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/starford/dayone2md/internal/apperr"
	"github.com/starford/dayone2md/internal/dayone"
	"github.com/starford/dayone2md/internal/markdown"
	"github.com/starford/dayone2md/internal/models"
	"github.com/starford/dayone2md/internal/testutil"
)

func newPipeline(t *testing.T, fx *testutil.Fixture, mapping markdown.SlugMapping) (*Pipeline, *dayone.Store) {
	t.Helper()
	store, err := dayone.Open(fx.Path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	parser := markdown.NewParser(store, mapping, testutil.Logger())
	return New(store, parser, time.UTC, testutil.Logger()), store
}

func entry(t *testing.T, s *dayone.Store, id int64) *models.Entry {
	t.Helper()
	e, err := s.EntryByID(context.Background(), id)
	if err != nil {
		t.Fatalf("EntryByID: %v", err)
	}
	return e
}

func TestStages_Order(t *testing.T) {
	p := New(nil, nil, nil, testutil.Logger())
	want := []string{"location", "weather", "tags", "content", "frontmatter"}
	if got := p.Stages(); !slices.Equal(got, want) {
		t.Errorf("Stages = %v, want %v", got, want)
	}
}

func TestProcess_FullEntry(t *testing.T) {
	fx := testutil.NewFixture(t)
	otherUUID := fx.AddEntry(testutil.FixtureEntry{ID: 2, Year: 2021, Month: 8, Day: 30, Markdown: "# Earlier Day"})
	uuid := fx.AddEntry(testutil.FixtureEntry{
		ID: 1, Year: 2021, Month: 9, Day: 10, LocationID: 5, WeatherID: 6, CreatedAt: 652958240,
	})
	cover := fx.AddAttachment(100, 1)
	fx.Exec(`UPDATE ZENTRY SET ZMARKDOWNTEXT = ? WHERE Z_PK = 1`,
		testutil.ImageToken(cover)+"\n\n## My Day\n"+testutil.PostToken("see", otherUUID))
	fx.AddWeather(6, 1, 0.6, 21.5, "Sunny")
	fx.AddLocation(5, 31.2, 121.4, "Bund", "Shanghai", "Shanghai", "China")
	fx.AddTag(10, 1, "travel")

	p, store := newPipeline(t, fx, nil)
	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	fm := n.Frontmatter
	if fm.UUID != uuid || fm.Slug != "my-day" || fm.Title != "My Day" {
		t.Errorf("frontmatter = %+v", fm)
	}
	if fm.Path != "/2021/09/20210910-my-day" || fm.Date != "2021-09-10" {
		t.Errorf("path/date = %q/%q", fm.Path, fm.Date)
	}
	if n.Dir() != "2021/09/20210910-my-day" || n.FileName() != "my-day.md" {
		t.Errorf("dir/file = %q/%q", n.Dir(), n.FileName())
	}

	if fm.Location.PlaceName == nil || *fm.Location.PlaceName != "Bund" {
		t.Errorf("placename = %v", fm.Location.PlaceName)
	}
	if fm.Location.Address != nil || fm.Location.District != nil {
		t.Error("empty address and district should be null")
	}
	if fm.Location.Latitude == nil || *fm.Location.Latitude != 31.2 {
		t.Errorf("latitude = %v", fm.Location.Latitude)
	}
	if fm.Weather.Time == nil || *fm.Weather.Time != "09:17:20" {
		t.Errorf("weather time = %v", fm.Weather.Time)
	}
	if fm.Weather.Weather == nil || *fm.Weather.Weather != "Sunny" || fm.Weather.AQI != nil {
		t.Errorf("weather = %+v", fm.Weather)
	}

	wantTags := []string{"#Y2021", "#M202109", "#M09", "#D20210910", "#D0910", "#travel"}
	if !slices.Equal(n.Tags, wantTags) {
		t.Errorf("tags = %v, want %v", n.Tags, wantTags)
	}

	link, ok := n.Posts[otherUUID]
	if !ok || link.Title != "Earlier Day" || link.Slug != "earlier-day" {
		t.Errorf("post link = %+v, %v", link, ok)
	}
	if n.Document.Paragraphs[0].Kind != markdown.KindCover {
		t.Errorf("first paragraph = %q", n.Document.Paragraphs[0].Kind)
	}
	if got := n.Document.Paragraphs[0].Image.OutputName; got != uuid+"_0000.jpeg" {
		t.Errorf("output name = %q", got)
	}
}

func TestProcess_WeatherTimeUsesZone(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Year: 2021, Month: 9, Day: 10, WeatherID: 6, CreatedAt: 652958240, Markdown: "x"})
	fx.AddWeather(6, 1, 0.5, 20, "Clear")
	store, err := dayone.Open(fx.Path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	p := New(store, markdown.NewParser(store, nil, testutil.Logger()), time.FixedZone("UTC+8", 8*3600), testutil.Logger())
	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := *n.Frontmatter.Weather.Time; got != "17:17:20" {
		t.Errorf("time = %q, want 17:17:20", got)
	}
}

func TestProcess_NoLocationNoWeather(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Year: 2020, Month: 1, Day: 2, Markdown: "Hello"})
	p, store := newPipeline(t, fx, nil)

	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n.Frontmatter.Location != (Location{}) || n.Frontmatter.Weather != (Weather{}) {
		t.Errorf("blocks should be all null: %+v %+v", n.Frontmatter.Location, n.Frontmatter.Weather)
	}
	if len(n.Tags) != 5 {
		t.Errorf("tags = %v, want only calendar tags", n.Tags)
	}
}

func TestProcess_MissingLocationRowIsSkipped(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Year: 2020, Month: 1, Day: 2, LocationID: 99, Markdown: "Hello"})
	p, store := newPipeline(t, fx, nil)

	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n.Frontmatter.Location != (Location{}) {
		t.Errorf("location = %+v", n.Frontmatter.Location)
	}
}

func TestProcess_MappedSlug(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Year: 2021, Month: 9, Day: 1, Markdown: "测试t1\nbody"})
	p, store := newPipeline(t, fx, mapTable{"测试t1": "test-slug-1"})

	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n.Frontmatter.Path != "/2021/09/20210901-test-slug-1" {
		t.Errorf("path = %q", n.Frontmatter.Path)
	}
}

func TestProcess_NoTitleUsesUUID(t *testing.T) {
	fx := testutil.NewFixture(t)
	uuid := fx.AddEntry(testutil.FixtureEntry{ID: 1, Year: 2021, Month: 9, Day: 1})
	a := fx.AddAttachment(100, 1)
	b := fx.AddAttachment(101, 1)
	fx.Exec(`UPDATE ZENTRY SET ZMARKDOWNTEXT = ? WHERE Z_PK = 1`, testutil.ImageToken(a)+"\n\n"+testutil.ImageToken(b))
	p, store := newPipeline(t, fx, nil)

	n, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := fallbackSlug(uuid)
	if n.Slug != want || n.Frontmatter.Title != "" {
		t.Errorf("slug/title = %q/%q, want %q/\"\"", n.Slug, n.Frontmatter.Title, want)
	}
	if len(n.Document.Paragraphs) != 1 || n.Document.Paragraphs[0].Kind != markdown.KindGallery {
		t.Errorf("paragraphs = %+v", n.Document.Paragraphs)
	}
}

func TestProcess_UnknownPostFails(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Markdown: "Title\n" + testutil.PostToken("gone", testutil.NewID())})
	p, store := newPipeline(t, fx, nil)

	_, err := p.Process(context.Background(), entry(t, store, 1))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProcess_UnknownImageFails(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Markdown: "Title\n" + testutil.ImageToken(testutil.NewID())})
	p, store := newPipeline(t, fx, nil)

	_, err := p.Process(context.Background(), entry(t, store, 1))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProcess_MutualPostReferences(t *testing.T) {
	fx := testutil.NewFixture(t)
	a, b := testutil.NewID(), testutil.NewID()
	fx.AddEntry(testutil.FixtureEntry{ID: 1, UUID: a, Markdown: "Alpha\n" + testutil.PostToken("b", b)})
	fx.AddEntry(testutil.FixtureEntry{ID: 2, UUID: b, Markdown: "Beta\n" + testutil.PostToken("a", a)})
	p, store := newPipeline(t, fx, nil)

	na, err := p.Process(context.Background(), entry(t, store, 1))
	if err != nil {
		t.Fatalf("Process a: %v", err)
	}
	nb, err := p.Process(context.Background(), entry(t, store, 2))
	if err != nil {
		t.Fatalf("Process b: %v", err)
	}
	if na.Posts[b].Slug != "beta" || nb.Posts[a].Slug != "alpha" {
		t.Errorf("links = %+v / %+v", na.Posts, nb.Posts)
	}
}

func TestProcess_CanceledContext(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.AddEntry(testutil.FixtureEntry{ID: 1, Markdown: "x"})
	p, store := newPipeline(t, fx, nil)
	e := entry(t, store, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, e); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type mapTable map[string]string

func (m mapTable) Lookup(title string) (string, bool) {
	s, ok := m[title]
	return s, ok
}
