package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dayone2md/internal/models"
)

// Frontmatter is the YAML header of a note. Field order is the output order.
type Frontmatter struct {
	UUID     string   `yaml:"uuid"`
	Path     string   `yaml:"path"`
	Date     string   `yaml:"date"`
	Slug     string   `yaml:"slug"`
	Title    string   `yaml:"title"`
	Location Location `yaml:"location"`
	Weather  Weather  `yaml:"weather"`
}

// Location is the frontmatter location block. Nil fields are written as null.
type Location struct {
	Altitude  *float64 `yaml:"altitude"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Address   *string  `yaml:"address"`
	PlaceName *string  `yaml:"placename"`
	District  *string  `yaml:"district"`
	City      *string  `yaml:"city"`
	Province  *string  `yaml:"province"`
	Country   *string  `yaml:"country"`
}

// Weather is the frontmatter weather block. Nil fields are written as null.
type Weather struct {
	Temperature *float64 `yaml:"temperature"`
	Humidity    *float64 `yaml:"humidity"`
	Weather     *string  `yaml:"weather"`
	Time        *string  `yaml:"time"`
	AQI         *int     `yaml:"aqi"`
}

func newLocation(l *models.Location) Location {
	return Location{
		Altitude:  ptr(l.Altitude),
		Latitude:  ptr(l.Latitude),
		Longitude: ptr(l.Longitude),
		Address:   nullable(l.Address),
		PlaceName: nullable(l.PlaceName),
		City:      nullable(l.City),
		Province:  nullable(l.Province),
		Country:   nullable(l.Country),
	}
}

func newWeather(w *models.Weather, created time.Time) Weather {
	return Weather{
		Temperature: ptr(w.Temperature),
		Humidity:    ptr(w.Humidity),
		Weather:     nullable(w.Condition),
		Time:        ptr(created.Format("15:04:05")),
	}
}

func ptr[T any](v T) *T { return &v }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DateString formats calendar fields as YYYY-MM-DD.
func DateString(year, month, day int) string {
	return fmt.Sprintf("%d-%02d-%02d", year, month, day)
}

// NotePath is the vault location of an entry: /YYYY/MM/YYYYMMDD-slug.
func NotePath(year, month, day int, slug string) string {
	return fmt.Sprintf("/%d/%02d/%d%02d%02d-%s", year, month, year, month, day, slug)
}

// Tags returns the calendar tags of a date followed by one tag per name.
func Tags(year, month, day int, names ...string) []string {
	tags := []string{
		fmt.Sprintf("#Y%d", year),
		fmt.Sprintf("#M%d%02d", year, month),
		fmt.Sprintf("#M%02d", month),
		fmt.Sprintf("#D%d%02d%02d", year, month, day),
		fmt.Sprintf("#D%02d%02d", month, day),
	}
	for _, name := range names {
		tags = append(tags, "#"+name)
	}
	return tags
}

// entryUUID returns the identifier written to frontmatter: the entry's own
// UUID, or a name-based one derived from its row id when the store has none.
func entryUUID(e *models.Entry) string {
	if e.UUID != "" {
		return e.UUID
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "dayone-entry:%d", e.ID))
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}

// fallbackSlug names the files of an entry without any title.
func fallbackSlug(entryUUID string) string {
	return strings.ToLower(entryUUID)
}
