// Package testutil provides shared test helpers for building Day One fixture
// databases and temporary vaults.
package testutil

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dayone2md/internal/storage"
)

// Subset of the Day One Core Data schema the exporter reads.
const schemaSQL = `
CREATE TABLE ZENTRY (
	Z_PK INTEGER PRIMARY KEY,
	ZUUID VARCHAR,
	ZGREGORIANDAY INTEGER,
	ZGREGORIANMONTH INTEGER,
	ZGREGORIANYEAR INTEGER,
	ZLOCATION INTEGER,
	ZWEATHER INTEGER,
	ZCREATIONDATE TIMESTAMP,
	ZMARKDOWNTEXT VARCHAR
);
CREATE TABLE ZWEATHER (
	Z_PK INTEGER PRIMARY KEY,
	ZENTRY INTEGER,
	ZRELATIVEHUMIDITY FLOAT,
	ZTEMPERATURECELSIUS FLOAT,
	ZCONDITIONSDESCRIPTION VARCHAR
);
CREATE TABLE ZLOCATION (
	Z_PK INTEGER PRIMARY KEY,
	ZALTITUDE FLOAT,
	ZLATITUDE FLOAT,
	ZLONGITUDE FLOAT,
	ZADDRESS VARCHAR,
	ZPLACENAME VARCHAR,
	ZADMINISTRATIVEAREA VARCHAR,
	ZLOCALITYNAME VARCHAR,
	ZCOUNTRY VARCHAR
);
CREATE TABLE ZTAG (
	Z_PK INTEGER PRIMARY KEY,
	ZNAME VARCHAR
);
CREATE TABLE Z_12TAGS (
	Z_12ENTRIES INTEGER,
	Z_44TAGS1 INTEGER,
	PRIMARY KEY (Z_12ENTRIES, Z_44TAGS1)
);
CREATE TABLE ZATTACHMENT (
	Z_PK INTEGER PRIMARY KEY,
	ZENTRY INTEGER,
	ZIDENTIFIER VARCHAR,
	ZMD5 VARCHAR,
	ZTYPE VARCHAR
);
`

// Fixture is a writable Day One database used to seed tests.
type Fixture struct {
	t    *testing.T
	Path string
	conn *sql.DB
}

// FixtureEntry describes an entry to insert. Zero LocationID/WeatherID are stored as NULL.
type FixtureEntry struct {
	ID         int64
	UUID       string
	Year       int
	Month      int
	Day        int
	LocationID int64
	WeatherID  int64
	CreatedAt  float64
	Markdown   string
}

// NewFixture creates an empty Day One database in a temp dir. The file is
// named DayOne.sqlite like the real one.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DayOne.sqlite")
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := conn.Exec(schemaSQL); err != nil {
		t.Fatalf("apply fixture schema: %v", err)
	}
	return &Fixture{t: t, Path: path, conn: conn}
}

// NewID returns a Day One style identifier: 32 uppercase hex characters.
func NewID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// Exec runs a raw statement against the fixture.
func (f *Fixture) Exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.conn.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec %q: %v", query, err)
	}
}

// AddEntry inserts an entry and returns its UUID.
func (f *Fixture) AddEntry(e FixtureEntry) string {
	f.t.Helper()
	if e.UUID == "" {
		e.UUID = NewID()
	}
	f.Exec(`INSERT INTO ZENTRY (Z_PK, ZUUID, ZGREGORIANYEAR, ZGREGORIANMONTH, ZGREGORIANDAY,
		ZLOCATION, ZWEATHER, ZCREATIONDATE, ZMARKDOWNTEXT) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UUID, e.Year, e.Month, e.Day, nullID(e.LocationID), nullID(e.WeatherID), e.CreatedAt, e.Markdown)
	return e.UUID
}

// AddAttachment inserts a jpeg attachment for entryID and returns its identifier.
// The md5 column is set to the lower-cased identifier.
func (f *Fixture) AddAttachment(id, entryID int64) string {
	f.t.Helper()
	ident := NewID()
	f.Exec(`INSERT INTO ZATTACHMENT (Z_PK, ZENTRY, ZIDENTIFIER, ZMD5, ZTYPE) VALUES (?, ?, ?, ?, 'jpeg')`,
		id, entryID, ident, strings.ToLower(ident))
	return ident
}

// AddWeather inserts a weather row.
func (f *Fixture) AddWeather(id, entryID int64, humidity, temperature float64, condition string) {
	f.t.Helper()
	f.Exec(`INSERT INTO ZWEATHER (Z_PK, ZENTRY, ZRELATIVEHUMIDITY, ZTEMPERATURECELSIUS, ZCONDITIONSDESCRIPTION)
		VALUES (?, ?, ?, ?, ?)`, id, entryID, humidity, temperature, condition)
}

// AddLocation inserts a location row.
func (f *Fixture) AddLocation(id int64, lat, lng float64, place, city, province, country string) {
	f.t.Helper()
	f.Exec(`INSERT INTO ZLOCATION (Z_PK, ZALTITUDE, ZLATITUDE, ZLONGITUDE, ZADDRESS, ZPLACENAME,
		ZADMINISTRATIVEAREA, ZLOCALITYNAME, ZCOUNTRY) VALUES (?, 0, ?, ?, NULL, ?, ?, ?, ?)`,
		id, lat, lng, place, province, city, country)
}

// AddTag inserts a tag and links it to entryID.
func (f *Fixture) AddTag(id, entryID int64, name string) {
	f.t.Helper()
	f.Exec(`INSERT OR IGNORE INTO ZTAG (Z_PK, ZNAME) VALUES (?, ?)`, id, name)
	f.Exec(`INSERT INTO Z_12TAGS (Z_12ENTRIES, Z_44TAGS1) VALUES (?, ?)`, entryID, id)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// ImageToken renders an embedded image reference.
func ImageToken(identifier string) string {
	return "![](dayone-moment://" + identifier + ")"
}

// PostToken renders an embedded post reference.
func PostToken(text, uuid string) string {
	return "[" + text + "](dayone2://view?entryId=" + uuid + ")"
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Logger returns a logger that only surfaces errors, matching the noise level
// wanted in tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// WritePhoto creates the photo file for an attachment added with AddAttachment
// inside dir and returns its path.
func WritePhoto(t *testing.T, dir, identifier string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, strings.ToLower(identifier)+".jpeg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
