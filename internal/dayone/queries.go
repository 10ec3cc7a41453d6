package dayone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/dayone2md/internal/apperr"
	"github.com/starford/dayone2md/internal/models"
)

// ZCREATIONDATE is declared TIMESTAMP; the cast keeps the driver from
// converting integral values into time.Time.
const entryColumns = `
	Z_PK,
	COALESCE(ZUUID, ''),
	COALESCE(ZGREGORIANYEAR, 0),
	COALESCE(ZGREGORIANMONTH, 0),
	COALESCE(ZGREGORIANDAY, 0),
	COALESCE(ZLOCATION, 0),
	COALESCE(ZWEATHER, 0),
	CAST(COALESCE(ZCREATIONDATE, 0) AS REAL),
	COALESCE(ZMARKDOWNTEXT, '')
`

const (
	entryIDsStatement = `SELECT Z_PK FROM ZENTRY ORDER BY Z_PK`

	entryByIDStatement = `SELECT ` + entryColumns + ` FROM ZENTRY WHERE Z_PK = ?`

	entryByUUIDStatement = `SELECT ` + entryColumns + ` FROM ZENTRY WHERE ZUUID = ?`

	weatherStatement = `
	SELECT Z_PK, COALESCE(ZENTRY, 0), COALESCE(ZRELATIVEHUMIDITY, 0),
	       COALESCE(ZTEMPERATURECELSIUS, 0), COALESCE(ZCONDITIONSDESCRIPTION, '')
	FROM ZWEATHER
	WHERE Z_PK = ?
	`

	locationStatement = `
	SELECT Z_PK, COALESCE(ZALTITUDE, 0), COALESCE(ZLATITUDE, 0), COALESCE(ZLONGITUDE, 0),
	       COALESCE(ZADDRESS, ''), COALESCE(ZPLACENAME, ''), COALESCE(ZLOCALITYNAME, ''),
	       COALESCE(ZADMINISTRATIVEAREA, ''), COALESCE(ZCOUNTRY, '')
	FROM ZLOCATION
	WHERE Z_PK = ?
	`

	tagStatement = `SELECT Z_PK, COALESCE(ZNAME, '') FROM ZTAG WHERE Z_PK = ?`

	entryTagIDsStatement = `SELECT Z_44TAGS1 FROM Z_12TAGS WHERE Z_12ENTRIES = ? ORDER BY Z_44TAGS1`

	attachmentStatement = `
	SELECT Z_PK, COALESCE(ZENTRY, 0), ZIDENTIFIER, COALESCE(ZMD5, ''), COALESCE(ZTYPE, '')
	FROM ZATTACHMENT
	WHERE ZIDENTIFIER = ?
	`
)

// EntryIDs returns the primary key of every entry.
func (s *Store) EntryIDs(ctx context.Context) ([]int64, error) {
	return cached(s.cache, "entryAllIds", "all", func() ([]int64, error) {
		return s.int64s(ctx, "entry ids", entryIDsStatement)
	})
}

// EntryByID returns the entry with primary key id.
func (s *Store) EntryByID(ctx context.Context, id int64) (*models.Entry, error) {
	return cached(s.cache, "entryDetailById", id, func() (*models.Entry, error) {
		return s.entry(ctx, entryByIDStatement, id)
	})
}

// EntryByUUID returns the entry whose UUID is uuid.
func (s *Store) EntryByUUID(ctx context.Context, uuid string) (*models.Entry, error) {
	return cached(s.cache, "entryDetailByUuid", uuid, func() (*models.Entry, error) {
		return s.entry(ctx, entryByUUIDStatement, uuid)
	})
}

// Weather returns the weather row with primary key id.
func (s *Store) Weather(ctx context.Context, id int64) (*models.Weather, error) {
	return cached(s.cache, "weatherDetail", id, func() (*models.Weather, error) {
		var w models.Weather
		err := s.conn.QueryRowContext(ctx, weatherStatement, id).Scan(
			&w.ID, &w.EntryID, &w.Humidity, &w.Temperature, &w.Condition,
		)
		if err != nil {
			return nil, notFound(err, "weather", id)
		}
		return &w, nil
	})
}

// Location returns the location row with primary key id.
func (s *Store) Location(ctx context.Context, id int64) (*models.Location, error) {
	return cached(s.cache, "locationDetail", id, func() (*models.Location, error) {
		var l models.Location
		err := s.conn.QueryRowContext(ctx, locationStatement, id).Scan(
			&l.ID, &l.Altitude, &l.Latitude, &l.Longitude,
			&l.Address, &l.PlaceName, &l.City, &l.Province, &l.Country,
		)
		if err != nil {
			return nil, notFound(err, "location", id)
		}
		return &l, nil
	})
}

// Tag returns the tag with primary key id.
func (s *Store) Tag(ctx context.Context, id int64) (*models.Tag, error) {
	return cached(s.cache, "tagDetail", id, func() (*models.Tag, error) {
		var t models.Tag
		if err := s.conn.QueryRowContext(ctx, tagStatement, id).Scan(&t.ID, &t.Name); err != nil {
			return nil, notFound(err, "tag", id)
		}
		return &t, nil
	})
}

// EntryTagIDs returns the tag ids attached to an entry.
func (s *Store) EntryTagIDs(ctx context.Context, entryID int64) ([]int64, error) {
	return cached(s.cache, "entryTagIds", entryID, func() ([]int64, error) {
		return s.int64s(ctx, "entry tag ids", entryTagIDsStatement, entryID)
	})
}

// Attachment returns the attachment referenced by an image token identifier.
func (s *Store) Attachment(ctx context.Context, identifier string) (*models.Attachment, error) {
	return cached(s.cache, "attachmentDetail", identifier, func() (*models.Attachment, error) {
		var a models.Attachment
		err := s.conn.QueryRowContext(ctx, attachmentStatement, identifier).Scan(
			&a.ID, &a.EntryID, &a.Identifier, &a.Filename, &a.FileType,
		)
		if err != nil {
			return nil, notFound(err, "attachment", identifier)
		}
		return &a, nil
	})
}

func (s *Store) entry(ctx context.Context, stmt string, arg any) (*models.Entry, error) {
	var e models.Entry
	err := s.conn.QueryRowContext(ctx, stmt, arg).Scan(
		&e.ID, &e.UUID, &e.Year, &e.Month, &e.Day,
		&e.LocationID, &e.WeatherID, &e.CreatedAt, &e.Markdown,
	)
	if err != nil {
		return nil, notFound(err, "entry", arg)
	}
	return &e, nil
}

func (s *Store) int64s(ctx context.Context, what, stmt string, args ...any) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("dayone: %s: %w", what, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dayone: scan %s: %w", what, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// notFound maps sql.ErrNoRows onto apperr.ErrNotFound and wraps anything else.
func notFound(err error, what string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("dayone: %s %v: %w", what, key, apperr.ErrNotFound)
	}
	return fmt.Errorf("dayone: %s %v: %w", what, key, err)
}
