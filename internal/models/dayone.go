// Package models defines the Day One records read from the journal database.
package models

import (
	"math"
	"time"
)

// CoreDataEpoch is the reference instant of Core Data timestamps (2001-01-01 UTC).
var CoreDataEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Entry is one journal post.
type Entry struct {
	ID   int64
	UUID string // value in "[title](dayone2://view?entryId=<UUID>)"

	// Gregorian calendar fields as stored by the app.
	Year  int
	Month int
	Day   int

	LocationID int64 // 0 when the entry has no location
	WeatherID  int64 // 0 when the entry has no weather

	// CreatedAt is in Core Data seconds, see Created.
	CreatedAt float64
	Markdown  string
}

// Created returns the creation instant.
func (e *Entry) Created() time.Time {
	sec, frac := math.Modf(e.CreatedAt)
	return CoreDataEpoch.Add(time.Duration(sec)*time.Second + time.Duration(frac*float64(time.Second)))
}

// Weather is the weather snapshot attached to an entry.
type Weather struct {
	ID          int64
	EntryID     int64
	Humidity    float64
	Temperature float64
	Condition   string
}

// Location is the place attached to an entry.
type Location struct {
	ID        int64
	Altitude  float64
	Latitude  float64
	Longitude float64
	Address   string
	PlaceName string
	City      string
	Province  string
	Country   string
}

// Tag is a user tag.
type Tag struct {
	ID   int64
	Name string
}

// Attachment is a photo stored in the app's photo directory.
type Attachment struct {
	ID         int64
	EntryID    int64
	Identifier string // value in "![](dayone-moment://<Identifier>)"
	Filename   string // md5 of the file content, the on-disk stem
	FileType   string // extension without the dot
}

// SourceName is the file name inside the app's photo directory.
func (a *Attachment) SourceName() string {
	return a.Filename + "." + a.FileType
}
