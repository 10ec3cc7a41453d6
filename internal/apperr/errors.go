// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	// ErrNotFound is returned when an entry, attachment or other record
	// referenced by id or identifier does not exist in the Day One store.
	ErrNotFound = errors.New("not found")

	// ErrGalleryMissing means an image was routed to gallery handling but no
	// open gallery paragraph could be located.
	ErrGalleryMissing = errors.New("gallery paragraph missing")
)
