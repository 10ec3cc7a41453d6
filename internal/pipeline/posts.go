package pipeline

import (
	"context"
	"fmt"

	"github.com/starford/dayone2md/internal/models"
)

// PostLink is the resolved target of an embedded post reference.
type PostLink struct {
	UUID  string
	Title string
	Slug  string
}

// EntryFinder fetches a referenced entry.
type EntryFinder interface {
	EntryByUUID(ctx context.Context, uuid string) (*models.Entry, error)
}

// HeadingParser extracts title and slug without a full parse.
type HeadingParser interface {
	Heading(raw string) (title, slug string, ok bool)
}

// PostResolver turns post references into link targets. A referenced entry is
// only read for its heading, never parsed for its own references, so mutually
// referencing entries resolve in one step each. Results are kept for the
// lifetime of the resolver.
type PostResolver struct {
	entries  EntryFinder
	headings HeadingParser
	memo     map[string]PostLink
}

// NewPostResolver creates a resolver with an empty memo.
func NewPostResolver(entries EntryFinder, headings HeadingParser) *PostResolver {
	return &PostResolver{entries: entries, headings: headings, memo: make(map[string]PostLink)}
}

// Resolve returns the link for the entry with the given UUID. An unknown UUID
// fails with an error wrapping apperr.ErrNotFound.
func (r *PostResolver) Resolve(ctx context.Context, uuid string) (PostLink, error) {
	if link, ok := r.memo[uuid]; ok {
		return link, nil
	}
	e, err := r.entries.EntryByUUID(ctx, uuid)
	if err != nil {
		return PostLink{}, fmt.Errorf("pipeline: resolve post %s: %w", uuid, err)
	}
	link := PostLink{UUID: uuid}
	title, slug, ok := r.headings.Heading(e.Markdown)
	if ok && slug != "" {
		link.Title, link.Slug = title, slug
	} else {
		link.Slug = fallbackSlug(entryUUID(e))
		link.Title = link.Slug
	}
	r.memo[uuid] = link
	return link, nil
}
