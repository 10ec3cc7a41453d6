package markdown

import (
	"regexp"
	"strings"
)

var (
	hanRe        = regexp.MustCompile(`[\x{3400}-\x{9FBF}]`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// SlugMapping is the user supplied title to slug table.
type SlugMapping interface {
	Lookup(title string) (string, bool)
}

// ContainsHan reports whether s has characters in the CJK ideograph ranges
// that need a mapped slug.
func ContainsHan(s string) bool {
	return hanRe.MatchString(s)
}

// Slugify derives the slug for title. Titles with Han characters are looked
// up in mapping; the second result is false when such a title had no entry
// (or an empty one) and the plain transform was used instead.
func Slugify(title string, mapping SlugMapping) (string, bool) {
	if !ContainsHan(title) {
		return hyphenate(title), true
	}
	if mapping != nil {
		if slug, ok := mapping.Lookup(title); ok && slug != "" {
			return slug, true
		}
	}
	return hyphenate(title), false
}

func hyphenate(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(s), "-")
}
