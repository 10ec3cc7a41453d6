package markdown

import (
	"regexp"
	"strings"
)

var (
	// ![](dayone-moment://9A2D00938E4C4967920ED8C83C3060AB)
	imageTokenRe = regexp.MustCompile(`!\[\]\(dayone-moment://([A-Z0-9]{32})\)`)

	// [Some post title 2019年1月8日 下午7:12](dayone2://view?entryId=CC08EAA4F4B144EBBA74E416DCDB0B66)
	postTokenRe = regexp.MustCompile(`\[.*\]\(dayone2://view\?entryId=([A-Z0-9]{32})\)`)

	headingMarkRe = regexp.MustCompile(`^#+`)
)

// ImageToken reports whether row embeds an image and returns the attachment identifier.
func ImageToken(row string) (string, bool) {
	m := imageTokenRe.FindStringSubmatch(row)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PostToken reports whether row embeds a link to another entry and returns
// that entry's UUID. Rows recognized as image tokens are never post tokens.
func PostToken(row string) (string, bool) {
	if _, ok := ImageToken(row); ok {
		return "", false
	}
	m := postTokenRe.FindStringSubmatch(row)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// isReference reports whether row is an image or post token.
func isReference(row string) bool {
	if _, ok := ImageToken(row); ok {
		return true
	}
	_, ok := PostToken(row)
	return ok
}

// stripHeading turns "## title" into "title".
func stripHeading(row string) string {
	return strings.TrimSpace(headingMarkRe.ReplaceAllString(row, ""))
}
