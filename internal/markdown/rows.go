package markdown

import (
	"regexp"
	"strings"
	"unicode"
)

var lineBreakRe = regexp.MustCompile(`\r\n|\r|\n`)

// NormalizeRow drops every backslash and trims surrounding whitespace; the app
// escapes markdown control characters and the escapes carry no meaning here.
func NormalizeRow(raw string) string {
	unescaped := strings.ReplaceAll(raw, `\`, "")
	return strings.TrimFunc(unescaped, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// SplitRows splits a document on any line separator and normalizes each row.
func SplitRows(doc string) []string {
	raw := lineBreakRe.Split(doc, -1)
	rows := make([]string, len(raw))
	for i, r := range raw {
		rows[i] = NormalizeRow(r)
	}
	return rows
}

// extractTitle finds the first row that is neither empty nor a reference,
// strips its heading marks and rewrites it in place as a level-1 heading.
func extractTitle(rows []string) (string, bool) {
	for i, row := range rows {
		if row == "" || isReference(row) {
			continue
		}
		title := stripHeading(row)
		rows[i] = "# " + title
		return title, true
	}
	return "", false
}
