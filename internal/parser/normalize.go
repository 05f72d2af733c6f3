package parser

import (
	"regexp"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n|\r`)

// normalizeLines splits raw statement text into cleaned candidate lines.
// Line order is preserved: a transaction's fields are spread over
// consecutive lines.
func normalizeLines(rules *Rules, text string) []string {
	raw := lineBreak.Split(text, -1)
	lines := make([]string, 0, len(raw))
	for _, r := range raw {
		// strings.Fields splits on unicode.IsSpace, which covers the NBSP
		// and figure-space artifacts PDF extraction leaves behind.
		line := strings.Join(strings.Fields(r), " ")
		if line == "" || isNoiseLine(rules, line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// isNoiseLine reports whether a line is statement furniture: balances,
// column headers, page markers.
func isNoiseLine(rules *Rules, line string) bool {
	lower := strings.ToLower(line)
	if containsAny(lower, rules.NoisePhrases) {
		return true
	}
	if rules.HeaderLine.MatchString(line) || rules.PageMarker.MatchString(line) {
		return true
	}
	return isColumnHeader(lower)
}

// isColumnHeader catches table headers such as "Date Time Transaction Details".
func isColumnHeader(lower string) bool {
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "time") || strings.Contains(lower, "&")) &&
		(strings.Contains(lower, "transaction") || strings.Contains(lower, "details"))
}
