package parser

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// parseAmount converts a string like "1,234.56" or "₹ 1,234.56" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00A0", "") // non-breaking space
	return decimal.NewFromString(s)
}

// parseDate tries each configured layout in order and returns the first
// that parses, at the start of that day in the rules' location.
func parseDate(rules *Rules, s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), " ")
	s = normalizeMonth(s)
	for _, layout := range rules.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, rules.Location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeMonth rewrites "Sept" to "Sep", which Go's layouts do not accept.
func normalizeMonth(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.EqualFold(f, "sept") {
			fields[i] = "Sep"
		}
	}
	return strings.Join(fields, " ")
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// capitalize upper-cases the first letter of a keyword for display.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
