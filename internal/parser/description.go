package parser

import (
	"regexp"
	"strings"
)

const (
	defaultDescription = "Transaction"
	maxPhraseLen       = 50
	maxNameLen         = 100
)

// extractDescription names the counterparty of a block. Each direction has
// its own fallback chain: capture patterns, then keyword phrases per line,
// then a VPA, then the literal "Transaction".
func extractDescription(rules *Rules, lines []string, kind Kind) string {
	text := strings.Join(lines, " ")

	var (
		captures []*regexp.Regexp
		phrases  []keywordPhrase
		prefix   string
	)
	switch kind {
	case KindDebit:
		captures, phrases, prefix = rules.DebitCaptures, rules.DebitPhrases, "Paid to "
	case KindCredit:
		captures, phrases, prefix = rules.CreditCaptures, rules.CreditPhrases, "Received from "
	default:
		return defaultDescription
	}

	for _, re := range captures {
		if name := captureName(rules, re, lines); name != "" {
			return prefix + name
		}
	}

	if desc := keywordDescription(rules, lines, phrases); desc != "" {
		return desc
	}

	// VPA handles have no dot in the provider part, which keeps emails out.
	if m := rules.VPA.FindStringSubmatch(text); m != nil {
		return prefix + m[1]
	}
	return defaultDescription
}

// captureName runs a capture pattern line by line so a name never runs
// into the next line. A keyword left at the end of a line is read together
// with the line below it.
func captureName(rules *Rules, re *regexp.Regexp, lines []string) string {
	for i, line := range lines {
		sources := []string{line}
		if i+1 < len(lines) {
			sources = append(sources, line+" "+lines[i+1])
		}
		for _, src := range sources {
			loc := re.FindStringSubmatchIndex(src)
			if loc == nil || loc[0] >= len(line) {
				continue
			}
			name := cleanName(src[loc[2]:loc[3]])
			if name != "" && !rules.Institution.MatchString(name) {
				return name
			}
		}
	}
	return ""
}

// keywordDescription scans each line for a keyword and describes the block
// by the phrase that follows it, e.g. "Purchase at Store".
func keywordDescription(rules *Rules, lines []string, phrases []keywordPhrase) string {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, p := range phrases {
			idx := strings.Index(lower, p.Keyword)
			if idx < 0 {
				continue
			}
			name := cleanName(firstPhrase(line[idx+len(p.Keyword):]))
			if name == "" || strings.EqualFold(name, "you") {
				continue
			}
			if !p.AllowInstitution && rules.Institution.MatchString(name) {
				continue
			}
			return capitalize(p.Keyword) + " " + name
		}
	}
	return ""
}

// firstPhrase strips dates, amounts, times and ids from the text after a
// keyword and keeps at most maxPhraseLen characters.
func firstPhrase(s string) string {
	s = numDatePattern.ReplaceAllString(s, " ")
	s = textDatePattern.ReplaceAllString(s, " ")
	s = moneyPattern.ReplaceAllString(s, " ")
	s = clockPattern.ReplaceAllString(s, " ")
	s = upiNumericPattern.ReplaceAllString(s, " ")
	s = spacesPattern.ReplaceAllString(strings.TrimSpace(s), " ")
	s = truncate(s, maxPhraseLen)
	return trailingJunk.ReplaceAllString(s, "")
}

// cleanName trims honorifics, trailing identifiers, dates and amounts from a
// captured counterparty name.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = honorificPattern.ReplaceAllString(name, "")
	name = nameTailPattern.ReplaceAllString(name, "")
	name = numDatePattern.ReplaceAllString(name, "")
	name = moneyPattern.ReplaceAllString(name, "")
	name = upiNumericPattern.ReplaceAllString(name, "")
	name = spacesPattern.ReplaceAllString(name, " ")
	name = strings.Trim(name, " ,.-")
	if len([]rune(name)) > maxNameLen {
		name = truncate(name, maxNameLen-3) + "..."
	}
	return name
}
