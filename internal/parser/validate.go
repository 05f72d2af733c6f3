package parser

import (
	"strings"

	"github.com/insightdelivered/upi-statement-extractor/internal/models"
)

// minContactResidue is how much text a block must keep once phone numbers
// and emails are removed before it counts as more than a contact footer.
const minContactResidue = 5

// blockNoiseReason reports why a whole block is statement furniture rather
// than a transaction, or "" when it is not.
func blockNoiseReason(rules *Rules, text string) string {
	lower := strings.ToLower(text)
	switch {
	case rules.HeaderLine.MatchString(text):
		return "header"
	case rules.Summary.MatchString(text):
		return "summary"
	case rules.HeaderRange.MatchString(text):
		return "header range"
	case strings.Contains(lower, "date & time"), strings.Contains(lower, "will not show up"):
		return "header"
	}
	if phonePattern.MatchString(text) && emailPattern.MatchString(text) {
		rest := emailPattern.ReplaceAllString(phonePattern.ReplaceAllString(text, ""), "")
		if len(strings.TrimSpace(rest)) < minContactResidue {
			return "contact footer"
		}
	}
	return ""
}

// rejectReason is the last gate before a record is emitted. It returns the
// reason a record is invalid or "" when it should be kept.
func rejectReason(rules *Rules, tx models.Transaction) string {
	if !rules.inRange(tx.Amount) {
		return "amount out of range"
	}
	if tx.Type != models.DirectionIncome && tx.Type != models.DirectionExpense {
		return "unknown direction"
	}

	desc := strings.TrimSpace(tx.Description)
	lower := strings.ToLower(desc)
	switch {
	case rules.HeaderLine.MatchString(desc):
		return "header description"
	case rules.Summary.MatchString(desc):
		return "summary description"
	case rules.DateOnly.MatchString(desc):
		return "date-only description"
	case rules.HeaderRange.MatchString(desc):
		return "header range description"
	case containsAny(lower, []string{"date & time", "transaction details", "will not show up", "statement period"}):
		return "header description"
	case strings.Contains(lower, "page") && strings.Contains(lower, " of "):
		return "page marker description"
	}

	stripped := numDatePattern.ReplaceAllString(desc, "")
	stripped = textDatePattern.ReplaceAllString(stripped, "")
	stripped = clockPattern.ReplaceAllString(stripped, "")
	if len(strings.TrimSpace(stripped)) < 3 && strings.ContainsAny(desc, "0123456789") {
		return "description is only a date"
	}
	return ""
}

// dedupKey identifies a record for duplicate suppression. Amount uses the
// decimal's canonical string so 450 and 450.00 collide.
type dedupKey struct {
	amount string
	dir    models.Direction
	desc   string
	date   int64
}

func keyOf(tx models.Transaction) dedupKey {
	return dedupKey{
		amount: tx.Amount.String(),
		dir:    tx.Type,
		desc:   tx.Description,
		date:   tx.Date.UnixNano(),
	}
}

// seenSet remembers emitted records for one extraction run.
type seenSet map[dedupKey]struct{}

// add records tx and reports whether it was new.
func (s seenSet) add(tx models.Transaction) bool {
	k := keyOf(tx)
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}
