package parser

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-extractor/internal/models"
)

// contextWindow is how many bytes around an amount are inspected for
// balance/account wording.
const contextWindow = 30

// mobileWindow is how far before a 12-digit number a "mobile" label still
// marks it as a phone number ("Mobile No. ").
const mobileWindow = 12

// extractAmount returns the first currency-prefixed amount in text that is
// not an identifier, not a balance, and lies inside the sanity range.
func extractAmount(rules *Rules, text string) (decimal.Decimal, bool) {
	excluded := excludedNumbers(rules, text)

	for _, loc := range rules.Amount.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[2]:loc[3]]
		cleaned := strings.ReplaceAll(raw, ",", "")
		if excluded[cleaned] {
			continue
		}
		amt, err := parseAmount(cleaned)
		if err != nil {
			continue
		}
		if isBalanceContext(text, loc[0], loc[1]) {
			continue
		}
		if rules.inRange(amt) {
			return amt, true
		}
	}
	return decimal.Decimal{}, false
}

// excludedNumbers collects digit strings that are identifiers rather than
// money: 12-digit UPI ids and labelled ref/account/phone numbers.
func excludedNumbers(rules *Rules, text string) map[string]bool {
	excluded := make(map[string]bool)
	for _, m := range rules.UPINumeric.FindAllString(text, -1) {
		excluded[m] = true
	}
	for _, m := range rules.LabelledNumber.FindAllStringSubmatch(text, -1) {
		excluded[m[1]] = true
	}
	return excluded
}

func isBalanceContext(text string, start, end int) bool {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	to := end + contextWindow
	if to > len(text) {
		to = len(text)
	}
	window := strings.ToLower(text[from:to])
	if !strings.Contains(window, "balance") && !strings.Contains(window, "account") {
		return false
	}
	return !containsAny(window, []string{"paid", "received", "transaction"})
}

// extractDate parses the first recognisable date in text, falling back to
// the run timestamp.
func extractDate(rules *Rules, text string, runAt time.Time) time.Time {
	for _, m := range rules.Date.FindAllStringSubmatch(text, -1) {
		candidate := m[1]
		if candidate == "" {
			candidate = m[2]
		}
		if t, ok := parseDate(rules, candidate); ok {
			return t
		}
	}
	return runAt
}

// refWindow is how far before a 12-digit number a ref/UTR label is looked
// for ("Reference No. ").
const refWindow = 24

// extractUPIID returns the first 12-digit UPI reference not labelled as a
// mobile number or as a plain ref/UTR number. "UPI Ref" still counts as
// the UPI id.
func extractUPIID(rules *Rules, text string) string {
	for _, loc := range rules.UPINumeric.FindAllStringIndex(text, -1) {
		from := loc[0] - mobileWindow
		if from < 0 {
			from = 0
		}
		if strings.Contains(strings.ToLower(text[from:loc[0]]), "mobile") {
			continue
		}
		from = loc[0] - refWindow
		if from < 0 {
			from = 0
		}
		if m := rules.RefLabel.FindStringSubmatch(text[from:loc[0]]); m != nil && m[1] == "" {
			continue
		}
		return text[loc[0]:loc[1]]
	}
	return ""
}

func extractRefNumber(rules *Rules, text string) string {
	if m := rules.RefNumber.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// appendMetadata adds UPI id and reference number in brackets when the
// description does not already carry them.
func appendMetadata(desc, upiID, ref string) string {
	var details []string
	if upiID != "" && !strings.Contains(desc, upiID) {
		details = append(details, "UPI ID: "+upiID)
	}
	if ref != "" && ref != upiID && !strings.Contains(desc, ref) {
		details = append(details, "Ref: "+ref)
	}
	if len(details) == 0 {
		return desc
	}
	return desc + " [" + strings.Join(details, ", ") + "]"
}

func paymentMethod(lower string) models.PaymentMethod {
	if strings.Contains(lower, "cash") {
		return models.PaymentCash
	}
	return models.PaymentUPI
}
