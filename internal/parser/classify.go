package parser

import "strings"

// Kind is the classifier's verdict for a block.
type Kind string

const (
	KindCredit  Kind = "CREDIT"
	KindDebit   Kind = "DEBIT"
	KindUnknown Kind = "UNKNOWN"
)

// classifyInput is what every classification rule looks at.
type classifyInput struct {
	lines []string
	lower string // joined, lower-cased, trimmed block text
}

// classRule is one entry of the ordered classification chain.
type classRule struct {
	name  string
	match func(r *Rules, in classifyInput) bool
	kind  Kind
}

// classRules is evaluated top to bottom; the first match wins and later
// rules never override it. The order settles "paid to" (debit) against
// "paid to <bank>" (credit) and credit/debit keyword co-occurrence.
var classRules = []classRule{
	{name: "received-from", kind: KindCredit, match: func(_ *Rules, in classifyInput) bool {
		return strings.Contains(in.lower, "received from")
	}},
	{name: "bank-counterparty", kind: KindCredit, match: hasBankCounterparty},
	{name: "credit-marker", kind: KindCredit, match: func(r *Rules, in classifyInput) bool {
		return containsAny(in.lower, r.CreditMarkers)
	}},
	{name: "paid-to", kind: KindDebit, match: func(_ *Rules, in classifyInput) bool {
		return strings.Contains(in.lower, "paid to")
	}},
	{name: "debit-marker", kind: KindDebit, match: func(r *Rules, in classifyInput) bool {
		return containsAny(in.lower, r.DebitMarkers)
	}},
	{name: "generic-credit", kind: KindCredit, match: func(_ *Rules, in classifyInput) bool {
		return strings.Contains(in.lower, "credit") && !strings.Contains(in.lower, "debit")
	}},
	{name: "generic-debit", kind: KindDebit, match: func(_ *Rules, in classifyInput) bool {
		return strings.Contains(in.lower, "debit") && !strings.Contains(in.lower, "credit")
	}},
	{name: "credit-suffix", kind: KindCredit, match: func(_ *Rules, in classifyInput) bool {
		return strings.HasSuffix(in.lower, " cr") || strings.HasSuffix(in.lower, "+")
	}},
	{name: "debit-suffix", kind: KindDebit, match: func(_ *Rules, in classifyInput) bool {
		return strings.HasSuffix(in.lower, " dr") || strings.HasSuffix(in.lower, "-")
	}},
}

// classify assigns a direction to a block's lines, returning the verdict
// and the name of the rule that produced it.
func classify(rules *Rules, lines []string) (Kind, string) {
	in := classifyInput{
		lines: lines,
		lower: strings.ToLower(strings.TrimSpace(strings.Join(lines, " "))),
	}
	if in.lower == "" {
		return KindUnknown, ""
	}
	for _, rule := range classRules {
		if rule.match(rules, in) {
			return rule.kind, rule.name
		}
	}
	return KindUnknown, ""
}

// hasBankCounterparty reports whether a bank is the whole counterparty of a
// "paid to"/"credited to" phrase on one line. A keyword line with nothing
// after it is read together with the line below. A bank mentioned elsewhere
// in the block does not count.
func hasBankCounterparty(r *Rules, in classifyInput) bool {
	for i, line := range in.lines {
		if r.BankCounterparty.MatchString(line) {
			return true
		}
		if i+1 < len(in.lines) && r.BareCounterparty.MatchString(line) &&
			r.BankCounterparty.MatchString(line+" "+in.lines[i+1]) {
			return true
		}
	}
	return false
}
