package parser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// month matches abbreviated and full English month names.
const month = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*`

// nameEnd terminates a counterparty capture: a UPI/ref marker, an amount,
// a 12-digit id, a date, or the end of the text.
const nameEnd = `(?:\s+(?:upi|ref|utr|id|txn|amount|rs|inr|on|via|debited|credited)\b|\s*₹|\s+\d{12}|\s+\d{1,2}[/-]\d{1,2}|\s+\d{1,2}\s+` + month + `|$)`

const nameChars = `[a-z0-9\s&.,'-]`

// bankPrefix lists the names that precede "Bank" in Indian bank names, so
// "Paid to Canara Bank" is a bank but "Paid to Zomato HDFC Bank" is not.
const bankPrefix = `(?:punjab\s+national|union|federal|yes|canara|indian(?:\s+overseas)?|central|karnataka|` +
	`south\s+indian|bandhan|idbi|uco|dbs|city\s+union|karur\s+vysya|saraswat|cosmos|standard\s+chartered|` +
	`(?:airtel|paytm|india\s+post|jio|fino)\s+payments|au\s+small\s+finance|equitas(?:\s+small\s+finance)?|` +
	`ujjivan(?:\s+small\s+finance)?|tamilnad\s+mercantile|dhanlaxmi|j\s*&\s*k)`

var (
	headerLinePattern = regexp.MustCompile(`(?i)(?:date\s*&?\s*time|transaction\s+details|page\s+\d+\s+of\s+\d+|statement\s+period|account\s+summary|will\s+not\s+show\s+up)`)
	pageMarkerPattern = regexp.MustCompile(`(?i)^page(?:\s+no\.?)?(?:\s*\d+(?:\s+of\s+\d+)?)?$|^\d+\s+of\s+\d+$`)
	separatorPattern  = regexp.MustCompile(`^[-=*]{3,}$`)

	summaryPattern     = regexp.MustCompile(`(?i)(?:total|sum)\s+(?:spend|spent|received|income|expense|amount)`)
	headerRangePattern = regexp.MustCompile(`(?i)(?:paid to and|received from and).*\d{1,2}\s+` + month + `\s+\d{2,4}\s*-\s*\d{1,2}\s+` + month + `\s+\d{2,4}.*(?:sent|receiv)`)
	dateOnlyPattern    = regexp.MustCompile(`(?i)^(?:received from|paid to)\s+(?:\d{1,2}\s+` + month + `\s+\d{2,4}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\s*(?:\d{1,2}:\d{2}\s*(?:am|pm))?\s*$`)
	phonePattern       = regexp.MustCompile(`\b\d{10}\b`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	amountPattern         = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr)\s*(\d[\d,]*(?:\.\d{1,2})?)`)
	upiNumericPattern     = regexp.MustCompile(`\b\d{12}\b`)
	labelledNumberPattern = regexp.MustCompile(`(?i)\b(?:ref|reference|utr|account|a/c|mobile|phone)(?:\s*(?:no|number|id)\.?)?[\s:#.-]*(\d{9,18})\b`)
	refLabelPattern       = regexp.MustCompile(`(?i)(\bupi\s+)?\b(?:ref|reference|utr)(?:\s*(?:no|number|id)\.?)?[\s:#.-]*$`)
	refNumberPattern      = regexp.MustCompile(`(?i)\b(?:ref|reference|utr|order|txn)(?:\s*(?:no|number|id)\.?)?[\s:#.-]*(\d{10,16})\b`)
	vpaPattern            = regexp.MustCompile(`(?i)\b([a-z0-9._-]+@[a-z][a-z0-9]*)(?:$|[^a-z0-9.@])`)

	datePattern     = regexp.MustCompile(`(?i)\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b|\b(\d{1,2}\s+` + month + `,?\s+\d{2,4})\b`)
	textDatePattern = regexp.MustCompile(`(?i)\d{1,2}\s+` + month + `,?\s+\d{2,4}`)
	numDatePattern  = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	clockPattern    = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?::\d{2})?\s*(?:am|pm)?`)
	moneyPattern    = regexp.MustCompile(`(?i)(?:\brs\.?|\binr|₹)\s*[\d,]+(?:\.\d{1,2})?`)

	bankCounterpartyPattern = regexp.MustCompile(`(?i)\b(?:paid to|payment to|credited to|credit to)\s+` +
		`(?:bank\s+of\s+[a-z]+|state\s+bank(?:\s+of\s+[a-z]+)?|` + bankPrefix + `\s+bank|[a-z]*bank[a-z]*|` +
		`hdfc|icici|axis|sbi|pnb|kotak(?:\s+mahindra)?|idfc(?:\s+first)?|hsbc|citi(?:bank)?|indusind|rbl|boi)` +
		`(?:\s+(?:bank|ltd|limited))?(?:\s+(?:a/c|ac|account)(?:\s*no\.?)?\s*[x*\d]+)?` +
		`(?:\s*$|\s*₹|\s+(?:rs|inr)\b|\s+(?:upi|ref|utr|txn|on)\b|\s+\d{1,2}[/-]\d{1,2}|\s+\d{1,2}\s+` + month + `)`)

	// bareCounterpartyPattern is a keyword line whose counterparty sits on the next line.
	bareCounterpartyPattern = regexp.MustCompile(`(?i)^\s*(?:paid to|payment to|credited to|credit to)\s*:?\s*$`)

	institutionPattern = regexp.MustCompile(`(?i)bank|account|wallet|your`)
	honorificPattern   = regexp.MustCompile(`(?i)^(?:mr|mrs|ms|dr)\.?\s+`)
	nameTailPattern    = regexp.MustCompile(`(?i)(?:\s+(?:upi|ref|id|amount|rs|inr)\b|\s*₹|\s*\b\d{12}\b).*$`)
	trailingJunk       = regexp.MustCompile(`[\s\d.,:/-]+$`)
	spacesPattern      = regexp.MustCompile(`\s+`)

	debitCapturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:paid to|sent to|payment to|transferred to|transfer to|pay to)\s+(` + nameChars + `+?)` + nameEnd),
		regexp.MustCompile(`(?i)\bto\s+([a-z]` + nameChars + `{2,50}?)` + nameEnd),
		regexp.MustCompile(`(?i)\b(?:debited|debit)\s+(?:from|to|for)\s+(` + nameChars + `+?)` + nameEnd),
	}
	creditCapturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:received from|credited from|credit from|received)\s+(` + nameChars + `+?)` + nameEnd),
		regexp.MustCompile(`(?i)\bfrom\s+([a-z]` + nameChars + `{2,50}?)` + nameEnd),
		regexp.MustCompile(`(?i)\b(?:credited|credit)\s+(?:to|from|by)\s+(` + nameChars + `+?)` + nameEnd),
	}
)

// keywordPhrase is a fallback description source: the text after Keyword on
// a line. AllowInstitution keeps phrases naming a bank, which is the
// counterparty for self transfers.
type keywordPhrase struct {
	Keyword          string
	AllowInstitution bool
}

// Rules is the immutable table of patterns, keywords and limits the engine
// runs on. Build it once and share it by pointer; nothing mutates it.
type Rules struct {
	// MinAmount and MaxAmount bound accepted amounts, both exclusive.
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	// Location is used to interpret statement dates.
	Location *time.Location

	NoisePhrases     []string
	BlockTriggers    []string
	CreditMarkers    []string
	DebitMarkers     []string
	DebitKeywords    []string
	CreditKeywords   []string
	DebitPhrases     []keywordPhrase
	CreditPhrases    []keywordPhrase
	DateLayouts      []string
	HeaderLine       *regexp.Regexp
	PageMarker       *regexp.Regexp
	Separator        *regexp.Regexp
	Summary          *regexp.Regexp
	HeaderRange      *regexp.Regexp
	DateOnly         *regexp.Regexp
	Amount           *regexp.Regexp
	UPINumeric       *regexp.Regexp
	LabelledNumber   *regexp.Regexp
	RefLabel         *regexp.Regexp
	RefNumber        *regexp.Regexp
	VPA              *regexp.Regexp
	Date             *regexp.Regexp
	BankCounterparty *regexp.Regexp
	BareCounterparty *regexp.Regexp
	Institution      *regexp.Regexp
	DebitCaptures    []*regexp.Regexp
	CreditCaptures   []*regexp.Regexp
}

var defaultRules = buildRules(decimal.NewFromInt(1), decimal.NewFromInt(1_000_000), time.UTC)

// DefaultRules returns the shared rule table with the standard (1, 1000000)
// amount range and UTC dates.
func DefaultRules() *Rules {
	return defaultRules
}

// NewRules builds a rule table with a custom amount range and location.
func NewRules(minAmount, maxAmount decimal.Decimal, loc *time.Location) (*Rules, error) {
	if !minAmount.LessThan(maxAmount) {
		return nil, fmt.Errorf("min amount %s must be below max amount %s", minAmount, maxAmount)
	}
	if loc == nil {
		loc = time.UTC
	}
	return buildRules(minAmount, maxAmount, loc), nil
}

func buildRules(minAmount, maxAmount decimal.Decimal, loc *time.Location) *Rules {
	return &Rules{
		MinAmount: minAmount,
		MaxAmount: maxAmount,
		Location:  loc,
		NoisePhrases: []string{
			"opening balance", "closing balance", "total debits", "total credits",
			"statement period", "s.no", "serial no", "total spend", "total received",
		},
		BlockTriggers: []string{
			"paid to", "received from", "debited", "credited to", "sent to", "purchase", "payment to",
		},
		CreditMarkers: []string{"paid to you", "credited", "refund", "cashback", "reversal", "received money"},
		DebitMarkers:  []string{"debited", "sent to", "payment to", "purchase", "merchant payment"},
		DebitKeywords: []string{
			"paid to", "debited", "sent to", "payment to", "debit", "paid", "purchase", "merchant payment",
		},
		CreditKeywords: []string{"received from", "credited", "credit", "refund", "cashback", "reversal"},
		DebitPhrases: []keywordPhrase{
			{Keyword: "paid to"}, {Keyword: "sent to"}, {Keyword: "payment to"},
			{Keyword: "debited"}, {Keyword: "purchase"}, {Keyword: "merchant payment"},
		},
		CreditPhrases: []keywordPhrase{
			{Keyword: "received from"}, {Keyword: "credited"}, {Keyword: "refund"},
			{Keyword: "cashback"}, {Keyword: "reversal"},
			{Keyword: "paid to", AllowInstitution: true}, {Keyword: "payment to", AllowInstitution: true},
		},
		DateLayouts: []string{
			"2/1/2006", "2-1-2006", "2/1/06", "2-1-06",
			"2 Jan 2006", "2 January 2006", "2 Jan 06", "2 January 06",
		},
		HeaderLine:       headerLinePattern,
		PageMarker:       pageMarkerPattern,
		Separator:        separatorPattern,
		Summary:          summaryPattern,
		HeaderRange:      headerRangePattern,
		DateOnly:         dateOnlyPattern,
		Amount:           amountPattern,
		UPINumeric:       upiNumericPattern,
		LabelledNumber:   labelledNumberPattern,
		RefLabel:         refLabelPattern,
		RefNumber:        refNumberPattern,
		VPA:              vpaPattern,
		Date:             datePattern,
		BankCounterparty: bankCounterpartyPattern,
		BareCounterparty: bareCounterpartyPattern,
		Institution:      institutionPattern,
		DebitCaptures:    debitCapturePatterns,
		CreditCaptures:   creditCapturePatterns,
	}
}

// inRange reports whether amt lies strictly inside the sanity range.
func (r *Rules) inRange(amt decimal.Decimal) bool {
	return amt.GreaterThan(r.MinAmount) && amt.LessThan(r.MaxAmount)
}
