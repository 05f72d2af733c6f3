package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/upi-statement-extractor/internal/models"
)

// ErrEmptyInput is returned when the supplied text has nothing to extract.
// It is distinct from a successful run that finds zero transactions.
var ErrEmptyInput = errors.New("input contains no extractable text")

// Block outcomes recorded in traces.
const (
	resultAccepted  = "accepted"
	resultRejected  = "rejected"
	resultDuplicate = "duplicate"
	resultSkipped   = "skipped"
)

// Record sources.
const (
	sourceBlock = "block"
	sourceLine  = "line"
)

// Engine turns raw statement text into transaction records. It holds no
// per-run state, so one Engine may serve concurrent callers.
type Engine struct {
	rules *Rules
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule table.
func WithRules(r *Rules) Option {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithLogger sets the logger used for per-block diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the source of the run timestamp used for undated records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Engine using DefaultRules, a no-op logger and the wall
// clock unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules: DefaultRules(),
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the transactions found in text, in source order.
func (e *Engine) Extract(text string) ([]models.Transaction, error) {
	txns, _, err := e.run(text)
	return txns, err
}

// Explain runs an extraction and returns what happened to every block.
func (e *Engine) Explain(text string) ([]models.BlockTrace, error) {
	_, traces, err := e.run(text)
	return traces, err
}

// Parse extracts transactions from the text of each page of one statement.
func (e *Engine) Parse(pages []string) (*models.StatementInfo, error) {
	text := strings.Join(pages, "\n")
	txns, traces, err := e.run(text)
	if err != nil {
		return nil, err
	}
	return &models.StatementInfo{
		Provider:     DetectProvider(text),
		Transactions: txns,
		DebugLines:   traces,
	}, nil
}

func (e *Engine) run(text string) ([]models.Transaction, []models.BlockTrace, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrEmptyInput
	}
	runAt := e.now()

	lines := normalizeLines(e.rules, text)
	blocks := segmentBlocks(e.rules, lines)
	e.log.Debug().Int("lines", len(lines)).Int("blocks", len(blocks)).Msg("segmented statement")

	txns := make([]models.Transaction, 0, len(blocks))
	traces := make([]models.BlockTrace, 0, len(blocks))
	seen := make(seenSet)
	for i, b := range blocks {
		out, trace := e.processBlock(i, b, runAt, seen)
		txns = append(txns, out...)
		traces = append(traces, trace)
		e.log.Debug().
			Int("block", i).
			Str("kind", trace.Kind).
			Str("result", trace.Result).
			Str("reason", trace.Reason).
			Int("records", len(out)).
			Msg("processed block")
	}

	e.log.Info().Int("blocks", len(blocks)).Int("transactions", len(txns)).Msg("extraction complete")
	return txns, traces, nil
}

// processBlock turns one block into zero or more records: the block's own
// record followed by any standalone transaction lines inside it. A panic is
// confined to the block; seen is only updated once the block has finished.
func (e *Engine) processBlock(idx int, b Block, runAt time.Time, seen seenSet) (out []models.Transaction, trace models.BlockTrace) {
	trace = models.BlockTrace{Index: idx, Text: b.Text(), LineCount: len(b.Lines)}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Int("block", idx).Interface("panic", r).Msg("block skipped")
			out = nil
			trace.Result = resultSkipped
			trace.Reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	var candidates []models.Transaction
	primary, kind, reason := e.buildRecord(b.Lines, runAt)
	trace.Kind = string(kind)
	if reason == "" {
		primary.Source = sourceBlock
		candidates = append(candidates, primary)
	}

	for _, line := range b.Lines {
		if !e.looksLikeTransaction(line) {
			continue
		}
		tx, _, lineReason := e.buildRecord([]string{line}, runAt)
		if lineReason != "" {
			continue
		}
		if reason == "" && tx.Amount.Equal(primary.Amount) {
			continue
		}
		tx.Source = sourceLine
		candidates = append(candidates, tx)
	}

	local := make(seenSet)
	for _, tx := range candidates {
		if _, dup := seen[keyOf(tx)]; dup {
			continue
		}
		if local.add(tx) {
			out = append(out, tx)
		}
	}
	for _, tx := range out {
		seen.add(tx)
	}

	switch {
	case len(out) > 0:
		trace.Result = resultAccepted
	case reason == "" || len(candidates) > 0:
		trace.Result, trace.Reason = resultDuplicate, "already extracted"
	default:
		trace.Result, trace.Reason = resultRejected, reason
	}
	return out, trace
}

// buildRecord classifies lines and extracts one record from them. It
// returns a non-empty reason when no valid record can be built.
func (e *Engine) buildRecord(lines []string, runAt time.Time) (models.Transaction, Kind, string) {
	text := strings.Join(lines, " ")
	if reason := blockNoiseReason(e.rules, text); reason != "" {
		return models.Transaction{}, KindUnknown, reason
	}

	kind, _ := classify(e.rules, lines)
	if kind == KindUnknown {
		return models.Transaction{}, kind, "no direction"
	}

	amount, ok := extractAmount(e.rules, text)
	if !ok {
		return models.Transaction{}, kind, "no amount"
	}

	desc := extractDescription(e.rules, lines, kind)
	desc = appendMetadata(desc, extractUPIID(e.rules, text), extractRefNumber(e.rules, text))

	tx := models.Transaction{
		Type:          directionOf(kind),
		Amount:        amount,
		Date:          extractDate(e.rules, text, runAt),
		Description:   desc,
		PaymentMethod: paymentMethod(strings.ToLower(text)),
	}
	if reason := rejectReason(e.rules, tx); reason != "" {
		return models.Transaction{}, kind, reason
	}
	return tx, kind, ""
}

// looksLikeTransaction reports whether a single line carries both a
// transaction keyword and a currency amount.
func (e *Engine) looksLikeTransaction(line string) bool {
	if isNoiseLine(e.rules, line) {
		return false
	}
	lower := strings.ToLower(line)
	if !containsAny(lower, e.rules.DebitKeywords) && !containsAny(lower, e.rules.CreditKeywords) {
		return false
	}
	return e.rules.Amount.MatchString(line)
}

func directionOf(k Kind) models.Direction {
	if k == KindCredit {
		return models.DirectionIncome
	}
	return models.DirectionExpense
}

// DetectProvider identifies the payment app that produced a statement from
// marker phrases in its text.
func DetectProvider(text string) models.Provider {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, []string{"phonepe", "phone pe"}):
		return models.ProviderPhonePe
	case containsAny(lower, []string{"google pay", "gpay", "g pay"}):
		return models.ProviderGooglePay
	case containsAny(lower, []string{"paytm"}):
		return models.ProviderPaytm
	default:
		return models.ProviderGeneric
	}
}
