package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money came in or went out.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// PaymentMethod is how the transaction was settled.
type PaymentMethod string

const (
	PaymentUPI  PaymentMethod = "UPI"
	PaymentCash PaymentMethod = "CASH"
)

// Transaction represents a single extracted statement transaction.
type Transaction struct {
	Type          Direction       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Source        string          `json:"source,omitempty"` // debug: "block" or "line"
}

// Provider identifies the app or bank that produced a statement.
type Provider string

const (
	ProviderPhonePe   Provider = "phonepe"
	ProviderGooglePay Provider = "gpay"
	ProviderPaytm     Provider = "paytm"
	ProviderGeneric   Provider = "generic"
)

// BlockTrace captures what the engine did with each text block.
type BlockTrace struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Kind      string `json:"kind"`   // CREDIT, DEBIT or UNKNOWN
	Result    string `json:"result"` // "accepted", "rejected", "duplicate", "skipped"
	Reason    string `json:"reason,omitempty"`
	LineCount int    `json:"lineCount"`
}

// StatementInfo holds everything extracted from one statement.
type StatementInfo struct {
	Provider     Provider
	Transactions []Transaction
	DebugLines   []BlockTrace
}

// Totals returns the summed income and expense amounts.
func (s *StatementInfo) Totals() (income, expense decimal.Decimal) {
	for _, txn := range s.Transactions {
		if txn.Type == DirectionIncome {
			income = income.Add(txn.Amount)
		} else {
			expense = expense.Add(txn.Amount)
		}
	}
	return income, expense
}
