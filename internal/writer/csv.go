package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-extractor/internal/models"
)

const dateLayout = "2006-01-02"

// CSVWriter writes extracted transactions in CSV format.
type CSVWriter struct {
	// IncludeHeader adds "# key,value" summary rows before the column header.
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, info *models.StatementInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, info)
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, info *models.StatementInfo) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		income, expense := info.Totals()
		meta := [][]string{
			{"# Provider", string(info.Provider)},
			{"# Records", strconv.Itoa(len(info.Transactions))},
			{"# Total Income", formatAmount(income)},
			{"# Total Expense", formatAmount(expense)},
		}
		if err := writer.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"Date", "Description", "Type", "Amount", "Payment Method"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range info.Transactions {
		row := []string{
			txn.Date.Format(dateLayout),
			txn.Description,
			string(txn.Type),
			formatAmount(txn.Amount),
			string(txn.PaymentMethod),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
