// Package writer renders parse results as CSV or JSON.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Rhymond/go-money"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/engine"
	"github.com/insightdelivered/statement-engine/internal/models"
)

// Writer renders one parse result.
type Writer interface {
	Write(out io.Writer, res *engine.Result) error
	Extension() string
}

// New returns the writer for format, "csv" or "json".
func New(format string, includeHeader bool) (Writer, error) {
	switch format {
	case "", "csv":
		return &CSVWriter{IncludeHeader: includeHeader}, nil
	case "json":
		return &JSONWriter{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want csv or json)", format)
	}
}

// WriteToFile writes res to the file at path using w.
func WriteToFile(w Writer, path string, res *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// csvRow is one transaction line of the CSV output.
type csvRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Type        string `csv:"Type"`
	Debit       string `csv:"Debit"`
	Credit      string `csv:"Credit"`
	Balance     string `csv:"Balance"`
	Duplicate   bool   `csv:"Duplicate"`
	Page        int    `csv:"Page"`
}

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	// IncludeHeader adds "# key,value" metadata rows before the column header.
	IncludeHeader bool
}

// Extension returns the file extension of the output.
func (w *CSVWriter) Extension() string { return ".csv" }

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, res *engine.Result) error {
	if res == nil || res.Statement == nil {
		return fmt.Errorf("no statement to write")
	}
	stmt := res.Statement
	cw := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, kv := range metadata(stmt, res.Stats) {
			if err := cw.Write(kv); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	rows := make([]csvRow, 0, len(stmt.Transactions))
	for _, txn := range stmt.Transactions {
		rows = append(rows, csvRow{
			Date:        txn.Date.Format("2006-01-02"),
			Description: txn.Description,
			Type:        string(txn.Type),
			Debit:       formatAmount(txn.Debit),
			Credit:      formatAmount(txn.Credit),
			Balance:     formatAmount(txn.RunningBalance),
			Duplicate:   txn.IsDuplicate,
			Page:        txn.SourcePage,
		})
	}

	// MarshalCSV always writes the column header, even for an empty slice.
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func metadata(stmt *models.ParsedStatement, st models.StatementStats) [][]string {
	var rows [][]string
	add := func(key, value string) {
		if value != "" {
			rows = append(rows, []string{"# " + key, value})
		}
	}

	add("Bank", stmt.BankName)
	add("Account Holder", stmt.AccountHolder)
	add("Account Number", stmt.AccountNumber)
	add("Sort Code", stmt.SortCode)
	if !stmt.StatementPeriodStart.IsZero() {
		add("Statement Period", stmt.StatementPeriodStart.Format("2006-01-02")+" to "+stmt.StatementPeriodEnd.Format("2006-01-02"))
	}
	add("Currency", stmt.Currency)
	if stmt.OpeningBalance != nil {
		add("Opening Balance", displayMoney(*stmt.OpeningBalance, stmt.Currency))
	}
	if stmt.ClosingBalance != nil {
		add("Closing Balance", displayMoney(*stmt.ClosingBalance, stmt.Currency))
	}
	add("Total Credits", displayMoney(st.TotalCredits, stmt.Currency))
	add("Total Debits", displayMoney(st.TotalDebits, stmt.Currency))
	add("Net Change", displayMoney(st.NetChange, stmt.Currency))
	add("Transactions", fmt.Sprintf("%d (%d duplicate)", st.TransactionCount, st.DuplicateCount))
	return rows
}

// displayMoney formats d with the currency's symbol and separators.
func displayMoney(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func formatAmount(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return amount.StringFixed(2)
}
