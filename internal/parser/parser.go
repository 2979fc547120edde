// Package parser turns the page text of a statement into raw transaction
// rows and header metadata, driven entirely by a banks.BankConfig.
package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/banks"
	"github.com/insightdelivered/statement-engine/internal/models"
)

// RawTransaction is a row as read from the page, before classification and
// de-duplication.
type RawTransaction struct {
	Date time.Time
	// RawDate is the date text as printed. It is empty for rows that
	// inherited the date of the row above.
	RawDate string
	// DateResolved is false when the printed date could not be parsed.
	DateResolved bool
	Description  string
	Debit        *decimal.Decimal
	Credit       *decimal.Decimal
	Balance      *decimal.Decimal
	// Page is 1-based, Line is the 0-based line index within the page.
	Page int
	Line int
}

// Header is the statement metadata found outside the transaction rows.
type Header struct {
	AccountNumber  string
	SortCode       string
	AccountHolder  string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	PeriodFound    bool
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
}

// Result is the outcome of parsing one statement.
type Result struct {
	Transactions []RawTransaction
	Header       Header
	// UnparsedLines counts non-blank lines inside a transaction section that
	// were neither rows nor recognised boilerplate.
	UnparsedLines int
	// TotalLines counts every non-blank line.
	TotalLines int
	// CandidateLines counts lines that matched a dated row pattern.
	CandidateLines int
	// DateFailures counts candidate lines whose date could not be parsed.
	DateFailures int
	// Issues holds row-level warnings.
	Issues []models.Issue
}

// Options control a parse run.
type Options struct {
	// OnPage is called after each page with the number of pages done.
	OnPage func(done, total int)
	// Now is the reference date for yearless rows when the statement
	// period is unknown. Defaults to time.Now.
	Now func() time.Time
}

// Parse extracts header metadata and transaction rows from pages using cfg.
// It only fails when ctx is cancelled; unreadable content is reported
// through the counters and Issues of the result.
func Parse(ctx context.Context, pages []string, cfg *banks.BankConfig, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("parse: nil bank config")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	lines := splitPages(pages)
	res := &Result{}
	consumed := readHeader(lines, cfg, &res.Header)

	s := &state{
		cfg:      cfg,
		res:      res,
		consumed: consumed,
		balance:  res.Header.OpeningBalance,
		refDate:  opts.Now(),
	}
	if res.Header.PeriodFound {
		s.refDate = res.Header.PeriodEnd
	}

	for p, pageLines := range lines {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("parse page %d: %w", p+1, err)
		}
		s.parsePage(p, pageLines)
		if opts.OnPage != nil {
			opts.OnPage(p+1, len(lines))
		}
	}

	s.finish()
	return res, nil
}

// MatchesRows reports whether any line of pages is a dated transaction row
// under cfg.
func MatchesRows(pages []string, cfg *banks.BankConfig) bool {
	s := &state{cfg: cfg, res: &Result{}}
	for _, pageLines := range splitPages(pages) {
		for _, raw := range pageLines {
			if raw == "" {
				continue
			}
			if _, ok := s.matchDated(raw, flatten(raw)); ok {
				return true
			}
		}
	}
	return false
}

// splitPages splits every page into cleaned lines. Line indexes are preserved
// so that blank lines keep their position.
func splitPages(pages []string) [][]string {
	out := make([][]string, len(pages))
	for p, page := range pages {
		raw := strings.Split(page, "\n")
		cleaned := make([]string, len(raw))
		for i, line := range raw {
			cleaned[i] = normalizeLine(line)
		}
		out[p] = cleaned
	}
	return out
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "\u200B", "")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	line = strings.ReplaceAll(line, "\u2212", "-") // minus sign
	// Barclays business statements separate columns with arrows.
	line = strings.ReplaceAll(line, "\u2192", " ")
	return strings.TrimSpace(line)
}

// flatten collapses tabs and repeated spaces into single spaces.
func flatten(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
