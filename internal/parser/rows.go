package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/banks"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/textnorm"
)

// amountCellPattern matches a cell containing a single monetary amount.
var amountCellPattern = regexp.MustCompile(`^[-+]?[£$€]?\s*[\d.,]*\d[.,]\d{2}$`)

// trailingAmountPattern matches lines that end in an amount and therefore
// cannot be description continuations.
var trailingAmountPattern = regexp.MustCompile(`\d[.,]\d{2}$`)

var (
	creditKeywords = []string{
		" direct credit ", " credit from ", " bgc ", " bacs ", " bank credit ",
		" refund ", " interest paid ", " transfer from ", " salary ", " gutschrift ",
	}
	debitKeywords = []string{
		" card payment ", " direct debit ", " debit ", " payment ", " withdrawal ",
		" transfer out ", " standing order ", " dd ", " so ", " pos ", " atm ",
		" purchase ", " fee ", " charge ", " lastschrift ",
	}
	balanceMarkers = []string{
		" balance brought forward ", " balance carried forward ", " brought forward ",
		" opening balance ", " closing balance ", " start balance ", " beginning balance ",
		" end balance ", " alter saldo ", " neuer saldo ",
	}
)

// rowParts are the pieces of a row before amounts are interpreted.
type rowParts struct {
	date   string
	desc   string
	tokens []string
	// cells holds explicit debit/credit/amount/balance cells from a
	// tab-separated row whose width matches the config's layout.
	cells *tabCells
}

type tabCells struct {
	debit, credit, amount, balance string
}

// state carries what the transaction loop knows between lines and pages.
type state struct {
	cfg      *banks.BankConfig
	res      *Result
	consumed map[lineKey]bool
	// balance is the running balance after the last row, if known.
	balance *decimal.Decimal
	refDate time.Time
}

func (s *state) parsePage(p int, lines []string) {
	inTransactionSection := false
	lastOnPage := -1

	for i, raw := range lines {
		if raw == "" {
			continue
		}
		s.res.TotalLines++
		if s.consumed[lineKey{p, i}] {
			continue
		}
		line := flatten(raw)

		if s.cfg.TableHeading != nil && s.cfg.TableHeading.MatchString(line) {
			inTransactionSection = true
			continue
		}

		if parts, ok := s.matchDated(raw, line); ok {
			inTransactionSection = true
			s.res.CandidateLines++
			row := RawTransaction{RawDate: parts.date, Page: p + 1, Line: i}
			if t, ok := s.resolveDate(parts.date); ok {
				row.Date, row.DateResolved = t, true
			} else {
				s.res.DateFailures++
			}
			if s.fillAmounts(&row, parts) {
				s.add(row)
				lastOnPage = len(s.res.Transactions) - 1
			} else {
				s.res.UnparsedLines++
			}
			continue
		}

		if !inTransactionSection {
			continue
		}
		if s.isSkipLine(line) {
			continue
		}

		if v, ok := capture(s.cfg.Header.BroughtForward, line, "value"); ok {
			if amt, err := parseAmount(v, s.cfg); err == nil {
				row := RawTransaction{Description: line, Balance: &amt, Page: p + 1, Line: i}
				s.inheritDate(&row)
				s.add(row)
				lastOnPage = len(s.res.Transactions) - 1
				continue
			}
		}

		if s.cfg.CarriedDateLine != nil && len(s.res.Transactions) > 0 {
			if m := s.cfg.CarriedDateLine.FindStringSubmatch(line); m != nil {
				parts := rowParts{
					desc:   m[s.cfg.CarriedDateLine.SubexpIndex("desc")],
					tokens: strings.Fields(m[s.cfg.CarriedDateLine.SubexpIndex("amounts")]),
				}
				row := RawTransaction{Page: p + 1, Line: i}
				s.inheritDate(&row)
				if s.fillAmounts(&row, parts) {
					s.add(row)
					lastOnPage = len(s.res.Transactions) - 1
				} else {
					s.res.UnparsedLines++
				}
				continue
			}
		}

		// Multi-line description continuation
		if s.cfg.ContinuationLines && lastOnPage >= 0 && !trailingAmountPattern.MatchString(line) {
			last := &s.res.Transactions[lastOnPage]
			last.Description += " " + line
			continue
		}

		s.res.UnparsedLines++
	}
}

// matchDated recognises a dated transaction row, trying the tab-separated
// form (from pdf.js client-side extraction) before the config's pattern.
func (s *state) matchDated(raw, line string) (rowParts, bool) {
	if strings.Contains(raw, "\t") {
		if parts, ok := s.tabSeparated(raw); ok {
			return parts, true
		}
	}
	m := s.cfg.TransactionLine.FindStringSubmatch(line)
	if m == nil {
		return rowParts{}, false
	}
	re := s.cfg.TransactionLine
	return rowParts{
		date:   m[re.SubexpIndex("date")],
		desc:   m[re.SubexpIndex("desc")],
		tokens: strings.Fields(m[re.SubexpIndex("amounts")]),
	}, true
}

func (s *state) tabSeparated(raw string) (rowParts, bool) {
	cells := strings.Split(raw, "\t")
	if len(cells) < 2 {
		return rowParts{}, false
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	if _, _, ok := parseDate(cells[0], s.cfg.DateFormats); !ok {
		return rowParts{}, false
	}

	if tc := s.cfg.Tabs; tc != nil && len(cells) == tabWidth(tc) && amountCells(cells, tc) {
		parts := rowParts{
			date:  cells[tc.Date],
			desc:  cell(cells, tc.Description),
			cells: &tabCells{},
		}
		parts.cells.debit = cell(cells, tc.Debit)
		parts.cells.credit = cell(cells, tc.Credit)
		parts.cells.amount = cell(cells, tc.Amount)
		parts.cells.balance = cell(cells, tc.Balance)
		return parts, parts.desc != ""
	}

	// Scan from the right to find amount cells
	var tokens []string
	rightBoundary := len(cells)
	for i := len(cells) - 1; i >= 1 && len(tokens) < 3; i-- {
		c := cells[i]
		if c == "" {
			continue // skip empty cells (empty column)
		}
		if !amountCellPattern.MatchString(c) {
			break
		}
		tokens = append([]string{strings.ReplaceAll(c, " ", "")}, tokens...)
		rightBoundary = i
	}
	if len(tokens) == 0 {
		return rowParts{}, false
	}

	var descParts []string
	for _, c := range cells[1:rightBoundary] {
		// Skip empty cells and PDF artifacts
		if c == "" || c == "." || c == "-" || c == "–" {
			continue
		}
		descParts = append(descParts, c)
	}
	if len(descParts) == 0 {
		return rowParts{}, false
	}
	return rowParts{date: cells[0], desc: strings.Join(descParts, " "), tokens: tokens}, true
}

func tabWidth(tc *banks.TabColumns) int {
	width := 0
	for _, idx := range []int{tc.Date, tc.Description, tc.Debit, tc.Credit, tc.Amount, tc.Balance} {
		if idx+1 > width {
			width = idx + 1
		}
	}
	return width
}

// amountCells reports whether every non-empty amount column holds an amount.
func amountCells(cells []string, tc *banks.TabColumns) bool {
	for _, idx := range []int{tc.Debit, tc.Credit, tc.Amount, tc.Balance} {
		if c := cell(cells, idx); c != "" && !amountCellPattern.MatchString(c) {
			return false
		}
	}
	return true
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func (s *state) resolveDate(tok string) (time.Time, bool) {
	t, yearless, ok := parseDate(tok, s.cfg.DateFormats)
	if !ok {
		return time.Time{}, false
	}
	if yearless {
		return resolveYear(t, s.refDate)
	}
	return t, true
}

// inheritDate gives an undated row the date of the row above, or the
// statement period start when it is the first row.
func (s *state) inheritDate(row *RawTransaction) {
	if n := len(s.res.Transactions); n > 0 {
		prev := s.res.Transactions[n-1]
		row.Date, row.DateResolved = prev.Date, prev.DateResolved
		return
	}
	if s.res.Header.PeriodFound {
		row.Date, row.DateResolved = s.res.Header.PeriodStart, true
	}
}

func (s *state) isSkipLine(line string) bool {
	for _, re := range s.cfg.Skip {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// fillAmounts sets the description and amounts of row. It reports false when
// the amounts cannot be read or do not describe exactly one movement.
func (s *state) fillAmounts(row *RawTransaction, parts rowParts) bool {
	row.Description = strings.TrimSpace(parts.desc)
	if row.Description == "" {
		return false
	}
	if parts.cells != nil {
		return s.fillCells(row, parts.cells)
	}
	if len(parts.tokens) == 0 {
		return false
	}

	vals := make([]decimal.Decimal, len(parts.tokens))
	for i, tok := range parts.tokens {
		v, err := parseAmount(tok, s.cfg)
		if err != nil {
			return false
		}
		vals[i] = v
	}

	if isBalanceMarker(row.Description) {
		bal := vals[len(vals)-1]
		row.Balance = &bal
		return true
	}

	switch s.cfg.AmountStyle {
	case banks.SignedColumn:
		if len(vals) > 2 {
			return false
		}
		if len(vals) == 2 {
			bal := vals[1]
			row.Balance = &bal
		}
		return setSigned(row, vals[0])

	default:
		switch len(vals) {
		case 3:
			// paidOut + paidIn + balance
			out, in, bal := vals[0].Abs(), vals[1].Abs(), vals[2]
			row.Balance = &bal
			return setSplit(row, out, in)
		case 2:
			// One amount + balance
			amt, bal := vals[0].Abs(), vals[1]
			row.Balance = &bal
			return s.setByBalance(row, amt)
		default:
			return s.setByBalance(row, vals[0].Abs())
		}
	}
}

func (s *state) fillCells(row *RawTransaction, c *tabCells) bool {
	parse := func(v string) (decimal.Decimal, bool) {
		if v == "" {
			return decimal.Zero, true
		}
		d, err := parseAmount(v, s.cfg)
		return d, err == nil
	}

	bal, ok := parse(c.balance)
	if !ok {
		return false
	}
	if c.balance != "" {
		row.Balance = &bal
	}
	if isBalanceMarker(row.Description) {
		return row.Balance != nil
	}

	if s.cfg.AmountStyle == banks.SignedColumn {
		amt, ok := parse(c.amount)
		if !ok {
			return false
		}
		return setSigned(row, amt)
	}
	out, okOut := parse(c.debit)
	in, okIn := parse(c.credit)
	if !okOut || !okIn {
		return false
	}
	return setSplit(row, out.Abs(), in.Abs())
}

func setSigned(row *RawTransaction, amt decimal.Decimal) bool {
	switch amt.Sign() {
	case -1:
		debit := amt.Neg()
		row.Debit = &debit
	case 1:
		credit := amt
		row.Credit = &credit
	default:
		return false
	}
	return true
}

func setSplit(row *RawTransaction, out, in decimal.Decimal) bool {
	switch {
	case out.IsPositive() && in.IsZero():
		row.Debit = &out
	case in.IsPositive() && out.IsZero():
		row.Credit = &in
	default:
		return false
	}
	return true
}

// setByBalance determines whether a single split-column amount is a debit or
// a credit by comparing the amount and printed balance against the previous
// balance. Falls back to a description heuristic when the balance
// progression is unavailable or inconclusive.
func (s *state) setByBalance(row *RawTransaction, amt decimal.Decimal) bool {
	if !amt.IsPositive() {
		return false
	}
	debit := isDebitDescription(row.Description)
	if s.balance != nil && row.Balance != nil {
		tol := s.cfg.ReconciliationTolerance
		debitDiff := s.balance.Sub(amt).Sub(*row.Balance).Abs()
		creditDiff := s.balance.Add(amt).Sub(*row.Balance).Abs()
		debitOK := debitDiff.LessThanOrEqual(tol)
		creditOK := creditDiff.LessThanOrEqual(tol)
		switch {
		case debitOK && creditOK:
			debit = debitDiff.LessThanOrEqual(creditDiff)
		case debitOK:
			debit = true
		case creditOK:
			debit = false
		}
	}
	if debit {
		row.Debit = &amt
	} else {
		row.Credit = &amt
	}
	return true
}

// add appends row and advances the running balance.
func (s *state) add(row RawTransaction) {
	s.res.Transactions = append(s.res.Transactions, row)
	switch {
	case row.Balance != nil:
		bal := *row.Balance
		s.balance = &bal
	case s.balance != nil:
		next := *s.balance
		if row.Credit != nil {
			next = next.Add(*row.Credit)
		}
		if row.Debit != nil {
			next = next.Sub(*row.Debit)
		}
		s.balance = &next
	}
}

// finish derives a missing statement period from the row dates and places
// rows with unreadable dates at the period start.
func (s *state) finish() {
	h := &s.res.Header
	if !h.PeriodFound {
		for _, row := range s.res.Transactions {
			if !row.DateResolved {
				continue
			}
			if !h.PeriodFound || row.Date.Before(h.PeriodStart) {
				h.PeriodStart = row.Date
			}
			if !h.PeriodFound || row.Date.After(h.PeriodEnd) {
				h.PeriodEnd = row.Date
			}
			h.PeriodFound = true
		}
	}

	for i := range s.res.Transactions {
		row := &s.res.Transactions[i]
		if row.DateResolved {
			continue
		}
		if h.PeriodFound {
			row.Date = h.PeriodStart
		}
		s.res.Issues = append(s.res.Issues, models.Issue{
			Kind:    models.KindRowDateFallback,
			Message: fmt.Sprintf("page %d line %d: unreadable date %q, using statement period start", row.Page, row.Line+1, row.RawDate),
			Page:    row.Page,
			Line:    row.Line + 1,
		})
	}
}

// isDebitDescription checks whether a description indicates an outgoing
// payment. Incoming-payment keywords take precedence.
func isDebitDescription(desc string) bool {
	words := textnorm.Words(desc)
	if containsAny(words, creditKeywords) {
		return false
	}
	return containsAny(words, debitKeywords)
}

func isBalanceMarker(desc string) bool {
	return containsAny(textnorm.Words(desc), balanceMarkers)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
