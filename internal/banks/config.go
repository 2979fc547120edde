// Package banks holds the static table of supported statement layouts.
//
// Each issuer is described by one BankConfig. Adding a bank means adding a
// config to the table in registry.go; the parser's control flow does not change.
package banks

import (
	"fmt"
	"regexp"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// AmountStyle describes how amounts are laid out on a transaction row.
type AmountStyle int

const (
	// SplitColumns rows carry "paid out", "paid in" and "balance" columns.
	// Text extraction drops empty cells, so a row usually shows one amount
	// followed by the balance.
	SplitColumns AmountStyle = iota
	// SignedColumn rows carry one signed amount, optionally followed by the balance.
	SignedColumn
)

func (s AmountStyle) String() string {
	switch s {
	case SplitColumns:
		return "split"
	case SignedColumn:
		return "signed"
	default:
		return fmt.Sprintf("AmountStyle(%d)", int(s))
	}
}

// Locale describes the number format of amounts.
type Locale struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
}

var (
	// LocaleUK formats amounts as 1,234.56.
	LocaleUK = Locale{DecimalSeparator: '.', ThousandsSeparator: ','}
	// LocaleEU formats amounts as 1.234,56.
	LocaleEU = Locale{DecimalSeparator: ',', ThousandsSeparator: '.'}
)

// Marker is a detection string and the weight it contributes when found.
type Marker struct {
	Text   string
	Weight float64
}

// TabColumns maps the cells of a tab-separated row (as produced by
// client-side pdf.js extraction) to fields. -1 marks an absent column.
type TabColumns struct {
	Date        int
	Description int
	Debit       int
	Credit      int
	Amount      int
	Balance     int
}

// HeaderRules extract statement metadata from individual lines. Each
// pattern captures a named group: "value" for single values, "start" and
// "end" for the period. Nil rules are skipped.
type HeaderRules struct {
	AccountNumber  *regexp.Regexp
	SortCode       *regexp.Regexp
	AccountHolder  *regexp.Regexp
	Period         *regexp.Regexp
	OpeningBalance *regexp.Regexp
	ClosingBalance *regexp.Regexp
	// BroughtForward matches undated "balance brought forward" lines that
	// seed the running balance on continuation pages.
	BroughtForward *regexp.Regexp
}

// BankConfig is the layout of one issuer's statements. Configs are built
// once when the package is initialised and must not be modified.
type BankConfig struct {
	ID          models.BankID
	DisplayName string
	// Currency is an ISO-4217 code.
	Currency string
	// DateFormats are Go time layouts tried in order; the first that parses wins.
	// Layouts without a year take it from the statement period.
	DateFormats []string
	// PeriodDateFormats are tried after DateFormats when parsing the
	// statement period, which is often printed with long month names.
	PeriodDateFormats []string
	// TransactionLine matches a dated row with the named groups
	// "date", "desc" and "amounts".
	TransactionLine *regexp.Regexp
	// CarriedDateLine matches an undated row that inherits the date of the
	// previous row, for layouts that print the date once per day.
	CarriedDateLine *regexp.Regexp
	AmountStyle     AmountStyle
	Locale          Locale
	HeaderMarkers   []Marker
	Header          HeaderRules
	// TableHeading matches the column heading that opens the transaction
	// section of a page.
	TableHeading *regexp.Regexp
	// Skip matches boilerplate lines inside the transaction section that
	// are neither transactions nor unparsed content.
	Skip []*regexp.Regexp
	Tabs *TabColumns
	// ContinuationLines appends undated lines without amounts to the
	// description of the previous row.
	ContinuationLines       bool
	ReconciliationTolerance decimal.Decimal
}

// CurrencySymbol returns the display grapheme of the config's currency.
func (c *BankConfig) CurrencySymbol() string {
	if cur := money.GetCurrency(c.Currency); cur != nil {
		return cur.Grapheme
	}
	return ""
}

// TotalMarkerWeight returns the sum of all marker weights.
func (c *BankConfig) TotalMarkerWeight() float64 {
	var total float64
	for _, m := range c.HeaderMarkers {
		total += m.Weight
	}
	return total
}

// Validate checks that the config is complete and internally consistent.
func (c *BankConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("bank config has no ID")
	}
	if c.DisplayName == "" {
		return fmt.Errorf("bank %q: display name is required", c.ID)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("bank %q: unknown currency %q", c.ID, c.Currency)
	}
	if len(c.DateFormats) == 0 {
		return fmt.Errorf("bank %q: at least one date format is required", c.ID)
	}
	if c.TransactionLine == nil {
		return fmt.Errorf("bank %q: transaction line pattern is required", c.ID)
	}
	for _, group := range []string{"date", "desc", "amounts"} {
		if c.TransactionLine.SubexpIndex(group) < 0 {
			return fmt.Errorf("bank %q: transaction line pattern lacks group %q", c.ID, group)
		}
	}
	if c.CarriedDateLine != nil {
		for _, group := range []string{"desc", "amounts"} {
			if c.CarriedDateLine.SubexpIndex(group) < 0 {
				return fmt.Errorf("bank %q: carried date pattern lacks group %q", c.ID, group)
			}
		}
	}
	if len(c.HeaderMarkers) == 0 || c.TotalMarkerWeight() <= 0 {
		return fmt.Errorf("bank %q: at least one weighted header marker is required", c.ID)
	}
	if c.ReconciliationTolerance.IsNegative() {
		return fmt.Errorf("bank %q: reconciliation tolerance must not be negative", c.ID)
	}
	return nil
}

// rowPattern builds a dated transaction row matcher from a date expression
// and an amount token expression. A row ends with one to three amounts.
func rowPattern(date, amount string) *regexp.Regexp {
	return regexp.MustCompile(
		`^(?P<date>` + date + `)\s+(?P<desc>.+?)\s+` +
			`(?P<amounts>` + amount + `(?:\s+` + amount + `){0,2})$`,
	)
}

// carriedPattern builds an undated row matcher for layouts that print the
// date only on the first row of each day.
func carriedPattern(amount string) *regexp.Regexp {
	return regexp.MustCompile(
		`^(?P<desc>\pL.*?)\s+(?P<amounts>` + amount + `(?:\s+` + amount + `){0,2})$`,
	)
}

// headerRules returns the metadata rules shared by most layouts.
func headerRules(account, amount string) HeaderRules {
	return HeaderRules{
		AccountNumber:  regexp.MustCompile(`(?i)\baccount (?:number|no\.?):?\s*(?P<value>` + account + `)\b`),
		SortCode:       regexp.MustCompile(`(?i)\bsort code:?\s*(?P<value>\d{2}-\d{2}-\d{2})\b`),
		AccountHolder:  regexp.MustCompile(`(?i)^account (?:holder|name):?\s*(?P<value>.+)$`),
		Period:         regexp.MustCompile(`(?i)^(?:statement )?period:?\s*(?P<start>.+?)\s+(?:to|through|-)\s+(?P<end>.+)$`),
		OpeningBalance: regexp.MustCompile(`(?i)^(?:opening|beginning|start(?:ing)?|previous) balance:?\s*(?P<value>` + amount + `)$`),
		ClosingBalance: regexp.MustCompile(`(?i)^(?:closing|ending|end|new) balance:?\s*(?P<value>` + amount + `)$`),
		BroughtForward: regexp.MustCompile(`(?i)^balance brought forward:?\s*(?P<value>` + amount + `)$`),
	}
}

// tableHeading matches column headings such as
// "Date Description Paid out Paid in Balance".
var tableHeading = regexp.MustCompile(
	`(?i)^date\b.*\b(?:description|details|transaction|paid|buchungstext)\b.*\b(?:amount|paid|balance|money|betrag)\b`,
)

// commonSkip matches page furniture found inside transaction tables.
var commonSkip = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^page\s+\d+(?:\s+of\s+\d+)?$`),
	regexp.MustCompile(`(?i)^continued(?: on next page| overleaf)?\.?$`),
	regexp.MustCompile(`(?i)^balance carried forward:?\s*\S*$`),
	regexp.MustCompile(`(?i)^total (?:paid in|paid out|payments|receipts|credits|debits|deposits|withdrawals)\b.*$`),
}

// longDateFormats are tried when parsing a statement period.
var longDateFormats = []string{
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}
