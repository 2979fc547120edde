package banks

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

const hsbcDate = `\d{1,2}(?:\s+|-)(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(?:\s+|-)\d{2,4}` +
	`|\d{1,2}/\d{1,2}/\d{4}`

// hsbc handles HSBC UK statements.
//
// HSBC statements typically have this layout:
//
//	Date | Payment type and details | Paid out | Paid in | Balance
//
// Date format: DD Mon YY (e.g., 15 Jan 24) or DD Mon YYYY. The date is only
// printed on the first row of each day and long details wrap onto
// following lines.
var hsbc = &BankConfig{
	ID:          models.BankHSBC,
	DisplayName: "HSBC",
	Currency:    "GBP",
	DateFormats: []string{
		"2 Jan 06", "2 Jan 2006", "2-Jan-06", "2-Jan-2006", "02/01/2006",
	},
	PeriodDateFormats: longDateFormats,
	TransactionLine:   rowPattern(hsbcDate, ukAmount),
	CarriedDateLine:   carriedPattern(ukAmount),
	AmountStyle:       SplitColumns,
	Locale:            LocaleUK,
	HeaderMarkers: []Marker{
		{Text: "HSBC", Weight: 3},
		{Text: "HSBC UK Bank", Weight: 2},
		{Text: "hsbc.co.uk", Weight: 1},
		{Text: "Payment type and details", Weight: 1},
	},
	Header:       headerRules(`\d{8}`, ukAmount),
	TableHeading: tableHeading,
	Skip:         commonSkip,
	Tabs: &TabColumns{
		Date: 0, Description: 1, Debit: 2, Credit: 3, Amount: -1, Balance: 4,
	},
	ContinuationLines:       true,
	ReconciliationTolerance: decimal.RequireFromString("0.01"),
}
