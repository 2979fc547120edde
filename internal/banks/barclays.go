package banks

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

const barclaysDate = `\d{1,2}/\d{1,2}/\d{4}` +
	`|\d{1,2}\s+(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(?:\s+\d{4})?`

// barclays handles Barclays personal and business statements.
//
// Date format: DD/MM/YYYY, DD Mon YYYY, or "D Mon" without a year on
// business statements. Like HSBC, business statements print the date once
// per day.
var barclays = &BankConfig{
	ID:                models.BankBarclays,
	DisplayName:       "Barclays",
	Currency:          "GBP",
	DateFormats:       []string{"02/01/2006", "2 Jan 2006", "2 Jan"},
	PeriodDateFormats: longDateFormats,
	TransactionLine:   rowPattern(barclaysDate, ukAmount),
	CarriedDateLine:   carriedPattern(ukAmount),
	AmountStyle:       SplitColumns,
	Locale:            LocaleUK,
	HeaderMarkers: []Marker{
		{Text: "Barclays", Weight: 3},
		{Text: "Barclays Bank UK PLC", Weight: 2},
		{Text: "barclays.co.uk", Weight: 1},
	},
	Header:       headerRules(`\d{8}`, ukAmount),
	TableHeading: tableHeading,
	Skip: append([]*regexp.Regexp{
		regexp.MustCompile(`(?i)^barclays bank uk plc\b.*(?:authorised|registered)\b.*$`),
		regexp.MustCompile(`(?i)^(?:exchange rate|non-sterling)\b.*$`),
	}, commonSkip...),
	ContinuationLines:       true,
	ReconciliationTolerance: decimal.RequireFromString("0.01"),
}
