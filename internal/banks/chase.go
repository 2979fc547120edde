package banks

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// usSignedAmount matches amounts such as "-156.78", "-$2,000.00" or "$10.50".
const usSignedAmount = `-?\$?\d[\d,]*\.\d{2}`

// chase handles Chase checking statements.
//
// The transaction detail table carries a single signed amount column
// followed by the running balance:
//
//	DATE | DESCRIPTION | AMOUNT | BALANCE
//
// Dates are MM/DD without a year.
var chase = &BankConfig{
	ID:                models.BankChase,
	DisplayName:       "Chase",
	Currency:          "USD",
	DateFormats:       []string{"01/02/2006", "01/02/06", "01/02"},
	PeriodDateFormats: longDateFormats,
	TransactionLine:   rowPattern(`\d{2}/\d{2}(?:/\d{2}(?:\d{2})?)?`, usSignedAmount),
	AmountStyle:       SignedColumn,
	Locale:            LocaleUK,
	HeaderMarkers: []Marker{
		{Text: "JPMorgan Chase", Weight: 3},
		{Text: "Chase", Weight: 2},
		{Text: "chase.com", Weight: 1},
		{Text: "Checking Summary", Weight: 1},
	},
	Header:       headerRules(`\d{6,17}`, usSignedAmount),
	TableHeading: tableHeading,
	Skip:         commonSkip,
	Tabs: &TabColumns{
		Date: 0, Description: 1, Debit: -1, Credit: -1, Amount: 2, Balance: 3,
	},
	ReconciliationTolerance: decimal.RequireFromString("0.01"),
}
