package banks

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// ukAmount matches amounts such as "1,234.56" or "£25.99".
const ukAmount = `£?\d[\d,]*\.\d{2}`

// metro handles Metro Bank statements.
//
// Metro Bank statements typically have this layout:
//
//	Date | Transaction type | Description | Paid out | Paid in | Balance
//
// Date format: DD/MM/YYYY
// Example line: "15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"
var metro = &BankConfig{
	ID:                models.BankMetro,
	DisplayName:       "Metro Bank",
	Currency:          "GBP",
	DateFormats:       []string{"02/01/2006", "2/1/2006", "02/01/06"},
	PeriodDateFormats: longDateFormats,
	TransactionLine:   rowPattern(`\d{1,2}/\d{1,2}/\d{2,4}`, ukAmount),
	AmountStyle:       SplitColumns,
	Locale:            LocaleUK,
	HeaderMarkers: []Marker{
		{Text: "Metro Bank", Weight: 3},
		{Text: "metrobankonline", Weight: 2},
		{Text: "Metro Bank PLC", Weight: 1},
	},
	Header:       headerRules(`\d{8}`, ukAmount),
	TableHeading: tableHeading,
	Skip:         commonSkip,
	Tabs: &TabColumns{
		Date: 0, Description: 1, Debit: 2, Credit: 3, Amount: -1, Balance: 4,
	},
	ReconciliationTolerance: decimal.RequireFromString("0.01"),
}
