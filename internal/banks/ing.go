package banks

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// euSignedAmount matches amounts such as "-1.234,56" or "2.500,00".
const euSignedAmount = `[-+]?\d[\d.]*,\d{2}`

// ing handles ING Germany current account statements (Kontoauszug).
//
//	Buchung | Buchungstext | Betrag (EUR)
//
// Date format: DD.MM.YYYY. Amounts use a decimal comma.
var ing = &BankConfig{
	ID:                models.BankING,
	DisplayName:       "ING",
	Currency:          "EUR",
	DateFormats:       []string{"02.01.2006", "02.01.06"},
	PeriodDateFormats: longDateFormats,
	TransactionLine:   rowPattern(`\d{2}\.\d{2}\.\d{2,4}`, euSignedAmount),
	AmountStyle:       SignedColumn,
	Locale:            LocaleEU,
	HeaderMarkers: []Marker{
		{Text: "ING-DiBa", Weight: 2},
		{Text: "ING Bank", Weight: 2},
		{Text: "Kontoauszug", Weight: 2},
		{Text: "Girokonto", Weight: 1},
	},
	Header: HeaderRules{
		AccountNumber:  regexp.MustCompile(`(?i)\biban:?\s*(?P<value>DE\d{2}(?:\s?\d{4}){4}\s?\d{2})`),
		AccountHolder:  regexp.MustCompile(`(?i)^kontoinhaber:?\s*(?P<value>.+)$`),
		Period:         regexp.MustCompile(`(?i)^(?:zeitraum|kontoauszug vom):?\s*(?P<start>\S+)\s+(?:bis|-)\s+(?P<end>\S+)$`),
		OpeningBalance: regexp.MustCompile(`(?i)^alter saldo:?\s*(?P<value>` + euSignedAmount + `)(?:\s*(?:eur|€))?$`),
		ClosingBalance: regexp.MustCompile(`(?i)^neuer saldo:?\s*(?P<value>` + euSignedAmount + `)(?:\s*(?:eur|€))?$`),
	},
	TableHeading: regexp.MustCompile(`(?i)^buchung\b.*\bbetrag\b`),
	Skip: append([]*regexp.Regexp{
		regexp.MustCompile(`(?i)^seite\s+\d+(?:\s+von\s+\d+)?$`),
		regexp.MustCompile(`(?i)^valuta\s+\d{2}\.\d{2}\.\d{2,4}$`),
	}, commonSkip...),
	ReconciliationTolerance: decimal.RequireFromString("0.01"),
}
