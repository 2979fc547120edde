package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankID identifies a supported statement issuer.
type BankID string

const (
	BankMetro    BankID = "metro"
	BankHSBC     BankID = "hsbc"
	BankBarclays BankID = "barclays"
	BankChase    BankID = "chase"
	BankING      BankID = "ing"
)

// ParsedStatement holds the statement metadata and its transactions.
type ParsedStatement struct {
	BankID               BankID              `json:"bankId,omitempty"`
	BankName             string              `json:"bankName"`
	Filename             string              `json:"filename,omitempty"`
	Currency             string              `json:"currency"`
	AccountNumber        string              `json:"accountNumber,omitempty"`
	SortCode             string              `json:"sortCode,omitempty"`
	AccountHolder        string              `json:"accountHolder,omitempty"`
	StatementPeriodStart time.Time           `json:"statementPeriodStart"`
	StatementPeriodEnd   time.Time           `json:"statementPeriodEnd"`
	PageCount            int                 `json:"pageCount"`
	OpeningBalance       *decimal.Decimal    `json:"openingBalance,omitempty"`
	ClosingBalance       *decimal.Decimal    `json:"closingBalance,omitempty"`
	Transactions         []ParsedTransaction `json:"transactions"`
}

// Candidate is one scored bank during detection.
type Candidate struct {
	BankID BankID  `json:"bankId"`
	Score  float64 `json:"score"`
}

// DetectionResult is produced fresh for every detection call.
// An empty BankID means no registered bank cleared the minimum score.
type DetectionResult struct {
	BankID     BankID      `json:"bankId,omitempty"`
	Confidence float64     `json:"confidence"`
	Ambiguous  bool        `json:"ambiguous"`
	Candidates []Candidate `json:"candidates"`
}

// Detected reports whether a bank was selected.
func (d DetectionResult) Detected() bool {
	return d.BankID != ""
}

// StatementStats is derived from a ParsedStatement on demand.
type StatementStats struct {
	TotalCredits     decimal.Decimal         `json:"totalCredits"`
	TotalDebits      decimal.Decimal         `json:"totalDebits"`
	NetChange        decimal.Decimal         `json:"netChange"`
	TransactionCount int                     `json:"transactionCount"`
	DuplicateCount   int                     `json:"duplicateCount"`
	DuplicateRatio   float64                 `json:"duplicateRatio"`
	TransactionTypes map[TransactionType]int `json:"transactionTypes"`
}
