package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed taxonomy a transaction description is classified into.
type TransactionType string

const (
	TypePayment      TransactionType = "payment"
	TypeTransfer     TransactionType = "transfer"
	TypeFee          TransactionType = "fee"
	TypeInterest     TransactionType = "interest"
	TypeDeposit      TransactionType = "deposit"
	TypeWithdrawal   TransactionType = "withdrawal"
	TypeDirectDebit  TransactionType = "direct_debit"
	TypeDirectCredit TransactionType = "direct_credit"
	TypeATM          TransactionType = "atm"
	TypeCardPurchase TransactionType = "card_purchase"
	TypeUnknown      TransactionType = "unknown"
)

// TransactionTypes lists every TransactionType in a stable order.
var TransactionTypes = []TransactionType{
	TypePayment,
	TypeTransfer,
	TypeFee,
	TypeInterest,
	TypeDeposit,
	TypeWithdrawal,
	TypeDirectDebit,
	TypeDirectCredit,
	TypeATM,
	TypeCardPurchase,
	TypeUnknown,
}

// Valid reports whether t is a member of the closed taxonomy.
func (t TransactionType) Valid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParsedTransaction represents a single bank statement transaction.
//
// Exactly one of Debit and Credit is set and strictly positive, except for
// balance-only marker rows ("BALANCE BROUGHT FORWARD") where both are nil.
type ParsedTransaction struct {
	Date                  time.Time        `json:"date"`
	Description           string           `json:"description"`
	NormalizedDescription string           `json:"normalizedDescription"`
	Debit                 *decimal.Decimal `json:"debit,omitempty"`
	Credit                *decimal.Decimal `json:"credit,omitempty"`
	RunningBalance        *decimal.Decimal `json:"runningBalance,omitempty"`
	Type                  TransactionType  `json:"type"`
	IsDuplicate           bool             `json:"isDuplicate"`
	SourcePage            int              `json:"sourcePage"`
	SourceLineIndex       int              `json:"sourceLineIndex"`
	// DateFallback is set when the row's date could not be parsed and the
	// statement period start was used instead.
	DateFallback bool `json:"dateFallback,omitempty"`
}

// IsBalanceMarker reports whether the row carries only a balance.
func (t ParsedTransaction) IsBalanceMarker() bool {
	return t.Debit == nil && t.Credit == nil
}

// SignedAmount returns the credit as a positive value, the debit as a
// negative value, or zero for balance marker rows.
func (t ParsedTransaction) SignedAmount() decimal.Decimal {
	switch {
	case t.Credit != nil:
		return *t.Credit
	case t.Debit != nil:
		return t.Debit.Neg()
	default:
		return decimal.Zero
	}
}

// Amount returns the unsigned magnitude of the row.
func (t ParsedTransaction) Amount() decimal.Decimal {
	return t.SignedAmount().Abs()
}
