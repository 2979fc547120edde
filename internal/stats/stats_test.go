package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-engine/internal/models"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAggregate(t *testing.T) {
	stmt := &models.ParsedStatement{
		Transactions: []models.ParsedTransaction{
			{Description: "Payroll", Credit: amount("4000.00"), Type: models.TypeDirectCredit},
			{Description: "Whole Foods", Debit: amount("156.78"), Type: models.TypeCardPurchase},
			{Description: "Transfer", Debit: amount("2000.00"), Type: models.TypeTransfer},
			{Description: "Interest", Credit: amount("10.50"), Type: models.TypeInterest},
			{Description: "ATM", Debit: amount("89.00"), Type: models.TypeATM},
			{Description: "Transfer", Debit: amount("2000.00"), Type: models.TypeTransfer, IsDuplicate: true},
		},
	}

	s := Aggregate(stmt)
	assert.True(t, s.TotalCredits.Equal(decimal.RequireFromString("4010.50")), s.TotalCredits.String())
	assert.True(t, s.TotalDebits.Equal(decimal.RequireFromString("2245.78")), s.TotalDebits.String())
	assert.True(t, s.NetChange.Equal(decimal.RequireFromString("1764.72")), s.NetChange.String())
	assert.Equal(t, 6, s.TransactionCount)
	assert.Equal(t, len(stmt.Transactions), s.TransactionCount)
	assert.Equal(t, 1, s.DuplicateCount)
	assert.InDelta(t, 1.0/6.0, s.DuplicateRatio, 1e-9)
	assert.Equal(t, 2, s.TransactionTypes[models.TypeTransfer])
	assert.Equal(t, 1, s.TransactionTypes[models.TypeATM])
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(&models.ParsedStatement{})
	assert.True(t, s.TotalCredits.IsZero())
	assert.True(t, s.NetChange.IsZero())
	assert.Zero(t, s.TransactionCount)
	assert.Zero(t, s.DuplicateRatio)
	assert.NotNil(t, s.TransactionTypes)

	assert.Zero(t, Aggregate(nil).TransactionCount)
}

func TestAggregateCountsMarkersWithoutMoney(t *testing.T) {
	stmt := &models.ParsedStatement{
		Transactions: []models.ParsedTransaction{
			{Description: "BALANCE BROUGHT FORWARD", RunningBalance: amount("100.00"), Type: models.TypeUnknown},
			{Description: "Fee", Debit: amount("5.00")},
		},
	}

	s := Aggregate(stmt)
	assert.Equal(t, 2, s.TransactionCount)
	assert.True(t, s.NetChange.Equal(decimal.RequireFromString("-5")))
	assert.Equal(t, 2, s.TransactionTypes[models.TypeUnknown])
}
