// Package stats derives summary figures from a parsed statement.
package stats

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
)

// Aggregate computes totals over the statement's transactions. Duplicates
// are excluded from the money totals but included in the counts and the
// per-type tally. Balance marker rows carry no money and count as rows.
func Aggregate(stmt *models.ParsedStatement) models.StatementStats {
	s := models.StatementStats{
		TotalCredits:     decimal.Zero,
		TotalDebits:      decimal.Zero,
		NetChange:        decimal.Zero,
		TransactionTypes: make(map[models.TransactionType]int),
	}
	if stmt == nil {
		return s
	}

	for _, t := range stmt.Transactions {
		s.TransactionCount++
		s.TransactionTypes[typeOf(t)]++
		if t.IsDuplicate {
			s.DuplicateCount++
			continue
		}
		if t.Credit != nil {
			s.TotalCredits = s.TotalCredits.Add(*t.Credit)
		}
		if t.Debit != nil {
			s.TotalDebits = s.TotalDebits.Add(*t.Debit)
		}
	}

	s.NetChange = s.TotalCredits.Sub(s.TotalDebits)
	if s.TransactionCount > 0 {
		s.DuplicateRatio = float64(s.DuplicateCount) / float64(s.TransactionCount)
	}
	return s
}

func typeOf(t models.ParsedTransaction) models.TransactionType {
	if t.Type == "" {
		return models.TypeUnknown
	}
	return t.Type
}
