// Package dedup flags transactions that repeat an earlier one.
package dedup

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/textnorm"
)

// Options tune duplicate matching.
type Options struct {
	// MaxEditDistance is the largest Levenshtein distance between two
	// normalised descriptions that still counts as the same transaction.
	MaxEditDistance int
}

// DefaultOptions returns the matching defaults.
func DefaultOptions() Options {
	return Options{MaxEditDistance: 2}
}

type key struct {
	date   string
	amount string
}

// MarkDuplicates returns a copy of txns with IsDuplicate set on every row
// that matches an earlier canonical row of txns or any row of prior.
// Two rows match when they share the calendar date and signed amount and
// their normalised descriptions are within MaxEditDistance edits.
//
// Existing IsDuplicate flags are ignored, so the operation is idempotent.
// Balance marker rows are never flagged and never match. Neither input is
// modified.
func MarkDuplicates(txns, prior []models.ParsedTransaction, opts Options) []models.ParsedTransaction {
	out := make([]models.ParsedTransaction, len(txns))
	copy(out, txns)

	known := make(map[key][]string, len(prior))
	for _, p := range prior {
		if p.IsBalanceMarker() {
			continue
		}
		k := keyOf(p)
		known[k] = append(known[k], normalized(p))
	}

	canonical := make(map[key][]string, len(out))
	for i := range out {
		t := &out[i]
		t.IsDuplicate = false
		if t.IsBalanceMarker() {
			continue
		}
		k := keyOf(*t)
		desc := normalized(*t)
		if matchesAny(desc, known[k], opts) || matchesAny(desc, canonical[k], opts) {
			t.IsDuplicate = true
			continue
		}
		canonical[k] = append(canonical[k], desc)
	}
	return out
}

func keyOf(t models.ParsedTransaction) key {
	return key{
		date:   t.Date.Format("2006-01-02"),
		amount: t.SignedAmount().String(),
	}
}

func normalized(t models.ParsedTransaction) string {
	if t.NormalizedDescription != "" {
		return t.NormalizedDescription
	}
	return textnorm.Fold(t.Description)
}

func matchesAny(desc string, candidates []string, opts Options) bool {
	for _, c := range candidates {
		if c == desc || fuzzy.LevenshteinDistance(c, desc) <= opts.MaxEditDistance {
			return true
		}
	}
	return false
}
