// Package validator checks a parsed statement for fatal problems and
// quality warnings.
package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/stats"
)

// Options hold the validation thresholds.
type Options struct {
	// UnparsedLineRatio is the share of unparsed lines above which a
	// warning is raised.
	UnparsedLineRatio float64
	// UnreadableDateRatio is the share of candidate rows with unreadable
	// dates above which the statement is rejected.
	UnreadableDateRatio float64
	// AmbiguityMargin is the detection confidence below which a warning is raised.
	AmbiguityMargin float64
}

// DefaultOptions returns the default thresholds.
func DefaultOptions() Options {
	return Options{
		UnparsedLineRatio:   0.10,
		UnreadableDateRatio: 0.50,
		AmbiguityMargin:     0.20,
	}
}

// Meta carries per-run facts the statement itself does not hold.
type Meta struct {
	Hint           models.BankID
	UnparsedLines  int
	TotalLines     int
	CandidateLines int
	DateFailures   int
	// Tolerance is the bank's reconciliation tolerance.
	Tolerance decimal.Decimal
	// RowIssues are row-level warnings raised while parsing.
	RowIssues []models.Issue
}

// Validate inspects stmt and the detection that selected its layout. The
// result is valid iff no error was recorded.
func Validate(stmt *models.ParsedStatement, det models.DetectionResult, meta Meta, opts Options) models.ValidationResult {
	v := models.ValidationResult{
		Errors:   []models.Issue{},
		Warnings: []models.Issue{},
	}
	if stmt != nil {
		v.Bank = stmt.BankID
	}

	if !det.Detected() && meta.Hint == "" {
		v.Errors = append(v.Errors, models.Issue{
			Kind:    models.KindUnsupportedBankFormat,
			Message: "statement layout not recognised; specify the bank",
		})
	}

	if stmt != nil {
		if movements(stmt) == 0 {
			v.Errors = append(v.Errors, models.Issue{
				Kind:    models.KindNoTransactions,
				Message: "no transactions found in statement",
			})
		}
		if !stmt.StatementPeriodStart.IsZero() && !stmt.StatementPeriodEnd.IsZero() &&
			stmt.StatementPeriodStart.After(stmt.StatementPeriodEnd) {
			v.Errors = append(v.Errors, models.Issue{
				Kind: models.KindInvalidStatementPeriod,
				Message: fmt.Sprintf("statement period start %s is after end %s",
					stmt.StatementPeriodStart.Format("2006-01-02"), stmt.StatementPeriodEnd.Format("2006-01-02")),
			})
		}
	}

	if meta.CandidateLines > 0 {
		ratio := float64(meta.DateFailures) / float64(meta.CandidateLines)
		if ratio > opts.UnreadableDateRatio {
			v.Errors = append(v.Errors, models.Issue{
				Kind: models.KindUnreadableDates,
				Message: fmt.Sprintf("%d of %d transaction dates could not be read",
					meta.DateFailures, meta.CandidateLines),
			})
		}
	}

	v.Warnings = append(v.Warnings, detectionWarnings(det, meta.Hint, opts)...)

	if meta.TotalLines > 0 {
		ratio := float64(meta.UnparsedLines) / float64(meta.TotalLines)
		if ratio > opts.UnparsedLineRatio {
			v.Warnings = append(v.Warnings, models.Issue{
				Kind:    models.KindUnparsedLineRatioExceeded,
				Message: fmt.Sprintf("%d%% of lines could not be parsed; results may be incomplete", int(math.Round(ratio*100))),
			})
		}
	}

	if stmt != nil && meta.UnparsedLines == 0 {
		if w, ok := reconcile(stmt, meta.Tolerance); !ok {
			v.Warnings = append(v.Warnings, w)
		}
	}

	v.Warnings = append(v.Warnings, meta.RowIssues...)
	v.Valid = len(v.Errors) == 0
	return v
}

// Failed returns an invalid result carrying a single error.
func Failed(bank models.BankID, kind models.IssueKind, message string) models.ValidationResult {
	return models.ValidationResult{
		Valid:    false,
		Bank:     bank,
		Errors:   []models.Issue{{Kind: kind, Message: message}},
		Warnings: []models.Issue{},
	}
}

func detectionWarnings(det models.DetectionResult, hint models.BankID, opts Options) []models.Issue {
	var out []models.Issue
	switch {
	case !det.Detected() && hint != "":
		out = append(out, models.Issue{
			Kind:    models.KindAmbiguousBankDetection,
			Message: fmt.Sprintf("statement layout not recognised from content; using %s as requested", hint),
		})
	case det.Detected() && (det.Ambiguous || det.Confidence < opts.AmbiguityMargin):
		out = append(out, models.Issue{
			Kind:    models.KindAmbiguousBankDetection,
			Message: fmt.Sprintf("low confidence bank detection (%.2f): %s", det.Confidence, describeCandidates(det.Candidates)),
		})
	}
	if hint != "" && det.Detected() && det.BankID != hint {
		out = append(out, models.Issue{
			Kind:    models.KindHintMismatch,
			Message: fmt.Sprintf("requested bank %s but statement looks like %s", hint, det.BankID),
		})
	}
	return out
}

func describeCandidates(cands []models.Candidate) string {
	if len(cands) > 2 {
		cands = cands[:2]
	}
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		parts = append(parts, fmt.Sprintf("%s %.2f", c.BankID, c.Score))
	}
	return strings.Join(parts, " vs ")
}

// reconcile checks that the opening balance plus the net change of the
// non-duplicate rows equals the closing balance within tolerance.
func reconcile(stmt *models.ParsedStatement, tolerance decimal.Decimal) (models.Issue, bool) {
	if stmt.OpeningBalance == nil || stmt.ClosingBalance == nil {
		return models.Issue{}, true
	}
	net := stats.Aggregate(stmt).NetChange
	expected := stmt.OpeningBalance.Add(net)
	diff := expected.Sub(*stmt.ClosingBalance).Abs()
	if diff.LessThanOrEqual(tolerance) {
		return models.Issue{}, true
	}
	return models.Issue{
		Kind: models.KindBalanceReconciliationMismatch,
		Message: fmt.Sprintf("opening balance %s plus net change %s is %s, but closing balance is %s (difference %s)",
			stmt.OpeningBalance.StringFixed(2), net.StringFixed(2), expected.StringFixed(2),
			stmt.ClosingBalance.StringFixed(2), diff.StringFixed(2)),
	}, false
}

func movements(stmt *models.ParsedStatement) int {
	n := 0
	for _, t := range stmt.Transactions {
		if !t.IsBalanceMarker() {
			n++
		}
	}
	return n
}
