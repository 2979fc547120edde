package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/config"
	"github.com/insightdelivered/statement-engine/internal/logging"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/progress"
)

const chaseSummaryPage = `JPMorgan Chase Bank, N.A.
P O Box 182051
Columbus, OH 43218
CHECKING SUMMARY
Account Number: 000000123456789
Statement Period: January 1, 2024 through January 31, 2024
Beginning Balance $5,000.00
Ending Balance $6,764.72`

const chaseDetailPage = `TRANSACTION DETAIL
DATE DESCRIPTION AMOUNT BALANCE
01/05 Payroll Deposit ACME CORP 4,000.00 9,000.00
01/08 Zelle Payment To John -156.78 8,843.22
01/12 Online Transfer To Savings -2,000.00 6,843.22
01/15 Interest Payment 10.50 6,853.72
01/20 Monthly Service Fee -89.00 6,764.72`

const metroPage = `Metro Bank
Account Statement
Account holder: John Smith
Sort code: 23-05-80
Account number: 12345678
Statement period: 01/01/2024 to 31/01/2024
Opening balance 1,260.55

Date Description Paid out Paid in Balance
15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56
16/01/2024 DIRECT DEBIT SKY UK LTD 45.00 1,189.56
17/01/2024 BANK CREDIT SALARY 2,500.00 3,689.56
18/01/2024 CARD PAYMENT AMAZON UK 15.49 3,674.07
Closing balance 3,674.07`

func newEngine() *Engine {
	return New(config.DefaultPolicy(),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseStatementTwoPageChase(t *testing.T) {
	e := newEngine()

	res, err := e.ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{Filename: "chase.pdf"})
	require.NoError(t, err)
	require.NotNil(t, res.Statement)

	assert.True(t, res.Validation.Valid)
	assert.Empty(t, res.Validation.Errors)
	assert.Empty(t, res.Validation.Warnings)
	assert.Equal(t, models.BankChase, res.Validation.Bank)

	stmt := res.Statement
	assert.Equal(t, "Chase", stmt.BankName)
	assert.Equal(t, "USD", stmt.Currency)
	assert.Equal(t, "chase.pdf", stmt.Filename)
	assert.Equal(t, "000000123456789", stmt.AccountNumber)
	assert.Equal(t, 2, stmt.PageCount)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), stmt.StatementPeriodStart)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), stmt.StatementPeriodEnd)
	require.NotNil(t, stmt.OpeningBalance)
	require.NotNil(t, stmt.ClosingBalance)
	assert.True(t, dec("5000").Equal(*stmt.OpeningBalance))
	assert.True(t, dec("6764.72").Equal(*stmt.ClosingBalance))

	require.Len(t, stmt.Transactions, 5)
	first := stmt.Transactions[0]
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "payroll deposit acme corp", first.NormalizedDescription)
	assert.Equal(t, 2, first.SourcePage)
	assert.Equal(t, 2, first.SourceLineIndex)
	require.NotNil(t, first.Credit)
	assert.Nil(t, first.Debit)

	s := res.Stats
	assert.True(t, dec("4010.50").Equal(s.TotalCredits), s.TotalCredits.String())
	assert.True(t, dec("2245.78").Equal(s.TotalDebits), s.TotalDebits.String())
	assert.True(t, dec("1764.72").Equal(s.NetChange), s.NetChange.String())
	assert.Equal(t, 5, s.TransactionCount)
	assert.Zero(t, s.DuplicateCount)
	assert.Equal(t, 1, s.TransactionTypes[models.TypeDirectCredit])
	assert.Equal(t, 2, s.TransactionTypes[models.TypeTransfer])
	assert.Equal(t, 1, s.TransactionTypes[models.TypeInterest])
	assert.Equal(t, 1, s.TransactionTypes[models.TypeFee])

	assert.Zero(t, res.UnparsedLines)
	assert.Equal(t, models.StatusComplete, res.Progress.Status)
	assert.Equal(t, 100, res.Progress.Progress)
	assert.NotEmpty(t, res.RunID)
}

func TestParseStatementRepeatedLine(t *testing.T) {
	e := newEngine()
	detail := chaseDetailPage + "\n01/12 Online Transfer To Savings -2,000.00 6,843.22"

	res, err := e.ParseStatement(context.Background(), []string{chaseSummaryPage, detail}, ParseOptions{})
	require.NoError(t, err)

	assert.True(t, res.Validation.Valid)
	assert.Empty(t, res.Validation.Warnings)
	require.Len(t, res.Statement.Transactions, 6)
	assert.False(t, res.Statement.Transactions[2].IsDuplicate)
	assert.True(t, res.Statement.Transactions[5].IsDuplicate)

	assert.Equal(t, 6, res.Stats.TransactionCount)
	assert.Equal(t, 1, res.Stats.DuplicateCount)
	assert.True(t, dec("2245.78").Equal(res.Stats.TotalDebits), res.Stats.TotalDebits.String())
	assert.True(t, dec("4010.50").Equal(res.Stats.TotalCredits))
}

func TestParseStatementPriorTransactions(t *testing.T) {
	e := newEngine()
	first, err := e.ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{})
	require.NoError(t, err)

	again, err := e.ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{
		Prior: first.Statement.Transactions[:2],
	})
	require.NoError(t, err)

	assert.Equal(t, 2, again.Stats.DuplicateCount)
	assert.True(t, again.Statement.Transactions[0].IsDuplicate)
	assert.True(t, again.Statement.Transactions[1].IsDuplicate)
	assert.False(t, again.Statement.Transactions[2].IsDuplicate)
}

func TestParseStatementReconciledMetro(t *testing.T) {
	e := newEngine()

	res, err := e.ParseStatement(context.Background(), []string{metroPage}, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.BankMetro, res.Detection.BankID)
	assert.True(t, res.Validation.Valid)
	assert.False(t, res.Validation.HasWarning(models.KindBalanceReconciliationMismatch))
	assert.Equal(t, "12345678", res.Statement.AccountNumber)
	assert.Equal(t, "23-05-80", res.Statement.SortCode)
	assert.Equal(t, models.TypeCardPurchase, res.Statement.Transactions[0].Type)
	assert.Equal(t, models.TypeDirectDebit, res.Statement.Transactions[1].Type)
}

func TestParseStatementReconciliationMismatch(t *testing.T) {
	e := newEngine()
	page := strings.Replace(metroPage, "Closing balance 3,674.07", "Closing balance 3,700.00", 1)

	res, err := e.ParseStatement(context.Background(), []string{page}, ParseOptions{})
	require.NoError(t, err)

	assert.True(t, res.Validation.Valid)
	assert.True(t, res.Validation.HasWarning(models.KindBalanceReconciliationMismatch))
}

func TestParseStatementFailures(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		opts     ParseOptions
		kind     models.IssueKind
		sentinel error
	}{
		{
			name:     "unknown layout",
			pages:    []string{"Monzo Bank Ltd\nYour statement\n03 Jan 2024 Coffee 3.20"},
			kind:     models.KindUnsupportedBankFormat,
			sentinel: ErrUnsupportedBankFormat,
		},
		{
			name:     "blank pages",
			pages:    []string{"", "  \n\t\n"},
			kind:     models.KindEmptyInput,
			sentinel: ErrEmptyInput,
		},
		{
			name:     "page count mismatch",
			pages:    []string{chaseSummaryPage, chaseDetailPage},
			opts:     ParseOptions{ExpectedPageCount: 3},
			kind:     models.KindCorruptPageStructure,
			sentinel: ErrCorruptPageStructure,
		},
		{
			name:     "detected bank without any rows",
			pages:    []string{chaseSummaryPage},
			kind:     models.KindUnsupportedBankFormat,
			sentinel: ErrUnsupportedBankFormat,
		},
		{
			name:     "markers without any layout's rows",
			pages:    []string{"HSBC UK Bank plc\nYour Statement\nThank you for banking with us\nNothing to report this month"},
			kind:     models.KindUnsupportedBankFormat,
			sentinel: ErrUnsupportedBankFormat,
		},
		{
			name:     "rows matched but all rejected",
			pages:    []string{chaseSummaryPage + "\n" + "01/05 Pending Deposit 0.00 5,000.00"},
			kind:     models.KindNoTransactions,
			sentinel: ErrNoTransactions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			rep := progress.New("test", 16)
			tt.opts.Progress = rep

			res, err := e.ParseStatement(context.Background(), tt.pages, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))

			require.NotNil(t, res)
			assert.False(t, res.Validation.Valid)
			assert.True(t, res.Validation.HasError(tt.kind))
			assert.Equal(t, models.StatusError, res.Progress.Status)
			assert.Equal(t, models.StatusError, rep.Snapshot().Status)
		})
	}
}

func TestParseStatementNoPages(t *testing.T) {
	res, err := newEngine().ParseStatement(context.Background(), nil, ParseOptions{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestParseStatementFinishedReporter(t *testing.T) {
	rep := progress.New("done", 4)
	require.NoError(t, rep.Complete("earlier run"))

	res, err := newEngine().ParseStatement(context.Background(), []string{metroPage}, ParseOptions{Progress: rep})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrProgressFinished)
	assert.Equal(t, "earlier run", rep.Snapshot().Message)
}

func TestParseStatementCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newEngine().ParseStatement(ctx, []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "cancelled", err.Error())

	assert.Nil(t, res.Statement)
	assert.Equal(t, models.StatusError, res.Progress.Status)
	assert.Equal(t, "cancelled", res.Progress.Message)
	assert.True(t, res.Validation.HasError(models.KindCancelled))
}

func TestParseStatementHintFallback(t *testing.T) {
	page := strings.Replace(metroPage, "Metro Bank\n", "", 1)

	res, err := newEngine().ParseStatement(context.Background(), []string{page}, ParseOptions{Hint: models.BankMetro})
	require.NoError(t, err)

	assert.False(t, res.Detection.Detected())
	assert.Equal(t, models.BankMetro, res.Statement.BankID)
	assert.True(t, res.Validation.Valid)
	assert.True(t, res.Validation.HasWarning(models.KindAmbiguousBankDetection))
}

func TestParseStatementHintMismatch(t *testing.T) {
	res, err := newEngine().ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{Hint: models.BankHSBC})
	require.NoError(t, err)

	assert.Equal(t, models.BankChase, res.Statement.BankID)
	assert.True(t, res.Validation.HasWarning(models.KindHintMismatch))
}

func TestParseStatementProgress(t *testing.T) {
	rep := progress.New("run", 32)

	_, err := newEngine().ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{Progress: rep})
	require.NoError(t, err)

	var updates []models.ParserProgress
	for u := range rep.Updates() {
		updates = append(updates, u)
	}
	require.NotEmpty(t, updates)

	statuses := make([]models.ProgressStatus, 0, len(updates))
	last := -1
	for _, u := range updates {
		statuses = append(statuses, u.Status)
		assert.GreaterOrEqual(t, u.Progress, last)
		last = u.Progress
	}
	assert.Equal(t, []models.ProgressStatus{
		models.StatusReading,
		models.StatusParsing,
		models.StatusExtracting,
		models.StatusExtracting,
		models.StatusExtracting,
		models.StatusComplete,
	}, statuses)

	assert.Equal(t, 50, updates[3].Progress)
	assert.Equal(t, 1, updates[3].CurrentPage)
	assert.Equal(t, 2, updates[3].TotalPages)
	assert.Equal(t, 80, updates[4].Progress)
	assert.Zero(t, rep.Dropped())
}

func TestParseStatementDeferCompletion(t *testing.T) {
	rep := progress.New("run", 32)

	res, err := newEngine().ParseStatement(context.Background(), []string{metroPage}, ParseOptions{
		Progress:        rep,
		DeferCompletion: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSaving, res.Progress.Status)
	assert.Equal(t, 80, res.Progress.Progress)

	require.NoError(t, rep.Complete("saved"))
	assert.Equal(t, models.StatusComplete, rep.Snapshot().Status)
}

func TestDetectBankAndStatsEntryPoints(t *testing.T) {
	e := newEngine()

	det := e.DetectBank([]string{chaseSummaryPage}, "")
	assert.Equal(t, models.BankChase, det.BankID)

	res, err := e.ParseStatement(context.Background(), []string{chaseSummaryPage, chaseDetailPage}, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, res.Stats, e.ComputeStats(res.Statement))

	marked := e.MarkDuplicates(res.Statement.Transactions, nil)
	assert.Equal(t, res.Statement.Transactions, marked)
}
