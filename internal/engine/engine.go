// Package engine ties detection, parsing, classification, de-duplication,
// statistics and validation into the statement parsing entry points.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-engine/internal/banks"
	"github.com/insightdelivered/statement-engine/internal/classifier"
	"github.com/insightdelivered/statement-engine/internal/config"
	"github.com/insightdelivered/statement-engine/internal/dedup"
	"github.com/insightdelivered/statement-engine/internal/detector"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/parser"
	"github.com/insightdelivered/statement-engine/internal/progress"
	"github.com/insightdelivered/statement-engine/internal/stats"
	"github.com/insightdelivered/statement-engine/internal/textnorm"
	"github.com/insightdelivered/statement-engine/internal/validator"
)

// Engine is safe for concurrent use. Each ParseStatement call is an
// independent run.
type Engine struct {
	policy     config.Policy
	registry   *banks.Registry
	detector   *detector.Detector
	classifier *classifier.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the built-in bank registry.
func WithRegistry(r *banks.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the reference clock used for yearless dates when a
// statement has no period.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine using policy.
func New(policy config.Policy, opts ...Option) *Engine {
	e := &Engine{
		policy:     policy,
		registry:   banks.Default(),
		classifier: classifier.Default(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.detector = detector.New(e.registry, detector.Options{
		HeaderScanLines: policy.HeaderScanLines,
		MinScore:        policy.MinDetectionScore,
		AmbiguityMargin: policy.AmbiguityMargin,
		HintBonus:       policy.HintBonus,
	})
	return e
}

// Registry returns the banks the engine recognises.
func (e *Engine) Registry() *banks.Registry {
	return e.registry
}

// ParseOptions control one ParseStatement run.
type ParseOptions struct {
	// Hint is the caller's guess of the bank. It biases detection and is
	// used when detection finds nothing.
	Hint     models.BankID
	Filename string
	// ExpectedPageCount is the page count reported by the document. Zero
	// skips the check.
	ExpectedPageCount int
	// Prior holds transactions already known to the caller; matching rows
	// are flagged as duplicates.
	Prior []models.ParsedTransaction
	// Progress receives the run's progress. A private reporter is used when nil.
	Progress *progress.Reporter
	// DeferCompletion leaves a successful run in the saving state so that
	// the caller can persist the result before calling Complete.
	DeferCompletion bool
}

// Result is the outcome of a run.
type Result struct {
	RunID      string                  `json:"runId"`
	Statement  *models.ParsedStatement `json:"statement,omitempty"`
	Validation models.ValidationResult `json:"validation"`
	Detection  models.DetectionResult  `json:"detection"`
	Stats      models.StatementStats   `json:"stats"`
	// UnparsedLines and TotalLines describe how much of the text was understood.
	UnparsedLines int                   `json:"unparsedLines"`
	TotalLines    int                   `json:"totalLines"`
	Progress      models.ParserProgress `json:"progress"`
}

// DetectBank scores pages against every registered bank.
func (e *Engine) DetectBank(pages []string, hint models.BankID) models.DetectionResult {
	return e.detector.Detect(pages, hint)
}

// ComputeStats aggregates a statement.
func (e *Engine) ComputeStats(stmt *models.ParsedStatement) models.StatementStats {
	return stats.Aggregate(stmt)
}

// MarkDuplicates flags repeated transactions using the configured edit distance.
func (e *Engine) MarkDuplicates(txns, prior []models.ParsedTransaction) []models.ParsedTransaction {
	return dedup.MarkDuplicates(txns, prior, dedup.Options{MaxEditDistance: e.policy.DuplicateEditDistance})
}

// ParseStatement runs the full pipeline over the text of a statement, one
// string per page.
//
// It returns ErrNoPages with a nil result when pages is empty, and
// ErrProgressFinished when opts.Progress is already terminal. Otherwise the
// result is always non-nil and the error is non-nil exactly when the run
// ended in the error state; the error is an *Error. A failed run never
// carries a partially processed statement unless validation rejected it.
func (e *Engine) ParseStatement(ctx context.Context, pages []string, opts ParseOptions) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	rep := opts.Progress
	var runID string
	if rep != nil {
		snap := rep.Snapshot()
		if snap.Status.Terminal() {
			return nil, ErrProgressFinished
		}
		runID = snap.RunID
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if rep == nil {
		rep = progress.New(runID, e.policy.ProgressBuffer)
	}
	log := e.logger.With("run_id", runID, "filename", opts.Filename, "pages", len(pages))
	res := &Result{RunID: runID, Detection: models.DetectionResult{Candidates: []models.Candidate{}}}

	rejected := false
	track := func(err error) {
		if err != nil && !rejected {
			rejected = true
			log.Debug("progress transition rejected", "error", err)
		}
	}

	fail := func(kind models.IssueKind, message string, cause error) (*Result, error) {
		if len(res.Validation.Errors) == 0 {
			res.Validation = validator.Failed(res.Detection.BankID, kind, message)
		}
		rep.Fail(message)
		res.Progress = rep.Snapshot()
		log.Warn("statement rejected", "kind", kind, "reason", message)
		return res, &Error{Kind: kind, Message: message, Cause: cause}
	}
	cancelled := func(err error) (*Result, error) {
		res.Statement = nil
		res.Validation = validator.Failed(res.Detection.BankID, models.KindCancelled, ErrCancelled.Error())
		return fail(models.KindCancelled, ErrCancelled.Error(), err)
	}

	track(rep.Update(models.StatusReading, 0, "Reading statement"))
	if opts.ExpectedPageCount > 0 && opts.ExpectedPageCount != len(pages) {
		return fail(models.KindCorruptPageStructure,
			fmt.Sprintf("document has %d pages but %d page texts were supplied", opts.ExpectedPageCount, len(pages)), nil)
	}
	if allBlank(pages) {
		return fail(models.KindEmptyInput, "statement contains no text", nil)
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	track(rep.Update(models.StatusParsing, 10, "Detecting bank"))
	res.Detection = e.detector.Detect(pages, opts.Hint)
	bankID := res.Detection.BankID
	if bankID == "" {
		bankID = opts.Hint
	}
	cfg, ok := e.registry.Lookup(bankID)
	if !ok {
		return fail(models.KindUnsupportedBankFormat, "statement layout not recognised; specify the bank", nil)
	}
	log = log.With("bank", cfg.ID)
	log.Debug("bank selected", "confidence", res.Detection.Confidence, "hint", opts.Hint)

	track(rep.Update(models.StatusExtracting, 20, "Extracting transactions"))
	raw, err := parser.Parse(ctx, pages, cfg, parser.Options{
		OnPage: func(done, total int) { track(rep.Page(done, total)) },
		Now:    e.now,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return cancelled(err)
		}
		return fail(models.KindCorruptPageStructure, err.Error(), err)
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if movements(raw) == 0 && !e.anyLayoutMatches(pages) {
		return fail(models.KindUnsupportedBankFormat, "no line matches a supported statement layout", nil)
	}

	stmt := e.buildStatement(cfg, raw, opts.Filename, len(pages))
	stmt.Transactions = e.MarkDuplicates(stmt.Transactions, opts.Prior)

	res.Statement = stmt
	res.Stats = stats.Aggregate(stmt)
	res.UnparsedLines = raw.UnparsedLines
	res.TotalLines = raw.TotalLines
	res.Validation = validator.Validate(stmt, res.Detection, validator.Meta{
		Hint:           opts.Hint,
		UnparsedLines:  raw.UnparsedLines,
		TotalLines:     raw.TotalLines,
		CandidateLines: raw.CandidateLines,
		DateFailures:   raw.DateFailures,
		Tolerance:      cfg.ReconciliationTolerance,
		RowIssues:      raw.Issues,
	}, validator.Options{
		UnparsedLineRatio:   e.policy.UnparsedLineRatio,
		UnreadableDateRatio: e.policy.UnreadableDateRatio,
		AmbiguityMargin:     e.policy.AmbiguityMargin,
	})

	if !res.Validation.Valid {
		first := res.Validation.Errors[0]
		return fail(first.Kind, first.Message, nil)
	}

	log.Info("statement parsed",
		"transactions", res.Stats.TransactionCount,
		"duplicates", res.Stats.DuplicateCount,
		"unparsed_lines", raw.UnparsedLines,
		"warnings", len(res.Validation.Warnings),
	)

	if opts.DeferCompletion {
		track(rep.Update(models.StatusSaving, 80, "Saving results"))
	} else {
		track(rep.Complete(fmt.Sprintf("Parsed %d transactions", res.Stats.TransactionCount)))
	}
	res.Progress = rep.Snapshot()
	return res, nil
}

func (e *Engine) buildStatement(cfg *banks.BankConfig, raw *parser.Result, filename string, pageCount int) *models.ParsedStatement {
	h := raw.Header
	stmt := &models.ParsedStatement{
		BankID:               cfg.ID,
		BankName:             cfg.DisplayName,
		Filename:             filename,
		Currency:             cfg.Currency,
		AccountNumber:        h.AccountNumber,
		SortCode:             h.SortCode,
		AccountHolder:        h.AccountHolder,
		StatementPeriodStart: h.PeriodStart,
		StatementPeriodEnd:   h.PeriodEnd,
		PageCount:            pageCount,
		OpeningBalance:       h.OpeningBalance,
		ClosingBalance:       h.ClosingBalance,
		Transactions:         make([]models.ParsedTransaction, 0, len(raw.Transactions)),
	}
	for _, r := range raw.Transactions {
		stmt.Transactions = append(stmt.Transactions, models.ParsedTransaction{
			Date:                  r.Date,
			Description:           r.Description,
			NormalizedDescription: textnorm.Fold(r.Description),
			Debit:                 r.Debit,
			Credit:                r.Credit,
			RunningBalance:        r.Balance,
			Type:                  e.classifier.Classify(r.Description),
			SourcePage:            r.Page,
			SourceLineIndex:       r.Line,
			DateFallback:          !r.DateResolved,
		})
	}
	return stmt
}

// anyLayoutMatches reports whether some registered layout recognises at
// least one transaction row in pages.
func (e *Engine) anyLayoutMatches(pages []string) bool {
	for _, cfg := range e.registry.All() {
		if parser.MatchesRows(pages, cfg) {
			return true
		}
	}
	return false
}

func movements(raw *parser.Result) int {
	n := 0
	for _, r := range raw.Transactions {
		if r.Debit != nil || r.Credit != nil {
			n++
		}
	}
	return n
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
