package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-engine/internal/api"
	"github.com/insightdelivered/statement-engine/internal/config"
	"github.com/insightdelivered/statement-engine/internal/engine"
	"github.com/insightdelivered/statement-engine/internal/extractor"
	"github.com/insightdelivered/statement-engine/internal/logging"
	"github.com/insightdelivered/statement-engine/internal/metrics"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/progress"
	"github.com/insightdelivered/statement-engine/internal/writer"
)

const version = "2.0.0"

type options struct {
	hint           models.BankID
	output         string
	format         string
	includeHeader  bool
	prior          []models.ParsedTransaction
	// progressBuffer is the number of progress updates held per run.
	progressBuffer int
}

func main() {
	bankFlag := flag.String("bank", "", "Bank: metro, hsbc, barclays, chase, ing (auto-detected if omitted)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format's extension; single input only)")
	formatFlag := flag.String("format", "csv", "Output format: csv or json")
	headerFlag := flag.Bool("header", true, "Include account metadata header rows in CSV")
	priorFlag := flag.String("prior", "", "JSON output of an earlier statement; matching transactions are flagged as duplicates")
	workersFlag := flag.Int("workers", 0, "Statements converted concurrently (default STATEMENT_WORKERS)")
	serveFlag := flag.String("serve", "", "Run the HTTP API on this address instead of converting files (e.g. :8080)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Parsing Engine
by Insight Delivered (QEA AutoLens)

Converts bank statements from Metro Bank, HSBC, Barclays, Chase and ING
into structured CSV or JSON, with validation, statistics and duplicate
detection.

Usage:
  statement-engine [flags] <input.pdf|input.txt> [input2 ...]
  statement-engine -serve :8080

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect bank and convert
  statement-engine statement.pdf

  # Specify bank explicitly, write JSON
  statement-engine -bank=hsbc -format=json statement.pdf

  # Flag transactions already seen in last month's export
  statement-engine -prior=jan.json feb.pdf

  # Convert several files, two at a time
  statement-engine -workers=2 jan.pdf feb.pdf mar.pdf

Text inputs hold one page per form feed (\f), as produced by pdftotext.
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-engine v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	logger := logging.Setup(logging.FromSettings(cfg.LogLevel, cfg.LogFormat))
	eng := engine.New(cfg.Policy, engine.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serveFlag != "" {
		if err := serve(ctx, eng, *serveFlag, logger); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	inputFiles := flag.Args()
	if *outputFlag != "" && len(inputFiles) > 1 {
		fatalf("-output can only be used with a single input file\n")
	}

	hint, err := eng.Registry().ParseBankID(*bankFlag)
	if err != nil {
		fatalf("%v. Supported: %s\n", err, strings.Join(bankNames(eng), ", "))
	}
	if _, err := writer.New(*formatFlag, *headerFlag); err != nil {
		fatalf("%v\n", err)
	}

	opts := options{
		hint:           hint,
		output:         *outputFlag,
		format:         *formatFlag,
		includeHeader:  *headerFlag,
		progressBuffer: cfg.ProgressBuffer,
	}
	if *priorFlag != "" {
		if opts.prior, err = loadPrior(*priorFlag); err != nil {
			fatalf("Reading prior transactions: %v\n", err)
		}
	}

	workers := cfg.Workers
	if *workersFlag > 0 {
		workers = *workersFlag
	}

	// Every file is attempted; failures are reported together.
	var (
		mu     sync.Mutex
		failed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, inputPath := range inputFiles {
		inputPath := inputPath // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			if err := processFile(gctx, eng, inputPath, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
				mu.Lock()
				failed = append(failed, inputPath)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		fatalf("%d of %d file(s) failed\n", len(failed), len(inputFiles))
	}
}

func serve(ctx context.Context, eng *engine.Engine, addr string, logger *slog.Logger) error {
	app := api.NewApp(&api.Handler{
		Engine:  eng,
		Metrics: metrics.New(),
		Logger:  logger,
		Version: version,
	})

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func processFile(ctx context.Context, eng *engine.Engine, inputPath string, opts options) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	var (
		doc *extractor.Document
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(inputPath)); ext {
	case ".pdf":
		doc, err = extractor.ExtractText(inputPath)
		if err != nil {
			return fmt.Errorf("PDF extraction failed: %w", err)
		}
	case ".txt":
		doc, err = extractor.ReadTextFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading text failed: %w", err)
		}
	default:
		return fmt.Errorf("expected .pdf or .txt file, got %q", ext)
	}

	name := filepath.Base(inputPath)
	fmt.Printf("Processing: %s (%d page(s))\n", inputPath, doc.PageCount)

	rep := newReporter(opts)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range rep.Updates() {
			printProgress(name, p)
		}
	}()

	res, err := eng.ParseStatement(ctx, doc.Pages, engine.ParseOptions{
		Hint:              opts.hint,
		Filename:          name,
		ExpectedPageCount: doc.PageCount,
		Prior:             opts.prior,
		Progress:          rep,
		DeferCompletion:   true,
	})
	if err != nil {
		<-done
		if engine.KindOf(err) == models.KindUnsupportedBankFormat {
			return fmt.Errorf("%w; try specifying the bank with -bank", err)
		}
		return err
	}

	outPath := opts.output
	w, err := writer.New(opts.format, opts.includeHeader)
	if err != nil {
		rep.Fail(err.Error())
		<-done
		return err
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + w.Extension()
	}
	if err := writer.WriteToFile(w, outPath, res); err != nil {
		rep.Fail(err.Error())
		<-done
		return fmt.Errorf("write failed: %w", err)
	}
	_ = rep.Complete("Saved " + outPath)
	<-done

	printSummary(res, outPath)
	return nil
}

func newReporter(opts options) *progress.Reporter {
	return progress.New(uuid.NewString(), opts.progressBuffer)
}

func printProgress(name string, p models.ParserProgress) {
	if p.TotalPages > 0 {
		fmt.Printf("  [%s] %3d%% %s (page %d/%d)\n", name, p.Progress, p.Status, p.CurrentPage, p.TotalPages)
		return
	}
	fmt.Printf("  [%s] %3d%% %s: %s\n", name, p.Progress, p.Status, p.Message)
}

func printSummary(res *engine.Result, outPath string) {
	stmt := res.Statement
	fmt.Printf("  Bank: %s (confidence %.2f)\n", stmt.BankName, res.Detection.Confidence)
	fmt.Printf("  Found %d transaction(s), %d duplicate(s)\n", res.Stats.TransactionCount, res.Stats.DuplicateCount)
	fmt.Printf("  Credits %s, debits %s, net %s %s\n",
		res.Stats.TotalCredits.StringFixed(2), res.Stats.TotalDebits.StringFixed(2),
		res.Stats.NetChange.StringFixed(2), stmt.Currency)
	if stmt.AccountHolder != "" {
		fmt.Printf("  Account holder: %s\n", stmt.AccountHolder)
	}
	if stmt.AccountNumber != "" {
		fmt.Printf("  Account number: %s\n", stmt.AccountNumber)
	}
	if stmt.SortCode != "" {
		fmt.Printf("  Sort code: %s\n", stmt.SortCode)
	}
	if !stmt.StatementPeriodStart.IsZero() {
		fmt.Printf("  Period: %s to %s\n", stmt.StatementPeriodStart.Format("02/01/2006"), stmt.StatementPeriodEnd.Format("02/01/2006"))
	}
	for _, w := range res.Validation.Warnings {
		fmt.Printf("  Warning: %s\n", w.Message)
	}
	fmt.Printf("  Output: %s\n", outPath)
}

// loadPrior reads the transactions of an earlier JSON export.
func loadPrior(path string) ([]models.ParsedTransaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res engine.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if res.Statement == nil {
		return nil, errors.New("file holds no statement; use a -format=json export")
	}
	return res.Statement.Transactions, nil
}

func bankNames(eng *engine.Engine) []string {
	ids := eng.Registry().IDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
