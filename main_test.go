package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/config"
	"github.com/insightdelivered/statement-engine/internal/engine"
	"github.com/insightdelivered/statement-engine/internal/logging"
	"github.com/insightdelivered/statement-engine/internal/models"
)

const metroStatement = `Metro Bank
Account number: 12345678
Statement period: 01/01/2024 to 31/01/2024
Opening balance 1,260.55
Date Description Paid out Paid in Balance
15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56
17/01/2024 BANK CREDIT SALARY 2,500.00 3,734.56
Closing balance 3,734.56`

func testEngine() *engine.Engine {
	return engine.New(config.DefaultPolicy(), engine.WithLogger(logging.Discard()))
}

func TestProcessFileWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "jan.txt")
	require.NoError(t, os.WriteFile(input, []byte(metroStatement), 0o600))

	err := processFile(context.Background(), testEngine(), input, options{format: "json"})
	require.NoError(t, err)

	prior, err := loadPrior(filepath.Join(dir, "jan.json"))
	require.NoError(t, err)
	require.Len(t, prior, 2)
	assert.Equal(t, "CARD PAYMENT TESCO STORES", prior[0].Description)

	csvPath := filepath.Join(dir, "out.csv")
	err = processFile(context.Background(), testEngine(), input, options{format: "csv", output: csvPath, includeHeader: true, prior: prior})
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Transactions,2 (2 duplicate)")
}

func TestProcessFileRejectsInput(t *testing.T) {
	dir := t.TempDir()

	err := processFile(context.Background(), testEngine(), filepath.Join(dir, "missing.pdf"), options{format: "csv"})
	assert.ErrorContains(t, err, "not found")

	doc := filepath.Join(dir, "statement.docx")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0o600))
	err = processFile(context.Background(), testEngine(), doc, options{format: "csv"})
	assert.ErrorContains(t, err, "expected .pdf or .txt")

	unknown := filepath.Join(dir, "unknown.txt")
	require.NoError(t, os.WriteFile(unknown, []byte("Monzo Bank Ltd\n03 Jan 2024 Coffee 3.20"), 0o600))
	err = processFile(context.Background(), testEngine(), unknown, options{format: "csv"})
	assert.ErrorIs(t, err, engine.ErrUnsupportedBankFormat)
	assert.ErrorContains(t, err, "-bank")
}

func TestLoadPriorRequiresStatement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	data, err := json.Marshal(engine.Result{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = loadPrior(path)
	assert.Error(t, err)
}

func TestBankNames(t *testing.T) {
	assert.Equal(t, []string{
		string(models.BankMetro), string(models.BankHSBC), string(models.BankBarclays),
		string(models.BankChase), string(models.BankING),
	}, bankNames(testEngine()))
}

func TestNewReporterUsesConfiguredBuffer(t *testing.T) {
	rep := newReporter(options{progressBuffer: 32})
	assert.Equal(t, 32, cap(rep.Updates()))
	assert.NotEmpty(t, rep.Snapshot().RunID)
}
