package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), cfg.Policy)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STATEMENT_AMBIGUITY_MARGIN", "0.35")
	t.Setenv("STATEMENT_DUPLICATE_EDIT_DISTANCE", "3")
	t.Setenv("STATEMENT_WORKERS", "8")
	t.Setenv("STATEMENT_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.35, cfg.AmbiguityMargin)
	assert.Equal(t, 3, cfg.DuplicateEditDistance)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 40, cfg.HeaderScanLines)
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STATEMENT_AMBIGUITY_MARGIN", "1.5")

	_, err := Load()
	assert.ErrorContains(t, err, "STATEMENT_AMBIGUITY_MARGIN")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative edit distance", func(c *Config) { c.DuplicateEditDistance = -1 }, "STATEMENT_DUPLICATE_EDIT_DISTANCE"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "STATEMENT_WORKERS"},
		{"zero buffer", func(c *Config) { c.ProgressBuffer = 0 }, "STATEMENT_PROGRESS_BUFFER"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"no header lines", func(c *Config) { c.HeaderScanLines = 0 }, "STATEMENT_HEADER_SCAN_LINES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir on Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
