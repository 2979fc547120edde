// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Policy holds the thresholds that shape parsing, detection and validation.
type Policy struct {
	HeaderScanLines       int     `koanf:"STATEMENT_HEADER_SCAN_LINES"`
	MinDetectionScore     float64 `koanf:"STATEMENT_MIN_DETECTION_SCORE"`
	AmbiguityMargin       float64 `koanf:"STATEMENT_AMBIGUITY_MARGIN"`
	HintBonus             float64 `koanf:"STATEMENT_HINT_BONUS"`
	DuplicateEditDistance int     `koanf:"STATEMENT_DUPLICATE_EDIT_DISTANCE"`
	UnparsedLineRatio     float64 `koanf:"STATEMENT_UNPARSED_LINE_RATIO"`
	UnreadableDateRatio   float64 `koanf:"STATEMENT_UNREADABLE_DATE_RATIO"`
	ProgressBuffer        int     `koanf:"STATEMENT_PROGRESS_BUFFER"`
}

// Config holds all application configuration.
type Config struct {
	Policy `koanf:",squash"`

	// ListenAddr is the address the HTTP API listens on.
	ListenAddr string `koanf:"STATEMENT_LISTEN_ADDR"`
	// Workers bounds the number of statements converted concurrently.
	Workers   int    `koanf:"STATEMENT_WORKERS"`
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		HeaderScanLines:       40,
		MinDetectionScore:     0.30,
		AmbiguityMargin:       0.20,
		HintBonus:             0.25,
		DuplicateEditDistance: 2,
		UnparsedLineRatio:     0.10,
		UnreadableDateRatio:   0.50,
		ProgressBuffer:        16,
	}
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Policy:     DefaultPolicy(),
		ListenAddr: ":8080",
		Workers:    4,
		LogLevel:   "INFO",
		LogFormat:  "text",
	}
}

// Load reads a .env file if present, then overlays environment variables on
// the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("STATEMENT_LISTEN_ADDR must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("STATEMENT_WORKERS must be at least 1, got %d", c.Workers)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Validate rejects out-of-range thresholds.
func (p Policy) Validate() error {
	if p.HeaderScanLines < 1 {
		return fmt.Errorf("STATEMENT_HEADER_SCAN_LINES must be at least 1, got %d", p.HeaderScanLines)
	}
	for _, r := range []struct {
		name  string
		value float64
	}{
		{"STATEMENT_MIN_DETECTION_SCORE", p.MinDetectionScore},
		{"STATEMENT_AMBIGUITY_MARGIN", p.AmbiguityMargin},
		{"STATEMENT_HINT_BONUS", p.HintBonus},
		{"STATEMENT_UNPARSED_LINE_RATIO", p.UnparsedLineRatio},
		{"STATEMENT_UNREADABLE_DATE_RATIO", p.UnreadableDateRatio},
	} {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", r.name, r.value)
		}
	}
	if p.DuplicateEditDistance < 0 {
		return fmt.Errorf("STATEMENT_DUPLICATE_EDIT_DISTANCE must not be negative, got %d", p.DuplicateEditDistance)
	}
	if p.ProgressBuffer < 1 {
		return fmt.Errorf("STATEMENT_PROGRESS_BUFFER must be at least 1, got %d", p.ProgressBuffer)
	}
	return nil
}
