package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-engine/internal/banks"
)

// symbolStripper removes currency symbols and whitespace (including Unicode
// variants) that appear inside amount tokens.
var symbolStripper = strings.NewReplacer(
	"£", "",
	"$", "",
	"€", "",
	" ", "",
	"\u00A0", "",
)

// parseAmount converts a token like "1,234.56", "-£1,234.56" or "-1.234,56"
// to a decimal using the config's currency and locale. An empty token
// parses as zero.
func parseAmount(s string, cfg *banks.BankConfig) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if sym := cfg.CurrencySymbol(); sym != "" {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = symbolStripper.Replace(s)
	s = strings.ReplaceAll(s, string(cfg.Locale.ThousandsSeparator), "")
	if cfg.Locale.DecimalSeparator != '.' {
		s = strings.ReplaceAll(s, string(cfg.Locale.DecimalSeparator), ".")
	}
	s = strings.TrimPrefix(s, "+")

	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// parseDate tries each layout in order. Layouts without a year return
// yearless=true and a date in year 0.
func parseDate(s string, layouts []string) (t time.Time, yearless, ok bool) {
	s = flatten(s)
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return parsed, !strings.Contains(layout, "06"), true
	}
	return time.Time{}, false, false
}

// resolveYear places a yearless date in the twelve months ending with ref's
// month. It reports false when the day does not exist in that year, as for
// 29 Feb outside a leap year.
func resolveYear(t, ref time.Time) (time.Time, bool) {
	year := ref.Year()
	if t.Month() > ref.Month() {
		year--
	}
	resolved := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if resolved.Day() != t.Day() {
		return time.Time{}, false
	}
	return resolved, true
}

// parsePeriodDate parses one end of the statement period. Yearless layouts
// are not accepted here.
func parsePeriodDate(s string, cfg *banks.BankConfig) (time.Time, bool) {
	layouts := make([]string, 0, len(cfg.DateFormats)+len(cfg.PeriodDateFormats))
	layouts = append(layouts, cfg.DateFormats...)
	layouts = append(layouts, cfg.PeriodDateFormats...)
	s = strings.TrimSuffix(flatten(s), ".")
	for _, layout := range layouts {
		if !strings.Contains(layout, "06") {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
