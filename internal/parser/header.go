package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-engine/internal/banks"
)

type lineKey struct{ page, line int }

// readHeader scans every line for statement metadata. The first match wins
// for each field except the closing balance, where the last match wins.
// It returns the lines that were consumed as metadata.
func readHeader(lines [][]string, cfg *banks.BankConfig, h *Header) map[lineKey]bool {
	consumed := make(map[lineKey]bool)
	rules := cfg.Header

	for p, pageLines := range lines {
		for i, raw := range pageLines {
			if raw == "" {
				continue
			}
			line := flatten(raw)
			if cfg.TransactionLine.MatchString(line) {
				continue
			}

			matched := false
			if v, ok := capture(rules.AccountNumber, line, "value"); ok {
				if h.AccountNumber == "" {
					h.AccountNumber = strings.ReplaceAll(v, " ", "")
				}
				matched = true
			}
			if v, ok := capture(rules.SortCode, line, "value"); ok {
				if h.SortCode == "" {
					h.SortCode = v
				}
				matched = true
			}
			if v, ok := capture(rules.AccountHolder, line, "value"); ok {
				if h.AccountHolder == "" {
					h.AccountHolder = v
				}
				matched = true
			}
			if m := find(rules.Period, line); m != nil {
				if !h.PeriodFound {
					start, okStart := parsePeriodDate(m[rules.Period.SubexpIndex("start")], cfg)
					end, okEnd := parsePeriodDate(m[rules.Period.SubexpIndex("end")], cfg)
					if okStart && okEnd {
						h.PeriodStart, h.PeriodEnd, h.PeriodFound = start, end, true
					}
				}
				matched = true
			}
			if v, ok := capture(rules.OpeningBalance, line, "value"); ok {
				if amt, err := parseAmount(v, cfg); err == nil && h.OpeningBalance == nil {
					h.OpeningBalance = &amt
				}
				matched = true
			}
			if v, ok := capture(rules.ClosingBalance, line, "value"); ok {
				if amt, err := parseAmount(v, cfg); err == nil {
					h.ClosingBalance = &amt
				}
				matched = true
			}

			if matched {
				consumed[lineKey{p, i}] = true
			}
		}
	}
	return consumed
}

func find(re *regexp.Regexp, line string) []string {
	if re == nil {
		return nil
	}
	return re.FindStringSubmatch(line)
}

func capture(re *regexp.Regexp, line, group string) (string, bool) {
	m := find(re, line)
	if m == nil {
		return "", false
	}
	idx := re.SubexpIndex(group)
	if idx < 0 {
		return "", false
	}
	v := strings.TrimSpace(m[idx])
	return v, v != ""
}
