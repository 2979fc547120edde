// Package detector identifies the issuing bank of a statement from the
// marker strings printed near the top of its first page.
package detector

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/insightdelivered/statement-engine/internal/banks"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/textnorm"
)

// Options tune detection scoring.
type Options struct {
	// HeaderScanLines is the number of lines of the first page that are scanned.
	HeaderScanLines int
	// MinScore is the lowest top score that still selects a bank.
	MinScore float64
	// AmbiguityMargin is the top-two score gap below which detection is ambiguous.
	AmbiguityMargin float64
	// HintBonus is added to the score of the caller's hinted bank.
	HintBonus float64
}

// DefaultOptions returns the scoring defaults.
func DefaultOptions() Options {
	return Options{
		HeaderScanLines: 40,
		MinScore:        0.30,
		AmbiguityMargin: 0.20,
		HintBonus:       0.25,
	}
}

type markerHit struct {
	bank   int
	weight float64
}

// Detector scores every registered bank against a statement in one pass
// of an Aho-Corasick automaton built from all header markers.
type Detector struct {
	configs []*banks.BankConfig
	opts    Options

	mu      sync.Mutex // the matcher keeps per-call state
	matcher *ahocorasick.Matcher
	hits    [][]markerHit // pattern index -> banks it scores for
}

// New builds a detector for the registry's banks.
func New(registry *banks.Registry, opts Options) *Detector {
	d := &Detector{
		configs: registry.All(),
		opts:    opts,
	}

	patternToIndex := make(map[string]int)
	var patterns [][]byte
	for bi, c := range d.configs {
		for _, m := range c.HeaderMarkers {
			p := textnorm.Words(m.Text)
			if strings.TrimSpace(p) == "" {
				continue
			}
			idx, ok := patternToIndex[p]
			if !ok {
				idx = len(patterns)
				patternToIndex[p] = idx
				patterns = append(patterns, []byte(p))
				d.hits = append(d.hits, nil)
			}
			d.hits[idx] = append(d.hits[idx], markerHit{bank: bi, weight: m.Weight})
		}
	}
	if len(patterns) > 0 {
		d.matcher = ahocorasick.NewMatcher(patterns)
	}
	return d
}

// Detect scores the statement's first page against every bank. A hint for
// a registered bank adds HintBonus to that bank's score but never
// overrides a clearly better match.
func (d *Detector) Detect(pages []string, hint models.BankID) models.DetectionResult {
	scores := make([]float64, len(d.configs))

	if text := d.headerText(pages); text != "" && d.matcher != nil {
		d.mu.Lock()
		matches := d.matcher.Match([]byte(text))
		d.mu.Unlock()

		seen := make(map[int]bool, len(matches))
		for _, idx := range matches {
			if seen[idx] || idx < 0 || idx >= len(d.hits) {
				continue
			}
			seen[idx] = true
			for _, h := range d.hits[idx] {
				scores[h.bank] += h.weight
			}
		}
		for i, c := range d.configs {
			scores[i] /= c.TotalMarkerWeight()
		}
	}

	if hint != "" {
		for i, c := range d.configs {
			if c.ID == hint {
				scores[i] += d.opts.HintBonus
			}
		}
	}

	order := make([]int, len(d.configs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	result := models.DetectionResult{Candidates: []models.Candidate{}}
	for _, i := range order {
		if scores[i] <= 0 {
			break
		}
		result.Candidates = append(result.Candidates, models.Candidate{
			BankID: d.configs[i].ID,
			Score:  scores[i],
		})
	}
	if len(result.Candidates) == 0 {
		return result
	}

	top := result.Candidates[0].Score
	var second float64
	if len(result.Candidates) > 1 {
		second = result.Candidates[1].Score
	}
	result.Confidence = clamp(top-second, 0, 1)
	if top < d.opts.MinScore {
		return result
	}
	result.BankID = result.Candidates[0].BankID
	result.Ambiguous = result.Confidence < d.opts.AmbiguityMargin
	return result
}

// headerText returns the first HeaderScanLines lines of the first non-blank
// page in word-tokenised form.
func (d *Detector) headerText(pages []string) string {
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		lines := strings.Split(page, "\n")
		if n := d.opts.HeaderScanLines; n > 0 && len(lines) > n {
			lines = lines[:n]
		}
		var b strings.Builder
		for _, line := range lines {
			b.WriteString(textnorm.Words(line))
		}
		return b.String()
	}
	return ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
