// Package classifier assigns a models.TransactionType to a transaction
// description using an ordered keyword rule table.
package classifier

import (
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/textnorm"
)

// Rule maps keywords to a type. Keywords match whole words of the
// case-folded description.
type Rule struct {
	Type     models.TransactionType
	Keywords []string
}

// DefaultRules are evaluated in order: when keywords of several rules
// match, the earliest rule wins.
var DefaultRules = []Rule{
	{models.TypeATM, []string{"atm", "cash withdrawal", "cashpoint", "cash machine", "bargeldauszahlung", "geldautomat"}},
	{models.TypeDirectDebit, []string{"direct debit", "dd", "d d", "lastschrift", "ach debit"}},
	{models.TypeDirectCredit, []string{"direct credit", "bacs credit", "bgc", "payroll", "salary", "gehalt", "direct deposit", "ach credit"}},
	{models.TypeInterest, []string{"interest", "zinsen", "habenzinsen"}},
	{models.TypeFee, []string{"fee", "fees", "charge", "charges", "overdraft", "entgelt", "gebühr", "service charge"}},
	{models.TypeTransfer, []string{"tfr", "transfer", "faster payment", "standing order", "so", "überweisung", "zelle", "dauerauftrag"}},
	{models.TypeCardPurchase, []string{"pos", "card purchase", "card payment", "visa", "vis", "mastercard", "contactless", "purchase", "debit card", "kartenzahlung"}},
	{models.TypeDeposit, []string{"deposit", "cash in", "paid in", "einzahlung", "lodgement", "refund", "gutschrift"}},
	{models.TypeWithdrawal, []string{"withdrawal", "cash out", "auszahlung"}},
	{models.TypePayment, []string{"payment", "bill payment", "bp", "online payment", "zahlung", "check", "cheque"}},
}

// Classifier matches all rule keywords in a single pass.
type Classifier struct {
	rules []Rule

	mu      sync.Mutex // the matcher keeps per-call state
	matcher *ahocorasick.Matcher
	ruleOf  [][]int // pattern index -> rule indexes
}

// New builds a classifier from rules.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: rules}

	patternToIndex := make(map[string]int)
	var patterns [][]byte
	for ri, r := range rules {
		for _, kw := range r.Keywords {
			p := textnorm.Words(kw)
			if p == " " {
				continue
			}
			idx, ok := patternToIndex[p]
			if !ok {
				idx = len(patterns)
				patternToIndex[p] = idx
				patterns = append(patterns, []byte(p))
				c.ruleOf = append(c.ruleOf, nil)
			}
			c.ruleOf[idx] = append(c.ruleOf[idx], ri)
		}
	}
	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewMatcher(patterns)
	}
	return c
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns a shared classifier built from DefaultRules.
func Default() *Classifier {
	defaultOnce.Do(func() {
		defaultClassifier = New(DefaultRules)
	})
	return defaultClassifier
}

// Classify returns the type of the first rule with a matching keyword, or
// TypeUnknown. The result depends only on the description.
func (c *Classifier) Classify(description string) models.TransactionType {
	if c.matcher == nil {
		return models.TypeUnknown
	}
	text := []byte(textnorm.Words(description))

	c.mu.Lock()
	matches := c.matcher.Match(text)
	c.mu.Unlock()

	best := -1
	for _, idx := range matches {
		if idx < 0 || idx >= len(c.ruleOf) {
			continue
		}
		for _, ri := range c.ruleOf[idx] {
			if best < 0 || ri < best {
				best = ri
			}
		}
	}
	if best < 0 {
		return models.TypeUnknown
	}
	return c.rules[best].Type
}

// Classify classifies description with the default rules.
func Classify(description string) models.TransactionType {
	return Default().Classify(description)
}
