// Package textnorm folds statement text into the forms used for matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s with Unicode case folding, applies NFKC and collapses
// runs of whitespace into single spaces.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Words folds s and replaces every rune that is not a letter or digit with a
// space. The result is padded with one space on each side so that a padded
// keyword such as " atm " only matches whole words.
func Words(s string) string {
	folded := Fold(s)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	fields := strings.Fields(mapped)
	if len(fields) == 0 {
		return " "
	}
	return " " + strings.Join(fields, " ") + " "
}
