package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CARD PAYMENT  TO   TESCO", "card payment to tesco"},
		{"  Direct\tDebit SKY ", "direct debit sky"},
		{"ÜBERWEISUNG", "überweisung"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DD - British Gas", " dd british gas "},
		{"chase.com/help", " chase com help "},
		{"ATM*WITHDRAWAL", " atm withdrawal "},
		{"---", " "},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Words(tt.input))
		})
	}
}
