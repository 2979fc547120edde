package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected bool
	}{
		{"statement text", []string{"Metro Bank Account Statement\n15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"}, true},
		{"too short", []string{"Bank 1.00"}, false},
		{"no statement words", []string{strings.Repeat("lorem ipsum dolor sit amet ", 4)}, false},
		{"garbage glyphs", []string{strings.Repeat("ÄÖÜßþðæ", 20) + " bank"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsReadableText(tt.pages))
		})
	}
}

func TestTextQuality(t *testing.T) {
	assert.Zero(t, textQuality(nil))
	assert.Equal(t, 1.0, textQuality([]string{"Paid out £25.99"}))
	assert.Less(t, textQuality([]string{"ÄÖÜ"}), 0.1)
}

func TestReadText(t *testing.T) {
	doc, err := ReadText(strings.NewReader("page one\nline two\n\fpage two\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, doc.PageCount)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, "page one\nline two\n", doc.Pages[0])
	assert.Equal(t, "page two", doc.Pages[1])
}

func TestReadTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.txt")
	require.NoError(t, os.WriteFile(path, []byte("only page"), 0o600))

	doc, err := ReadTextFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only page"}, doc.Pages)

	_, err = ReadTextFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestExtractTextMissingFile(t *testing.T) {
	_, err := ExtractText(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
