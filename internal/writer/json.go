package writer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/insightdelivered/statement-engine/internal/engine"
)

// JSONWriter writes the whole result: statement, validation, detection and stats.
type JSONWriter struct {
	Indent bool
}

// Extension returns the file extension of the output.
func (w *JSONWriter) Extension() string { return ".json" }

func (w *JSONWriter) Write(out io.Writer, res *engine.Result) error {
	if res == nil {
		return fmt.Errorf("no result to write")
	}
	enc := json.NewEncoder(out)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
