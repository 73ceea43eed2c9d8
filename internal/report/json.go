package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/guimove/capviz/internal/ledger"
)

// JSONReporter outputs the ledger export as JSON.
type JSONReporter struct {
	w io.Writer
}

type jsonOutput struct {
	Meta   Meta          `json:"meta"`
	Export ledger.Export `json:"export"`
}

func (r *JSONReporter) Report(ctx context.Context, exp ledger.Export, meta Meta) error {
	return WriteJSON(r.w, jsonOutput{Meta: meta, Export: exp})
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
