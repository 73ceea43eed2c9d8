package report

import (
	"context"
	"io"
	"time"

	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/model"
)

// Reporter formats and writes a ledger export to an output destination.
type Reporter interface {
	Report(ctx context.Context, exp ledger.Export, meta Meta) error
}

// Meta contains contextual metadata for the report.
type Meta struct {
	Source      string                 `json:"source"`
	GeneratedAt time.Time              `json:"generated_at"`
	View        model.ResourceView     `json:"view"`
	Ratios      model.OvercommitRatios `json:"ratios"`
	Store       string                 `json:"store,omitempty"`
}

// NewReporter creates a reporter for the given format writing to w.
func NewReporter(format string, w io.Writer) Reporter {
	switch format {
	case "json":
		return &JSONReporter{w: w}
	case "markdown":
		return &MarkdownReporter{w: w}
	case "xlsx":
		return &XLSXReporter{w: w}
	default:
		return &TableReporter{w: w}
	}
}
