package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/guimove/capviz/internal/ledger"
)

// Sheet names of the exported workbook.
const (
	SheetMigrations = "Migrations"
	SheetSummary    = "Summary"
	SheetClusters   = "Clusters"
	SheetHosts      = "Hosts"
	SheetPlacements = "Placements"
	SheetUnplaced   = "Unplaced"
)

var migrationHeaders = []string{
	"Migration ID", "VM ID", "VM", "Source Cluster", "Source Host",
	"Destination Cluster", "Destination Host", "Status", "Timestamp",
}

// XLSXReporter writes the ledger as an Excel workbook.
type XLSXReporter struct {
	w io.Writer
}

func (r *XLSXReporter) Report(ctx context.Context, exp ledger.Export, meta Meta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, SheetMigrations, migrationHeaders, migrationRows(exp)); err != nil {
		return err
	}

	summary := [][]any{
		{"Exported", exp.ExportDate.Format("2006-01-02 15:04:05 MST")},
		{"Source", meta.Source},
		{"Total migrations", exp.TotalMigrations},
		{},
		{"Cluster pair", "Migrations"},
	}
	for _, p := range exp.Summary.Pairs() {
		summary = append(summary, []any{p.Pair, p.Count})
	}
	if err := writeSheet(f, SheetSummary, nil, summary); err != nil {
		return err
	}

	return finishWorkbook(f, SheetMigrations, r.w)
}

func migrationRows(exp ledger.Export) [][]any {
	rows := make([][]any, 0, len(exp.Migrations))
	for _, m := range exp.Migrations {
		rows = append(rows, []any{
			m.ID, m.VMID, m.VMName,
			m.SourceClusterName, m.SourceHostName,
			m.DestinationClusterName, m.DestinationHostName,
			string(m.Status), m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return rows
}

// writeSheet creates sheet and fills it with an optional header row followed
// by rows.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	next := 1
	if len(headers) > 0 {
		for col, h := range headers {
			if err := f.SetCellValue(sheet, cellRef(col, next), h); err != nil {
				return err
			}
		}
		next++
	}
	for _, row := range rows {
		for col, v := range row {
			if err := f.SetCellValue(sheet, cellRef(col, next), v); err != nil {
				return err
			}
		}
		next++
	}
	return nil
}

func cellRef(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func finishWorkbook(f *excelize.File, active string, w io.Writer) error {
	idx, err := f.GetSheetIndex(active)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
