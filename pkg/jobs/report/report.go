// Package report exports job views as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary  = "Summary"
	SheetResidues = "Residues"
	SheetLogs     = "Logs"
)

type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (sw *sheetWriter) row(row int, values ...any) {
	for i, v := range values {
		if sw.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetCellValue(sw.sheet, cell, v)
	}
}

func na(s string) string {
	if s == "" {
		return jobs.NotAvailable
	}
	return s
}

// XLSX renders v as a workbook with summary, residues and logs sheets.
func XLSX(v jobs.View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet is renamed to be the first one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, err
	}
	for _, s := range []string{SheetResidues, SheetLogs} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, err
		}
	}

	summary := &sheetWriter{f: f, sheet: SheetSummary}
	summary.row(1, "Job", na(v.Handle))
	summary.row(2, "Result", string(v.Banner))
	summary.row(3, "Message", v.Message)
	summary.row(4, "Status", na(string(v.Status)))
	summary.row(5, "Progress", v.Progress)
	summary.row(6, "Viewer", na(v.Viewer))
	row := 7
	for _, l := range v.Links {
		summary.row(row, "Download: "+l.Label, l.URL)
		row++
	}
	if len(v.Links) == 0 {
		summary.row(row, "Download", jobs.NotAvailable)
	}

	residues := &sheetWriter{f: f, sheet: SheetResidues}
	residues.row(1, "Residue", "Glycan", "Clash Solved")
	for i, r := range v.Residues {
		residues.row(i+2, na(r.Residue), na(r.Glycan), r.ClashSolved)
	}

	logs := &sheetWriter{f: f, sheet: SheetLogs}
	logs.row(1, "Timestamp", "Message")
	for i, l := range v.Logs {
		logs.row(i+2, l.Timestamp, l.Message)
	}
	if len(v.Logs) == 0 && v.Log != "" {
		logs.row(2, "", v.Log)
	}

	for _, sw := range []*sheetWriter{summary, residues, logs} {
		if sw.err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", sw.sheet, sw.err)
		}
	}

	_ = f.SetColWidth(SheetSummary, "A", "A", 20)
	_ = f.SetColWidth(SheetSummary, "B", "B", 60)
	_ = f.SetColWidth(SheetResidues, "A", "C", 16)
	_ = f.SetColWidth(SheetLogs, "A", "A", 24)
	_ = f.SetColWidth(SheetLogs, "B", "B", 80)
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the workbook of v into w.
func WriteXLSX(w io.Writer, v jobs.View) error {
	b, err := XLSX(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
