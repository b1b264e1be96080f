package docbuild

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/mathdocx/internal/analysis"
	"github.com/dgallion1/mathdocx/internal/latex"
)

// ErrNoTables is returned by ExportTables when the result has no table
// segments.
var ErrNoTables = errors.New("docbuild: no table segments")

// ExportTables writes every table segment to its own worksheet of an XLSX
// workbook. Inline math in cells is flattened to plain text and numeric
// cells are stored as numbers.
func ExportTables(res *analysis.Result, w io.Writer) error {
	var tables [][][]string
	for _, seg := range res.Segments {
		if seg.Type != analysis.SegmentTable {
			continue
		}
		if rows := analysis.ParseTable(seg.Content); len(rows) > 0 {
			tables = append(tables, rows)
		}
	}
	if len(tables) == 0 {
		return ErrNoTables
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, rows := range tables {
		sheet := fmt.Sprintf("Table %d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet: %w", err)
		}
		for r, row := range rows {
			for c, text := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, cellValue(text)); err != nil {
					return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
				}
			}
		}
		last, _ := excelize.ColumnNumberToName(len(rows[0]))
		_ = f.SetColWidth(sheet, "A", last, 18)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellValue(text string) any {
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return n
	}
	var sb strings.Builder
	for _, span := range latex.SplitInline(text) {
		switch s := span.(type) {
		case latex.Literal:
			sb.WriteString(s.Text)
		case latex.Math:
			sb.WriteString(latex.PlainText(s.Nodes))
		}
	}
	return sb.String()
}
