package docbuild

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/mathdocx/internal/analysis"
)

func TestExportTables(t *testing.T) {
	res := &analysis.Result{Segments: []analysis.Segment{
		{Type: analysis.SegmentText, Content: "intro"},
		{Type: analysis.SegmentTable, Content: "x | f(x)\n$x^2$ | 4"},
		{Type: analysis.SegmentTable, Content: "only | row"},
	}}
	var buf bytes.Buffer
	if err := ExportTables(res, &buf); err != nil {
		t.Fatalf("ExportTables: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Table 1" || sheets[1] != "Table 2" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows("Table 1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "x^2" {
		t.Errorf("math cell = %q, want x^2", rows[1][0])
	}
	if rows[1][1] != "4" {
		t.Errorf("numeric cell = %q, want 4", rows[1][1])
	}
}

func TestExportTables_None(t *testing.T) {
	res := &analysis.Result{Segments: []analysis.Segment{{Type: analysis.SegmentText, Content: "x"}}}
	if err := ExportTables(res, &bytes.Buffer{}); !errors.Is(err, ErrNoTables) {
		t.Fatalf("expected ErrNoTables, got %v", err)
	}
}
